/*
Package inputfile ingests airdrop recipient lists from CSV or JSON files
and normalizes them into NFTTransfer records. Both the "id" and the
"tokenId" spellings are accepted and folded into ID.
*/
package inputfile

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NFTTransfer is one normalized recipient record.
type NFTTransfer struct {
	WalletAddress string
	Tick          string
	ID            string
}

// rawRecord tolerates both id spellings and numeric ids in JSON input.
type rawRecord struct {
	WalletAddress string      `json:"walletAddress"`
	Tick          string      `json:"tick"`
	ID            interface{} `json:"id"`
	TokenID       interface{} `json:"tokenId"`
}

// ProcessInputFile reads the recipient list at filePath, dispatching on
// the file extension. addressPrefix is the network's bech32 prefix
// ("kaspa" or "kaspatest") every wallet address must carry.
func ProcessInputFile(filePath string, addressPrefix string) ([]NFTTransfer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return processJSON(content, addressPrefix)
	case ".csv":
		return processCSV(content, addressPrefix)
	default:
		return nil, errors.New("unsupported file format, please provide a CSV or JSON file")
	}
}

func processJSON(content []byte, addressPrefix string) ([]NFTTransfer, error) {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()

	var records []rawRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("error processing JSON file: %v", err)
	}
	return normalize(records, addressPrefix)
}

func processCSV(content []byte, addressPrefix string) ([]NFTTransfer, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error processing CSV file: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("error processing CSV file: missing header row")
	}

	// Header row maps column names to positions.
	columns := make(map[string]int)
	for i, name := range rows[0] {
		columns[strings.TrimSpace(name)] = i
	}

	var records []rawRecord
	for _, row := range rows[1:] {
		record := rawRecord{
			WalletAddress: cell(row, columns, "walletAddress"),
			Tick:          cell(row, columns, "tick"),
		}
		if id := cell(row, columns, "id"); id != "" {
			record.ID = id
		}
		if tokenID := cell(row, columns, "tokenId"); tokenID != "" {
			record.TokenID = tokenID
		}
		records = append(records, record)
	}
	return normalize(records, addressPrefix)
}

func cell(row []string, columns map[string]int, name string) string {
	index, ok := columns[name]
	if !ok || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// normalize validates every record and folds id/tokenId into ID.
func normalize(records []rawRecord, addressPrefix string) ([]NFTTransfer, error) {
	var transfers []NFTTransfer
	for index, record := range records {
		id, err := idString(record.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid ID format at index %d: %v", index, err)
		}
		if id == "" {
			if id, err = idString(record.TokenID); err != nil {
				return nil, fmt.Errorf("invalid ID format at index %d: %v", index, err)
			}
		}
		if record.WalletAddress == "" || record.Tick == "" || id == "" {
			return nil, fmt.Errorf("invalid data format at index %d: each entry must have walletAddress, tick, and either id or tokenId", index)
		}
		if !strings.HasPrefix(record.WalletAddress, addressPrefix+":") {
			return nil, fmt.Errorf("invalid kaspa address format at index %d: %s", index, record.WalletAddress)
		}
		transfers = append(transfers, NFTTransfer{
			WalletAddress: record.WalletAddress,
			Tick:          record.Tick,
			ID:            id,
		})
	}
	return transfers, nil
}

func idString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%v is neither a string nor a number", value)
	}
}
