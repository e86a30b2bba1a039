package transferdb

/*
SQLiteTransferStorage is an implementation of TransferStorage using SQLite.

Table is airdrop_transfer
*/

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteTransferStorage struct {
	db *sql.DB
}

func NewSQLiteTransferStorage(dbPath string) (*SQLiteTransferStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	storage := &SQLiteTransferStorage{db: db}
	if err := storage.init(); err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *SQLiteTransferStorage) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS airdrop_transfer (
		Address TEXT,
		Tick TEXT,
		Amount TEXT,
		KasAmount INTEGER DEFAULT 0,
		P2SHAddress TEXT,
		CommitTxID TEXT,
		RevealTxID TEXT,
		TransferStatus TEXT DEFAULT 'PENDING',
		NachoTransferStatus TEXT DEFAULT 'PENDING',
		CreatedAt INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_transfer_address ON airdrop_transfer (Address);
	`
	_, err := s.db.Exec(query)
	return err
}

// statusColumn maps a StatusField onto its column. The whitelist keeps
// field names out of the query text.
func statusColumn(field StatusField) (string, error) {
	switch field {
	case FieldTransferStatus:
		return "TransferStatus", nil
	case FieldNachoTransferStatus:
		return "NachoTransferStatus", nil
	default:
		return "", fmt.Errorf("unknown status field %q", field)
	}
}

func (s *SQLiteTransferStorage) InsertPendingTransfer(transfer PendingTransfer) error {
	createdAt := transfer.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	query := `INSERT INTO airdrop_transfer (Address, Tick, Amount, KasAmount, P2SHAddress, CommitTxID, RevealTxID, TransferStatus, NachoTransferStatus, CreatedAt)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, transfer.Address, transfer.Tick, transfer.Amount,
		transfer.KasAmount, transfer.P2SHAddress, transfer.CommitTxID, transfer.RevealTxID,
		string(StatusPending), string(StatusPending), createdAt)
	return err
}

func (s *SQLiteTransferStorage) SetStatus(p2shAddress string, field StatusField, status Status) error {
	column, err := statusColumn(field)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE airdrop_transfer SET %s = ? WHERE P2SHAddress = ? AND %s = ?`, column, column)
	_, err = s.db.Exec(query, string(status), p2shAddress, string(StatusPending))
	return err
}

func (s *SQLiteTransferStorage) SetRevealTxID(p2shAddress string, txID string) error {
	query := `UPDATE airdrop_transfer SET RevealTxID = ? WHERE P2SHAddress = ? AND TransferStatus = ?`
	_, err := s.db.Exec(query, txID, p2shAddress, string(StatusPending))
	return err
}

func (s *SQLiteTransferStorage) QueryByAddress(address string) ([]PendingTransfer, error) {
	query := `SELECT Address, Tick, Amount, KasAmount, P2SHAddress, CommitTxID, RevealTxID, TransferStatus, CreatedAt
	FROM airdrop_transfer WHERE Address = ?`
	rows, err := s.db.Query(query, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransfers(rows)
}

func (s *SQLiteTransferStorage) QueryByP2SH(p2shAddress string) ([]PendingTransfer, error) {
	query := `SELECT Address, Tick, Amount, KasAmount, P2SHAddress, CommitTxID, RevealTxID, TransferStatus, CreatedAt
	FROM airdrop_transfer WHERE P2SHAddress = ?`
	rows, err := s.db.Query(query, p2shAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransfers(rows)
}

func (s *SQLiteTransferStorage) QueryByStatus(status Status) ([]PendingTransfer, error) {
	query := `SELECT Address, Tick, Amount, KasAmount, P2SHAddress, CommitTxID, RevealTxID, TransferStatus, CreatedAt
	FROM airdrop_transfer WHERE TransferStatus = ?`
	rows, err := s.db.Query(query, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransfers(rows)
}

func scanTransfers(rows *sql.Rows) ([]PendingTransfer, error) {
	var transfers []PendingTransfer
	for rows.Next() {
		var t PendingTransfer
		var status string
		err := rows.Scan(&t.Address, &t.Tick, &t.Amount, &t.KasAmount, &t.P2SHAddress,
			&t.CommitTxID, &t.RevealTxID, &status, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		t.Status = Status(status)
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
