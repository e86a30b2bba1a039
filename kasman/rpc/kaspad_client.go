package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kaspanet/kaspad/app/appmessage"
	"github.com/kaspanet/kaspad/domain/consensus/model/externalapi"
	"github.com/kaspanet/kaspad/infrastructure/network/rpcclient"
	logger "github.com/sirupsen/logrus"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

const restRequestTimeout = 10 * time.Second

type KaspadClientConfig struct {
	RPCServer   string // host:port of the kaspad gRPC server
	RESTBaseURL string // base url of the kaspa REST api (transaction counts)
}

// KaspadClient is the production Client backed by a kaspad node.
// Transaction counts come from the public REST api because the node
// rpc does not expose per-address history.
type KaspadClient struct {
	rpc         *rpcclient.RPCClient
	restBaseURL string
	httpClient  *http.Client
}

func NewKaspadClient(config *KaspadClientConfig) (*KaspadClient, error) {
	client, err := rpcclient.NewRPCClient(config.RPCServer)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kaspad at %s: %v", config.RPCServer, err)
	}
	return &KaspadClient{
		rpc:         client,
		restBaseURL: config.RESTBaseURL,
		httpClient:  &http.Client{Timeout: restRequestTimeout},
	}, nil
}

// Close shuts down the node connection.
func (c *KaspadClient) Close() {
	c.rpc.Disconnect()
}

func (c *KaspadClient) NotifyUTXOsChanged(addresses []string, handler NotificationHandler) error {
	return c.rpc.RegisterForUTXOsChangedNotifications(addresses,
		func(notification *appmessage.UTXOsChangedNotificationMessage) {
			handler(convertNotification(notification))
		})
}

func (c *KaspadClient) GetUTXOsByAddress(address string) ([]*utxo.UTXOEntry, error) {
	response, err := c.rpc.GetUTXOsByAddresses([]string{address})
	if err != nil {
		return nil, err
	}

	var entries []*utxo.UTXOEntry
	for _, entry := range response.Entries {
		converted, err := convertEntry(entry)
		if err != nil {
			logger.WithFields(logger.Fields{
				"address": entry.Address,
				"err":     err,
			}).Warn("Skipping malformed UTXO entry from node")
			continue
		}
		entries = append(entries, converted)
	}
	return entries, nil
}

func (c *KaspadClient) GetBalanceByAddress(address string) (uint64, error) {
	response, err := c.rpc.GetBalanceByAddress(address)
	if err != nil {
		return 0, err
	}
	return response.Balance, nil
}

// GetTransactionCountByAddress queries the REST api for the total number
// of transactions that touched the address.
func (c *KaspadClient) GetTransactionCountByAddress(address string) (int, error) {
	url := fmt.Sprintf("%s/addresses/%s/transactions-count", c.restBaseURL, address)
	response, err := c.httpClient.Get(url)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("transaction count request returned status %d", response.StatusCode)
	}

	var body struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Total, nil
}

func (c *KaspadClient) SubmitTransaction(tx *externalapi.DomainTransaction) (string, error) {
	rpcTransaction := appmessage.DomainTransactionToRPCTransaction(tx)
	response, err := c.rpc.SubmitTransaction(rpcTransaction, true)
	if err != nil {
		return "", err
	}
	return response.TransactionID, nil
}

func (c *KaspadClient) Reconnect() error {
	return c.rpc.Reconnect()
}

// convertNotification maps the node's wire notification into the typed
// structure the core consumes. Entries without an outpoint are dropped.
func convertNotification(notification *appmessage.UTXOsChangedNotificationMessage) *UTXOsChangedNotification {
	converted := &UTXOsChangedNotification{}
	for _, entry := range notification.Added {
		if changed, ok := convertChanged(entry); ok {
			converted.Added = append(converted.Added, changed)
		}
	}
	for _, entry := range notification.Removed {
		if changed, ok := convertChanged(entry); ok {
			converted.Removed = append(converted.Removed, changed)
		}
	}
	return converted
}

func convertChanged(entry *appmessage.UTXOsByAddressesEntry) (ChangedUTXO, bool) {
	if entry.Outpoint == nil {
		return ChangedUTXO{}, false
	}
	changed := ChangedUTXO{
		Address: entry.Address,
		Outpoint: utxo.Outpoint{
			TransactionID: entry.Outpoint.TransactionID,
			Index:         entry.Outpoint.Index,
		},
	}
	if entry.UTXOEntry != nil {
		changed.Amount = entry.UTXOEntry.Amount
	}
	return changed, true
}

func convertEntry(entry *appmessage.UTXOsByAddressesEntry) (*utxo.UTXOEntry, error) {
	if entry.Outpoint == nil || entry.UTXOEntry == nil {
		return nil, fmt.Errorf("entry missing outpoint or utxo data")
	}
	script, err := hex.DecodeString(entry.UTXOEntry.ScriptPublicKey.Script)
	if err != nil {
		return nil, fmt.Errorf("bad script hex: %v", err)
	}
	return &utxo.UTXOEntry{
		Outpoint: utxo.Outpoint{
			TransactionID: entry.Outpoint.TransactionID,
			Index:         entry.Outpoint.Index,
		},
		Address:         entry.Address,
		Amount:          entry.UTXOEntry.Amount,
		ScriptPublicKey: script,
		ScriptVersion:   entry.UTXOEntry.ScriptPublicKey.Version,
		BlockDAAScore:   entry.UTXOEntry.BlockDAAScore,
		IsCoinbase:      entry.UTXOEntry.IsCoinbase,
	}, nil
}
