/*
Package rpc is the boundary to the kaspa node.

It defines the Client interface the rest of the program depends on,
a production implementation backed by kaspad's rpcclient, and an
in-memory simulated implementation for tests.
*/
package rpc

import (
	"github.com/kaspanet/kaspad/domain/consensus/model/externalapi"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

// Client is what the transfer machinery needs from a kaspa node.
type Client interface {
	// NotifyUTXOsChanged subscribes to UTXO change notifications for the
	// given addresses. The handler stays registered for the lifetime of
	// the connection and receives every matching notification.
	NotifyUTXOsChanged(addresses []string, handler NotificationHandler) error

	// GetUTXOsByAddress fetches the current UTXO entries of one address.
	GetUTXOsByAddress(address string) ([]*utxo.UTXOEntry, error)

	// GetBalanceByAddress fetches the spendable balance (sompi) of one address.
	GetBalanceByAddress(address string) (uint64, error)

	// GetTransactionCountByAddress fetches the number of transactions
	// that touched the address.
	GetTransactionCountByAddress(address string) (int, error)

	// SubmitTransaction sends a signed transaction and returns its id.
	SubmitTransaction(tx *externalapi.DomainTransaction) (string, error)

	// Reconnect re-establishes the node connection after a failure.
	Reconnect() error
}
