package rpc

import (
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

// ChangedUTXO is one added or removed ledger entry inside a
// utxos-changed notification, already validated and typed at the
// client boundary. The core never inspects the node's wire shape.
type ChangedUTXO struct {
	Address  string
	Outpoint utxo.Outpoint
	Amount   uint64
}

// UTXOsChangedNotification reports the UTXO delta of one ledger event
// for the subscribed addresses.
type UTXOsChangedNotification struct {
	Added   []ChangedUTXO
	Removed []ChangedUTXO
}

// NotificationHandler receives utxos-changed notifications.
// Handlers must tolerate notifications irrelevant to them.
type NotificationHandler func(notification *UTXOsChangedNotification)

// AddedForAddress returns the added entries belonging to the given address.
func (n *UTXOsChangedNotification) AddedForAddress(address string) []ChangedUTXO {
	var matched []ChangedUTXO
	for _, changed := range n.Added {
		if changed.Address == address {
			matched = append(matched, changed)
		}
	}
	return matched
}

// RemovedForAddress returns the removed entries belonging to the given address.
func (n *UTXOsChangedNotification) RemovedForAddress(address string) []ChangedUTXO {
	var matched []ChangedUTXO
	for _, changed := range n.Removed {
		if changed.Address == address {
			matched = append(matched, changed)
		}
	}
	return matched
}
