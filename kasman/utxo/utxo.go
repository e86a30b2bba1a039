/*
This file contains filter/select operations on UTXO.
*/
package utxo

import (
	"errors"
)

// No candidate reaches the absolute minimum threshold.
// Fatal for a single transfer, non-fatal for a batch.
var ErrInsufficientFunds = errors.New("no suitable UTXO found (requires at least 1 KAS)")

// Choose one UTXO to fund a commit transaction.
// First match with amount >= 5 KAS wins; if none qualifies,
// first match with amount >= 1 KAS wins; otherwise ErrInsufficientFunds.
// Selection is a single pass and purely advisory, it does not lock funds.
// Two calls on the same entries return the same entry.
func FindSuitableUTXO(entries []*UTXOEntry) (*UTXOEntry, error) {
	if len(entries) == 0 {
		return nil, ErrInsufficientFunds
	}
	for _, entry := range entries {
		if entry.Amount >= PreferredMinUTXO {
			return entry, nil
		}
	}
	for _, entry := range entries {
		if entry.Amount >= AbsoluteMinUTXO {
			return entry, nil
		}
	}
	return nil, ErrInsufficientFunds
}

// Collect several UTXO starting from the priority entries,
// the sum to be no less than (amount + fee).
// Extra entries are appended in order only while the sum falls short.
// Error if cannot collect enough to satisfy the requriement.
func CollectEnough(priority []*UTXOEntry, extra []*UTXOEntry, amount uint64, fee uint64) ([]*UTXOEntry, error) {
	var sum uint64
	selected := make([]*UTXOEntry, 0, len(priority))
	for _, item := range priority {
		sum += item.Amount
		selected = append(selected, item)
	}
	target := amount + fee
	for _, item := range extra {
		if sum >= target {
			break
		}
		sum += item.Amount
		selected = append(selected, item)
	}
	if sum < target {
		return nil, errors.New("cannot satisfy requirement")
	}
	return selected, nil
}

// SumAmount totals the sompi value of the given entries.
func SumAmount(entries []*UTXOEntry) uint64 {
	var sum uint64
	for _, entry := range entries {
		sum += entry.Amount
	}
	return sum
}
