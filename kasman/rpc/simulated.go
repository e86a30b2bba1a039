package rpc

/*
SimulatedClient is an in-memory kaspa ledger used by tests.

It keeps UTXO sets per address, applies submitted transactions to them
(spending inputs, crediting outputs) and pushes utxos-changed
notifications to registered handlers, so the commit/reveal machinery can
be exercised end-to-end without a node.
*/

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kaspanet/kaspad/domain/consensus/model/externalapi"
	"github.com/kaspanet/kaspad/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/kaspad/domain/consensus/utils/txscript"
	"github.com/kaspanet/kaspad/domain/dagconfig"
	"github.com/kaspanet/kaspad/util"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

type SimulatedClient struct {
	params *dagconfig.Params

	mu             sync.Mutex
	entries        map[string][]*utxo.UTXOEntry // address -> live UTXO set
	txCounts       map[string]int               // address -> touching tx count
	handlers       []NotificationHandler
	submitted      []*externalapi.DomainTransaction
	submittedIDs   []string
	fundingCounter uint64

	applyOnSubmit bool // when false, submits are accepted but never settle
	subscribeErr  error
	submitErr     error
	balanceErr    error
	reconnects    int
}

func NewSimulatedClient(params *dagconfig.Params) *SimulatedClient {
	return &SimulatedClient{
		params:        params,
		entries:       make(map[string][]*utxo.UTXOEntry),
		txCounts:      make(map[string]int),
		applyOnSubmit: true,
	}
}

// FundAddress credits the address with one fresh UTXO of the given amount.
func (s *SimulatedClient) FundAddress(address string, amount uint64) error {
	script, version, err := s.scriptForAddress(address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundingCounter++
	s.entries[address] = append(s.entries[address], &utxo.UTXOEntry{
		Outpoint: utxo.Outpoint{
			TransactionID: fmt.Sprintf("%064x", s.fundingCounter),
			Index:         0,
		},
		Address:         address,
		Amount:          amount,
		ScriptPublicKey: script,
		ScriptVersion:   version,
	})
	return nil
}

// SetApplyOnSubmit controls whether submitted transactions settle.
// Disabling it simulates a transaction that never matures.
func (s *SimulatedClient) SetApplyOnSubmit(apply bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyOnSubmit = apply
}

// SetSubscribeError makes the next NotifyUTXOsChanged call fail.
// Reconnect clears it.
func (s *SimulatedClient) SetSubscribeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeErr = err
}

func (s *SimulatedClient) SetSubmitError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitErr = err
}

func (s *SimulatedClient) SetBalanceError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balanceErr = err
}

// SetTransactionCount overrides the touching-transaction count of an
// address, e.g. to simulate a history the ledger was not driven through.
func (s *SimulatedClient) SetTransactionCount(address string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCounts[address] = count
}

// Submitted returns the transactions accepted so far, in order.
func (s *SimulatedClient) Submitted() []*externalapi.DomainTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*externalapi.DomainTransaction{}, s.submitted...)
}

// SubmittedIDs returns the transaction ids accepted so far, in order.
func (s *SimulatedClient) SubmittedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.submittedIDs...)
}

// Reconnects reports how many times Reconnect was called.
func (s *SimulatedClient) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func (s *SimulatedClient) NotifyUTXOsChanged(addresses []string, handler NotificationHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.handlers = append(s.handlers, handler)
	return nil
}

func (s *SimulatedClient) GetUTXOsByAddress(address string) ([]*utxo.UTXOEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*utxo.UTXOEntry{}, s.entries[address]...), nil
}

func (s *SimulatedClient) GetBalanceByAddress(address string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balanceErr != nil {
		return 0, s.balanceErr
	}
	return utxo.SumAmount(s.entries[address]), nil
}

func (s *SimulatedClient) GetTransactionCountByAddress(address string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCounts[address], nil
}

func (s *SimulatedClient) SubmitTransaction(tx *externalapi.DomainTransaction) (string, error) {
	s.mu.Lock()
	if s.submitErr != nil {
		err := s.submitErr
		s.mu.Unlock()
		return "", err
	}

	txID := consensushashing.TransactionID(tx).String()
	s.submitted = append(s.submitted, tx)
	s.submittedIDs = append(s.submittedIDs, txID)

	if !s.applyOnSubmit {
		s.mu.Unlock()
		return txID, nil
	}

	notification, handlers := s.applyLocked(tx, txID)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(notification)
	}
	return txID, nil
}

func (s *SimulatedClient) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.subscribeErr = nil
	return nil
}

// applyLocked settles the transaction against the in-memory UTXO sets and
// builds the matching notification. Caller holds the lock.
func (s *SimulatedClient) applyLocked(tx *externalapi.DomainTransaction, txID string) (*UTXOsChangedNotification, []NotificationHandler) {
	notification := &UTXOsChangedNotification{}
	touched := make(map[string]bool)

	// spend inputs
	for _, input := range tx.Inputs {
		spentTxID := input.PreviousOutpoint.TransactionID.String()
		spentIndex := input.PreviousOutpoint.Index
		for address, addressEntries := range s.entries {
			for i, entry := range addressEntries {
				if entry.Outpoint.TransactionID == spentTxID && entry.Outpoint.Index == spentIndex {
					s.entries[address] = append(addressEntries[:i], addressEntries[i+1:]...)
					touched[address] = true
					notification.Removed = append(notification.Removed, ChangedUTXO{
						Address:  address,
						Outpoint: entry.Outpoint,
						Amount:   entry.Amount,
					})
					break
				}
			}
		}
	}

	// credit outputs
	for index, output := range tx.Outputs {
		_, address, err := txscript.ExtractScriptPubKeyAddress(output.ScriptPublicKey, s.params)
		if err != nil || address == nil {
			continue
		}
		encoded := address.EncodeAddress()
		outpoint := utxo.Outpoint{TransactionID: txID, Index: uint32(index)}
		s.entries[encoded] = append(s.entries[encoded], &utxo.UTXOEntry{
			Outpoint:        outpoint,
			Address:         encoded,
			Amount:          output.Value,
			ScriptPublicKey: output.ScriptPublicKey.Script,
			ScriptVersion:   output.ScriptPublicKey.Version,
		})
		touched[encoded] = true
		notification.Added = append(notification.Added, ChangedUTXO{
			Address:  encoded,
			Outpoint: outpoint,
			Amount:   output.Value,
		})
	}

	for address := range touched {
		s.txCounts[address]++
	}

	return notification, append([]NotificationHandler{}, s.handlers...)
}

func (s *SimulatedClient) scriptForAddress(address string) ([]byte, uint16, error) {
	decoded, err := util.DecodeAddress(address, s.params.Prefix)
	if err != nil {
		return nil, 0, err
	}
	scriptPublicKey, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, 0, err
	}
	return scriptPublicKey.Script, scriptPublicKey.Version, nil
}

var _ Client = (*SimulatedClient)(nil)

// ErrSimulatedUnavailable is handy for injecting transport failures in tests.
var ErrSimulatedUnavailable = errors.New("simulated node unavailable")
