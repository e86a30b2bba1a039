/*
Package kastxmanager drives one token transfer through the commit-reveal
inscription sequence against the kaspa ledger:

 1. select a treasury UTXO,
 2. commit funds to the P2SH address derived from the inscription
    envelope,
 3. wait for the commit to settle,
 4. reveal by spending the P2SH output with the envelope unlock script,
 5. wait for the reveal to settle and verify its acceptance.

KRC-20 transfers additionally maintain sqlite bookkeeping (pending
transfer record, wallet rebate ledger, pool ledger, payment record).
Bookkeeping failures are logged and swallowed; they never abort a
transfer that is already on the wire.
*/
package kastxmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaspanet/kaspad/domain/consensus/model/externalapi"
	"github.com/kaspanet/kaspad/domain/dagconfig"
	logger "github.com/sirupsen/logrus"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/assembler"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/envelope"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
	"github.com/Nacho-the-Kat/krc721-airdrop/kassync"
	"github.com/Nacho-the-Kat/krc721-airdrop/transferdb"
)

// ErrSubmissionFailure wraps errors from handing a transaction to the node.
var ErrSubmissionFailure = errors.New("failed to submit transaction")

type TransferManager struct {
	client     rpc.Client
	asm        *assembler.Assembler
	params     *dagconfig.Params
	dispatcher *kassync.Dispatcher
	config     Config

	// Optional bookkeeping collaborators; nil disables them.
	transfers transferdb.TransferStorage
	payments  transferdb.PaymentStorage
	balances  transferdb.BalanceStorage

	subscribed bool
}

func NewTransferManager(
	client rpc.Client,
	asm *assembler.Assembler,
	params *dagconfig.Params,
	transfers transferdb.TransferStorage,
	payments transferdb.PaymentStorage,
	balances transferdb.BalanceStorage,
	config Config,
) *TransferManager {
	if config.Marker == "" {
		config.Marker = envelope.MarkerKasplex
	}
	if config.PriorityFee == 0 {
		config.PriorityFee = FIXED_FEE
	}
	return &TransferManager{
		client:     client,
		asm:        asm,
		params:     params,
		dispatcher: kassync.NewDispatcher(),
		config:     config,
		transfers:  transfers,
		payments:   payments,
		balances:   balances,
	}
}

// TreasuryAddress returns the funding address the manager spends from.
func (m *TransferManager) TreasuryAddress() string {
	return m.asm.Address.EncodeAddress()
}

// Execute runs a single transfer to a terminal state. The returned
// Result always carries the last state reached; the error explains a
// Failed state and is nil for TimedOut and for an unaccepted reveal.
func (m *TransferManager) Execute(ctx context.Context, request *TransferRequest) (*Result, error) {
	result := &Result{State: StateInit}
	treasury := m.TreasuryAddress()

	if err := m.ensureSubscribed(treasury); err != nil {
		result.State = StateFailed
		return result, err
	}
	defer m.dispatcher.Detach()

	// Phase 1: pick the treasury UTXO funding the commit.
	entries, err := m.client.GetUTXOsByAddress(treasury)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	selected, err := utxo.FindSuitableUTXO(entries)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	trackedAmount := selected.Amount
	if len(entries) == 1 {
		// The only entry must also carry the fees of both phases.
		trackedAmount -= 3 * m.config.PriorityFee
	}
	result.State = StateUtxoSelected
	logger.WithFields(logger.Fields{
		"amount":  selected.Amount,
		"tracked": trackedAmount,
		"txId":    selected.Outpoint.TransactionID,
	}).Debug("Selected treasury UTXO")

	// Phase 2: build the inscription envelope and commit to it.
	payload, err := buildPayload(request)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	env, err := envelope.Build(m.asm.PublicKey, m.config.Marker, payload, m.params.Prefix)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.P2SHAddress = env.P2SHAddress.EncodeAddress()
	logger.WithField("address", result.P2SHAddress).Debug("Derived P2SH address")

	commitOutputs := []assembler.Output{{Address: result.P2SHAddress, Amount: COMMIT_KAS_AMOUNT}}
	commitTx, err := m.asm.MakeTransferTx(
		[]*utxo.UTXOEntry{selected}, remaining(entries, selected),
		commitOutputs, treasury, m.config.PriorityFee)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	// The id is known before submission, so the watch is in place
	// before the node can possibly notify about it.
	commitTxID := assembler.TransactionID(commitTx)
	commitWatch := kassync.NewConfirmationWatch(m.client, treasury, result.P2SHAddress,
		commitTxID, kassync.PhaseCommit, m.watchConfig(m.config.CommitTimeout))
	m.dispatcher.Attach(commitWatch)

	if _, err := m.client.SubmitTransaction(commitTx); err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("%w: commit: %v", ErrSubmissionFailure, err)
	}
	result.CommitTxID = commitTxID
	result.State = StateCommitSubmitted
	logger.WithField("txId", commitTxID).Info("Submitted P2SH commit transaction")

	if request.Protocol == ProtocolKRC20 {
		m.recordCommit(request, result)
	}

	// Phase 3: wait for the commit to settle.
	matured, err := commitWatch.Await(ctx)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	if !matured {
		if request.Protocol == ProtocolKRC20 {
			result.State = StateTimedOut
			return result, nil
		}
		// NFT transfers historically push on and let the reveal fail
		// on its own if the commit truly never landed.
		logger.Warn("Commit transaction did not mature in time, proceeding to reveal")
	} else {
		result.State = StateCommitConfirmed
	}

	// Phase 4: spend the P2SH output, presenting the envelope.
	p2shEntries, err := m.client.GetUTXOsByAddress(result.P2SHAddress)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	if len(p2shEntries) == 0 {
		result.State = StateFailed
		return result, errors.New("no UTXOs available for reveal")
	}
	if len(p2shEntries) > 1 {
		logger.WithField("address", result.P2SHAddress).Warn("More than one UTXO at the P2SH address, spending the first")
	}
	commitEntry := p2shEntries[0]

	revealTx, err := m.makeRevealTx(request, commitEntry, treasury)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	if err := m.asm.FillRevealInput(revealTx, env); err != nil {
		result.State = StateFailed
		return result, err
	}

	revealTxID := assembler.TransactionID(revealTx)
	revealWatch := kassync.NewConfirmationWatch(m.client, treasury, result.P2SHAddress,
		revealTxID, kassync.PhaseReveal, m.watchConfig(m.config.RevealTimeout))
	m.dispatcher.Attach(revealWatch)

	if _, err := m.client.SubmitTransaction(revealTx); err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("%w: reveal: %v", ErrSubmissionFailure, err)
	}
	result.RevealTxID = revealTxID
	result.State = StateRevealSubmitted
	logger.WithField("txId", revealTxID).Info("Submitted reveal transaction")

	if request.Protocol == ProtocolKRC20 && m.transfers != nil {
		if err := m.transfers.SetRevealTxID(result.P2SHAddress, revealTxID); err != nil {
			logger.WithField("err", err).Error("Failed to record reveal transaction id")
		}
	}

	// Phase 5: wait for the reveal to settle, then verify acceptance.
	matured, err = revealWatch.Await(ctx)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	if !matured {
		result.State = StateTimedOut
		return result, nil
	}
	result.State = StateRevealConfirmed

	m.verifyAcceptance(request, result, treasury)
	return result, nil
}

func (m *TransferManager) ensureSubscribed(treasury string) error {
	if m.subscribed {
		return nil
	}
	if err := kassync.Subscribe(m.client, []string{treasury}, m.dispatcher.Handle); err != nil {
		return err
	}
	m.subscribed = true
	return nil
}

func (m *TransferManager) watchConfig(deadline time.Duration) kassync.Config {
	return kassync.Config{
		Deadline:        deadline,
		PollInterval:    m.config.PollInterval,
		PollMaxAttempts: m.config.PollMaxAttempts,
	}
}

// recordCommit performs the KRC-20 bookkeeping after the commit is on
// the wire. None of these writes may abort the transfer.
func (m *TransferManager) recordCommit(request *TransferRequest, result *Result) {
	actualKas := request.KasAmount
	if request.FullRebate {
		logger.WithField("address", request.Destination).Debug("Full rebate to address")
		actualKas *= 3
	}
	if m.transfers != nil {
		err := m.transfers.InsertPendingTransfer(transferdb.PendingTransfer{
			Address:     request.Destination,
			Tick:        request.Tick,
			Amount:      request.Amount,
			KasAmount:   actualKas,
			P2SHAddress: result.P2SHAddress,
			CommitTxID:  result.CommitTxID,
		})
		if err != nil {
			logger.WithField("err", err).Error("Failed to record pending transfer")
		}
	}
	if m.balances != nil {
		if err := m.balances.Adjust(request.Destination, LEDGER_NACHO_REBATE, -actualKas); err != nil {
			logger.WithField("err", err).Errorf("Failed to adjust %s for %s", LEDGER_NACHO_REBATE, request.Destination)
		}
		// The pool gives up the full allowance regardless of rebate
		// eligibility.
		if err := m.balances.Adjust(m.TreasuryAddress(), LEDGER_POOL, -3*request.KasAmount); err != nil {
			logger.WithField("err", err).Errorf("Failed to adjust %s for the pool", LEDGER_POOL)
		}
	}
}

// makeRevealTx assembles the unsigned-input reveal. KRC-20 returns the
// whole P2SH balance to the treasury, fee carried by extra treasury
// inputs. KRC-721 pays the recipient from the P2SH output alone.
func (m *TransferManager) makeRevealTx(request *TransferRequest, commitEntry *utxo.UTXOEntry, treasury string) (*externalapi.DomainTransaction, error) {
	if request.Protocol == ProtocolKRC20 {
		treasuryEntries, err := m.client.GetUTXOsByAddress(treasury)
		if err != nil {
			return nil, err
		}
		outputs := []assembler.Output{{Address: treasury, Amount: commitEntry.Amount}}
		return m.asm.MakeTransferTx([]*utxo.UTXOEntry{commitEntry}, treasuryEntries,
			outputs, treasury, m.config.PriorityFee)
	}

	if commitEntry.Amount <= m.config.PriorityFee {
		return nil, fmt.Errorf("P2SH amount %d cannot cover the fee %d", commitEntry.Amount, m.config.PriorityFee)
	}
	outputs := []assembler.Output{{Address: request.Destination, Amount: commitEntry.Amount - m.config.PriorityFee}}
	return m.asm.MakeTransferTx([]*utxo.UTXOEntry{commitEntry}, nil,
		outputs, treasury, m.config.PriorityFee)
}

// verifyAcceptance looks for the reveal transaction id among the UTXOs
// of the address the reveal pays. Verification errors leave the transfer
// confirmed-but-unaccepted rather than failed.
func (m *TransferManager) verifyAcceptance(request *TransferRequest, result *Result, treasury string) {
	verifyAddress := treasury
	if request.Protocol == ProtocolKRC721 {
		verifyAddress = request.Destination
	}
	updated, err := m.client.GetUTXOsByAddress(verifyAddress)
	if err != nil {
		logger.WithField("err", err).Error("Error checking reveal transaction status")
		return
	}
	for _, entry := range updated {
		if entry.Outpoint.TransactionID == result.RevealTxID {
			result.Accepted = true
			break
		}
	}
	if !result.Accepted {
		logger.WithField("txId", result.RevealTxID).Info("Reveal transaction has not been accepted yet")
		return
	}

	logger.WithField("txId", result.RevealTxID).Infof("Reveal transaction has been accepted")
	result.State = StateVerified
	if request.Protocol != ProtocolKRC20 {
		return
	}
	if m.transfers != nil {
		if err := m.transfers.SetStatus(result.P2SHAddress, transferdb.FieldNachoTransferStatus, transferdb.StatusCompleted); err != nil {
			logger.WithField("err", err).Error("Failed to complete pending transfer status")
		}
	}
	if m.payments != nil {
		err := m.payments.InsertPayment(transferdb.Payment{
			Address:     request.Destination,
			Tick:        request.Tick,
			Amount:      request.Amount,
			TxID:        result.RevealTxID,
			P2SHAddress: result.P2SHAddress,
		})
		if err != nil {
			logger.WithField("err", err).Error("Failed to record payment")
		}
	}
}

func buildPayload(request *TransferRequest) (interface{}, error) {
	switch request.Protocol {
	case ProtocolKRC20:
		return envelope.NewKRC20Transfer(request.Tick, request.Amount, request.Destination), nil
	case ProtocolKRC721:
		return envelope.NewKRC721Transfer(request.Tick, request.TokenID, request.Destination), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", request.Protocol)
	}
}

// remaining filters the selected entry out by outpoint identity.
func remaining(entries []*utxo.UTXOEntry, selected *utxo.UTXOEntry) []*utxo.UTXOEntry {
	var rest []*utxo.UTXOEntry
	for _, entry := range entries {
		if entry.Outpoint == selected.Outpoint {
			continue
		}
		rest = append(rest, entry)
	}
	return rest
}
