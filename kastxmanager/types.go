package kastxmanager

import (
	"time"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/envelope"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

const (
	// FIXED_FEE is the flat priority fee attached to every transaction,
	// 0.0001 KAS in sompi.
	FIXED_FEE = uint64(10_000)

	// COMMIT_KAS_AMOUNT is what the commit transaction locks into the
	// P2SH output.
	COMMIT_KAS_AMOUNT = utxo.PreferredMinUTXO

	// Wallet ledger names maintained by the KRC-20 bookkeeping.
	LEDGER_NACHO_REBATE = "nacho_rebate_kas"
	LEDGER_POOL         = "balance"
)

// Protocol selects the inscription payload shape.
type Protocol string

const (
	ProtocolKRC20  Protocol = "krc-20"
	ProtocolKRC721 Protocol = "krc-721"
)

// TransferState tracks a transfer through the commit-reveal sequence.
// TimedOut and Failed are absorbing; a transfer never moves backwards.
type TransferState int

const (
	StateInit TransferState = iota
	StateUtxoSelected
	StateCommitSubmitted
	StateCommitConfirmed
	StateRevealSubmitted
	StateRevealConfirmed
	StateVerified
	StateTimedOut
	StateFailed
)

func (s TransferState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateUtxoSelected:
		return "UtxoSelected"
	case StateCommitSubmitted:
		return "CommitSubmitted"
	case StateCommitConfirmed:
		return "CommitConfirmed"
	case StateRevealSubmitted:
		return "RevealSubmitted"
	case StateRevealConfirmed:
		return "RevealConfirmed"
	case StateVerified:
		return "Verified"
	case StateTimedOut:
		return "TimedOut"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TransferRequest describes one token transfer to inscribe.
type TransferRequest struct {
	Protocol    Protocol
	Tick        string
	Amount      string // token units, KRC-20 only
	TokenID     string // KRC-721 only
	Destination string

	// KasAmount is the sompi figure fed to the wallet ledgers. It does
	// not change what the commit locks up.
	KasAmount int64
	// FullRebate triples the rebate credited back to the destination.
	FullRebate bool
}

// Config are the scalar settings of the transfer manager.
type Config struct {
	PriorityFee     uint64
	Marker          string // inscription envelope marker
	CommitTimeout   time.Duration
	RevealTimeout   time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		PriorityFee:     FIXED_FEE,
		Marker:          envelope.MarkerKasplex,
		CommitTimeout:   3 * time.Minute,
		RevealTimeout:   3 * time.Minute,
		PollInterval:    60 * time.Second,
		PollMaxAttempts: 30,
	}
}

// Result is the terminal report of one transfer attempt.
type Result struct {
	State       TransferState
	P2SHAddress string
	CommitTxID  string
	RevealTxID  string
	// Accepted is set once the reveal transaction id was found among
	// the verification address UTXOs. A confirmed but not yet accepted
	// reveal is reported as pending, not as an error.
	Accepted bool
}
