package transferdb

// Status of a recorded transfer or payment row.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// StatusField names the status column a bookkeeping update targets. A
// transfer row carries one column per reward stream, so the stream that
// triggered the transfer decides which column flips.
type StatusField string

const (
	FieldTransferStatus      StatusField = "transfer_status"
	FieldNachoTransferStatus StatusField = "nacho_transfer_status"
)

// PendingTransfer is one token transfer recorded before its commit
// transaction is submitted. Amount is the human-readable token amount
// exactly as inscribed, so no precision is lost round-tripping it.
type PendingTransfer struct {
	Address     string // destination wallet
	Tick        string
	Amount      string
	KasAmount   int64 // sompi credited back to the wallet ledgers
	P2SHAddress string
	CommitTxID  string
	RevealTxID  string
	Status      Status
	CreatedAt   int64 // unix seconds
}

// Payment is one completed payout, written only after the reveal
// transaction was verified as accepted.
type Payment struct {
	Address     string
	Tick        string
	Amount      string
	TxID        string // reveal transaction id
	P2SHAddress string // links the payout back to its transfer row
	Timestamp   int64  // unix seconds
}

// TransferStorage persists pending transfers and their status columns.
type TransferStorage interface {
	// InsertPendingTransfer records a transfer about to be committed.
	InsertPendingTransfer(transfer PendingTransfer) error

	// SetStatus flips the given status column for the pending rows of
	// a P2SH address. The P2SH address identifies the transfer since
	// it is unique per inscription payload.
	SetStatus(p2shAddress string, field StatusField, status Status) error

	// SetRevealTxID attaches the reveal transaction id to the pending
	// rows of a P2SH address.
	SetRevealTxID(p2shAddress string, txID string) error

	// QueryByAddress retrieves all transfers recorded for an address.
	QueryByAddress(address string) ([]PendingTransfer, error)

	// QueryByP2SH retrieves the transfers recorded under a P2SH address.
	QueryByP2SH(p2shAddress string) ([]PendingTransfer, error)

	// QueryByStatus retrieves all transfers currently in the given status.
	QueryByStatus(status Status) ([]PendingTransfer, error)
}

// PaymentStorage persists verified payouts.
type PaymentStorage interface {
	InsertPayment(payment Payment) error
	QueryByAddress(address string) ([]Payment, error)
}

// BalanceStorage is a per-wallet named-ledger store for sompi-denominated
// running totals, e.g. the rebate balance drawn down by each transfer.
type BalanceStorage interface {
	// Adjust adds delta (possibly negative) to the wallet's named
	// ledger, creating it at zero first if absent.
	Adjust(wallet string, ledger string, delta int64) error

	// Get returns the current ledger value, zero when absent.
	Get(wallet string, ledger string) (int64, error)
}
