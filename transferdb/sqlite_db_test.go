package transferdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tempDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "airdrop_test.db")
}

func TestTransferStorageRoundTrip(t *testing.T) {
	storage, err := NewSQLiteTransferStorage(tempDBPath(t))
	assert.NoError(t, err)

	transfer := PendingTransfer{
		Address:     "kaspa:qdest",
		Tick:        "NACHO",
		Amount:      "250",
		KasAmount:   500_000_000,
		P2SHAddress: "kaspa:p2sh",
		CommitTxID:  "aa11",
		CreatedAt:   1700000000,
	}
	assert.NoError(t, storage.InsertPendingTransfer(transfer))

	got, err := storage.QueryByAddress("kaspa:qdest")
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "NACHO", got[0].Tick)
	assert.Equal(t, "250", got[0].Amount)
	assert.Equal(t, int64(500_000_000), got[0].KasAmount)
	assert.Equal(t, StatusPending, got[0].Status)

	got, err = storage.QueryByP2SH("kaspa:p2sh")
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "aa11", got[0].CommitTxID)

	got, err = storage.QueryByP2SH("kaspa:p2sh-other")
	assert.NoError(t, err)
	assert.Len(t, got, 0)
}

func TestTransferStorageStatusColumns(t *testing.T) {
	storage, err := NewSQLiteTransferStorage(tempDBPath(t))
	assert.NoError(t, err)

	assert.NoError(t, storage.InsertPendingTransfer(PendingTransfer{
		Address: "kaspa:qdest", Tick: "NACHO", Amount: "1",
		P2SHAddress: "kaspa:p2sh", CreatedAt: 1,
	}))

	// Completing the nacho stream must leave the main stream pending.
	assert.NoError(t, storage.SetStatus("kaspa:p2sh", FieldNachoTransferStatus, StatusCompleted))
	got, err := storage.QueryByStatus(StatusPending)
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	assert.NoError(t, storage.SetStatus("kaspa:p2sh", FieldTransferStatus, StatusCompleted))
	got, err = storage.QueryByStatus(StatusPending)
	assert.NoError(t, err)
	assert.Len(t, got, 0)

	got, err = storage.QueryByStatus(StatusCompleted)
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	err = storage.SetStatus("kaspa:p2sh", StatusField("bogus_column"), StatusFailed)
	assert.Error(t, err)
}

func TestTransferStorageSetRevealTxID(t *testing.T) {
	storage, err := NewSQLiteTransferStorage(tempDBPath(t))
	assert.NoError(t, err)

	assert.NoError(t, storage.InsertPendingTransfer(PendingTransfer{
		Address: "kaspa:qdest", Tick: "NACHO", Amount: "1",
		P2SHAddress: "kaspa:p2sh", CreatedAt: 1,
	}))
	assert.NoError(t, storage.SetRevealTxID("kaspa:p2sh", "bb22"))

	got, err := storage.QueryByAddress("kaspa:qdest")
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "bb22", got[0].RevealTxID)
}

func TestPaymentStorageRoundTrip(t *testing.T) {
	storage, err := NewSQLitePaymentStorage(tempDBPath(t))
	assert.NoError(t, err)

	assert.NoError(t, storage.InsertPayment(Payment{
		Address: "kaspa:qdest", Tick: "KATNIP", Amount: "1", TxID: "cc33",
		P2SHAddress: "kaspa:p2sh", Timestamp: 1700000001,
	}))

	got, err := storage.QueryByAddress("kaspa:qdest")
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "cc33", got[0].TxID)
	assert.Equal(t, "kaspa:p2sh", got[0].P2SHAddress)
	assert.Equal(t, int64(1700000001), got[0].Timestamp)

	got, err = storage.QueryByAddress("kaspa:qother")
	assert.NoError(t, err)
	assert.Len(t, got, 0)
}

func TestBalanceStorageAdjust(t *testing.T) {
	storage, err := NewSQLiteBalanceStorage(tempDBPath(t))
	assert.NoError(t, err)

	// Absent ledger reads as zero.
	amount, err := storage.Get("kaspa:qdest", "nacho_rebate_kas")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), amount)

	assert.NoError(t, storage.Adjust("kaspa:qdest", "nacho_rebate_kas", 500_000_000))
	assert.NoError(t, storage.Adjust("kaspa:qdest", "nacho_rebate_kas", -30_000))

	amount, err = storage.Get("kaspa:qdest", "nacho_rebate_kas")
	assert.NoError(t, err)
	assert.Equal(t, int64(499_970_000), amount)

	// Ledgers are scoped per wallet and per name.
	assert.NoError(t, storage.Adjust("kaspa:qtreasury", "balance", -100))
	amount, err = storage.Get("kaspa:qtreasury", "balance")
	assert.NoError(t, err)
	assert.Equal(t, int64(-100), amount)

	amount, err = storage.Get("kaspa:qdest", "balance")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), amount)
}
