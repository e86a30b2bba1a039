package kassync

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kaspanet/kaspad/domain/dagconfig"
	"github.com/kaspanet/kaspad/util"
	"github.com/stretchr/testify/assert"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/envelope"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
)

const testCommitTxID = "aa00000000000000000000000000000000000000000000000000000000000000"

func fastConfig() Config {
	return Config{
		Deadline:        150 * time.Millisecond,
		PollInterval:    10 * time.Millisecond,
		PollMaxAttempts: 5,
	}
}

// testAddresses derives a treasury address and a P2SH envelope address
// the same way production code does.
func testAddresses(t *testing.T) (treasury string, p2sh string) {
	pub := bytes.Repeat([]byte{0x01}, 32)
	treasuryAddr, err := util.NewAddressPublicKey(pub, util.Bech32PrefixKaspa)
	assert.NoError(t, err)

	payload := envelope.NewKRC20Transfer("TEST", "100", treasuryAddr.EncodeAddress())
	env, err := envelope.Build(pub, envelope.MarkerKasplex, payload, util.Bech32PrefixKaspa)
	assert.NoError(t, err)

	return treasuryAddr.EncodeAddress(), env.P2SHAddress.EncodeAddress()
}

func changeNotification(address string, addedTxID string, withRemoved bool) *rpc.UTXOsChangedNotification {
	notification := &rpc.UTXOsChangedNotification{
		Added: []rpc.ChangedUTXO{{
			Address:  address,
			Outpoint: utxo.Outpoint{TransactionID: addedTxID, Index: 1},
			Amount:   utxo.SompiPerKaspa,
		}},
	}
	if withRemoved {
		notification.Removed = []rpc.ChangedUTXO{{
			Address:  address,
			Outpoint: utxo.Outpoint{TransactionID: "bb" + addedTxID[2:], Index: 0},
		}}
	}
	return notification
}

func TestWatchEventResolvesOnce(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)

	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseCommit, fastConfig())
	notification := changeNotification(treasury, testCommitTxID, true)

	watch.OnUTXOsChanged(notification)
	assert.True(t, watch.Resolved())
	assert.True(t, watch.Matured())

	// A duplicate event must not disturb the resolved outcome.
	watch.OnUTXOsChanged(notification)
	assert.True(t, watch.Matured())
}

func TestWatchIgnoresIrrelevantNotifications(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)
	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseCommit, fastConfig())

	// Added without removed: not a spend of the watched address.
	watch.OnUTXOsChanged(changeNotification(treasury, testCommitTxID, false))
	assert.False(t, watch.Resolved())

	// Different transaction id.
	watch.OnUTXOsChanged(changeNotification(treasury, "cc"+testCommitTxID[2:], true))
	assert.False(t, watch.Resolved())

	// Different address entirely.
	watch.OnUTXOsChanged(changeNotification(p2sh, testCommitTxID, true))
	assert.False(t, watch.Resolved())
}

func TestCommitWatchMaturesByPolling(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)
	err := sim.FundAddress(p2sh, 5*utxo.SompiPerKaspa)
	assert.NoError(t, err)

	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseCommit, fastConfig())
	matured, err := watch.Await(context.Background())
	assert.NoError(t, err)
	assert.True(t, matured)
}

func TestRevealWatchRequiresEvenTransactionCount(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)

	// Drained address but an odd history: the reveal is not settled yet.
	sim.SetTransactionCount(p2sh, 1)
	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseReveal, fastConfig())
	matured, err := watch.Await(context.Background())
	assert.NoError(t, err)
	assert.False(t, matured)

	sim.SetTransactionCount(p2sh, 2)
	watch = NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseReveal, fastConfig())
	matured, err = watch.Await(context.Background())
	assert.NoError(t, err)
	assert.True(t, matured)
}

func TestWatchDeadlineResolvesNotMatured(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)

	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseCommit, fastConfig())
	matured, err := watch.Await(context.Background())
	assert.NoError(t, err)
	assert.False(t, matured)
	assert.True(t, watch.Resolved())
}

func TestWatchPollErrorSurfaces(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)
	sim.SetBalanceError(errors.New("node unavailable"))

	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseCommit, fastConfig())
	matured, err := watch.Await(context.Background())
	assert.Error(t, err)
	assert.False(t, matured)
}

func TestSubscribeRetriesAfterReconnect(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, _ := testAddresses(t)
	sim.SetSubscribeError(errors.New("connection dropped"))

	dispatcher := NewDispatcher()
	err := Subscribe(sim, []string{treasury}, dispatcher.Handle)
	assert.NoError(t, err)
	assert.Equal(t, 1, sim.Reconnects())
}

func TestDispatcherRoutesToAttachedWatch(t *testing.T) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	treasury, p2sh := testAddresses(t)
	dispatcher := NewDispatcher()

	// No watch attached: must not panic.
	dispatcher.Handle(changeNotification(treasury, testCommitTxID, true))

	watch := NewConfirmationWatch(sim, treasury, p2sh, testCommitTxID, PhaseCommit, fastConfig())
	dispatcher.Attach(watch)
	dispatcher.Handle(changeNotification(treasury, testCommitTxID, true))
	assert.True(t, watch.Matured())

	dispatcher.Detach()
	dispatcher.Handle(changeNotification(treasury, testCommitTxID, true))
}
