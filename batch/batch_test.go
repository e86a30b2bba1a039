package batch

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/kaspanet/kaspad/domain/dagconfig"
	"github.com/kaspanet/kaspad/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nacho-the-Kat/krc721-airdrop/inputfile"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/assembler"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
	"github.com/Nacho-the-Kat/krc721-airdrop/kastxmanager"
)

const testPrivKeyHex = "0101010101010101010101010101010101010101010101010101010101010101"

func newBatchFixture(t *testing.T) (*rpc.SimulatedClient, *Runner) {
	sim := rpc.NewSimulatedClient(&dagconfig.MainnetParams)
	asm, err := assembler.NewAssembler(testPrivKeyHex, &dagconfig.MainnetParams)
	require.NoError(t, err)
	manager := kastxmanager.NewTransferManager(sim, asm, &dagconfig.MainnetParams,
		nil, nil, nil, kastxmanager.Config{
			PriorityFee:     kastxmanager.FIXED_FEE,
			CommitTimeout:   2 * time.Second,
			RevealTimeout:   2 * time.Second,
			PollInterval:    20 * time.Millisecond,
			PollMaxAttempts: 5,
		})
	return sim, NewRunner(manager, time.Millisecond)
}

func recipient(t *testing.T, fill byte) string {
	pub := bytes.Repeat([]byte{fill}, 32)
	addr, err := util.NewAddressPublicKey(pub, util.Bech32PrefixKaspa)
	require.NoError(t, err)
	return addr.EncodeAddress()
}

func treasuryOf(r *Runner) string {
	return r.manager.TreasuryAddress()
}

func TestRunProcessesAllTransfers(t *testing.T) {
	sim, runner := newBatchFixture(t)
	require.NoError(t, sim.FundAddress(treasuryOf(runner), 12*utxo.SompiPerKaspa))

	transfers := []inputfile.NFTTransfer{
		{WalletAddress: recipient(t, 0x02), Tick: "KATNIP", ID: "1"},
		{WalletAddress: recipient(t, 0x03), Tick: "KATNIP", ID: "2"},
	}
	require.NoError(t, runner.Run(context.Background(), transfers))

	progress := runner.Snapshot()
	assert.Equal(t, 2, progress.Total)
	assert.Equal(t, 2, progress.Completed)
	assert.Equal(t, 0, progress.Failed)
	assert.True(t, progress.Done)
	assert.NotEmpty(t, progress.RunID)
	assert.Len(t, sim.SubmittedIDs(), 4) // commit + reveal per NFT
}

func TestRunContinuesPastItemFailure(t *testing.T) {
	_, runner := newBatchFixture(t)
	// No treasury funding at all: every item fails at UTXO selection.
	transfers := []inputfile.NFTTransfer{
		{WalletAddress: recipient(t, 0x02), Tick: "KATNIP", ID: "1"},
		{WalletAddress: recipient(t, 0x03), Tick: "KATNIP", ID: "2"},
	}
	require.NoError(t, runner.Run(context.Background(), transfers))

	progress := runner.Snapshot()
	assert.Equal(t, 0, progress.Completed)
	assert.Equal(t, 2, progress.Failed)
	assert.True(t, progress.Done)
}

func TestRunHonorsCancellation(t *testing.T) {
	_, runner := newBatchFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transfers := []inputfile.NFTTransfer{
		{WalletAddress: recipient(t, 0x02), Tick: "KATNIP", ID: "1"},
		{WalletAddress: recipient(t, 0x03), Tick: "KATNIP", ID: "2"},
	}
	err := runner.Run(ctx, transfers)
	assert.ErrorIs(t, err, context.Canceled)
}
