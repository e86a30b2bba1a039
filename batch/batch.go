/*
Package batch runs a list of NFT transfers sequentially through the
transfer manager. Per-item failures are logged and skipped so one bad
recipient cannot sink the rest of the run.
*/
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/Nacho-the-Kat/krc721-airdrop/inputfile"
	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/utxo"
	"github.com/Nacho-the-Kat/krc721-airdrop/kastxmanager"
)

// TRANSFER_DELAY is the pause between consecutive transfers, giving the
// treasury change time to land before the next UTXO selection.
const TRANSFER_DELAY = 10 * time.Second

// Progress is a point-in-time snapshot of a batch run.
type Progress struct {
	RunID     string `json:"runId"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Current   string `json:"current"`
	Done      bool   `json:"done"`
}

type Runner struct {
	manager *kastxmanager.TransferManager
	delay   time.Duration

	mu       sync.Mutex
	progress Progress
}

// NewRunner wires a batch runner onto a transfer manager. A zero delay
// selects TRANSFER_DELAY.
func NewRunner(manager *kastxmanager.TransferManager, delay time.Duration) *Runner {
	if delay == 0 {
		delay = TRANSFER_DELAY
	}
	return &Runner{manager: manager, delay: delay}
}

// Snapshot returns a copy of the current progress for reporting.
func (r *Runner) Snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Run processes the transfers in order. The returned error is non-nil
// only when the context is cancelled; item failures are reflected in
// the progress counters.
func (r *Runner) Run(ctx context.Context, transfers []inputfile.NFTTransfer) error {
	runID := uuid.New().String()
	r.mu.Lock()
	r.progress = Progress{RunID: runID, Total: len(transfers)}
	r.mu.Unlock()

	perTransfer := kastxmanager.COMMIT_KAS_AMOUNT + kastxmanager.FIXED_FEE
	required := perTransfer * uint64(len(transfers))
	logger.WithField("runId", runID).Infof("Required funds: %.8f KAS (%.8f KAS per transfer)",
		float64(required)/float64(utxo.SompiPerKaspa),
		float64(perTransfer)/float64(utxo.SompiPerKaspa))

	for i, transfer := range transfers {
		r.setCurrent(transfer.Tick + ":" + transfer.ID)
		logger.WithFields(logger.Fields{
			"runId": runID,
			"item":  i + 1,
			"total": len(transfers),
		}).Infof("Processing transfer of NFT %s:%s to %s", transfer.Tick, transfer.ID, transfer.WalletAddress)

		result, err := r.manager.Execute(ctx, &kastxmanager.TransferRequest{
			Protocol:    kastxmanager.ProtocolKRC721,
			Tick:        transfer.Tick,
			TokenID:     transfer.ID,
			Destination: transfer.WalletAddress,
		})
		if err != nil || !completed(result.State) {
			logger.WithFields(logger.Fields{
				"state": result.State.String(),
				"err":   err,
			}).Errorf("Failed to transfer NFT %s:%s to %s", transfer.Tick, transfer.ID, transfer.WalletAddress)
			r.count(false)
		} else {
			r.count(true)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if i < len(transfers)-1 {
			logger.Infof("Waiting %s before processing next transfer", r.delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}
	}

	r.mu.Lock()
	r.progress.Current = ""
	r.progress.Done = true
	r.mu.Unlock()
	return nil
}

func completed(state kastxmanager.TransferState) bool {
	return state == kastxmanager.StateVerified || state == kastxmanager.StateRevealConfirmed
}

func (r *Runner) setCurrent(current string) {
	r.mu.Lock()
	r.progress.Current = current
	r.mu.Unlock()
}

func (r *Runner) count(success bool) {
	r.mu.Lock()
	if success {
		r.progress.Completed++
	} else {
		r.progress.Failed++
	}
	r.mu.Unlock()
}
