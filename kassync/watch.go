/*
Package kassync resolves "has transaction X settled at address Y" against
the kaspa node, reconciling two independent signals:

 1. utxos-changed notifications pushed by the node.
 2. a bounded balance poll on the P2SH address.

Whichever signal fires first resolves the watch; the other one observes
the resolution and stops. A deadline resolves the watch as not matured,
which is an outcome, not an error.
*/
package kassync

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
)

// Phase selects the maturation rule of a watch.
type Phase int

const (
	// PhaseCommit matures when the P2SH address holds a balance.
	PhaseCommit Phase = iota
	// PhaseReveal matures when the P2SH address is drained and its
	// transaction count is even (commit in, reveal out).
	PhaseReveal
)

func (p Phase) String() string {
	if p == PhaseReveal {
		return "reveal"
	}
	return "commit"
}

// Config are the plain scalar settings of one watch.
type Config struct {
	Deadline        time.Duration // overall wall-clock timeout
	PollInterval    time.Duration
	PollMaxAttempts int
}

// DefaultConfig mirrors the documented defaults: 3 minute deadline,
// 60 second poll interval, 30 attempts.
func DefaultConfig() Config {
	return Config{
		Deadline:        3 * time.Minute,
		PollInterval:    60 * time.Second,
		PollMaxAttempts: 30,
	}
}

// ConfirmationWatch tracks one submitted transaction until it is observed
// as settled or the deadline passes. A watch is never shared across
// transfers; relevance is decided by the (event address, transaction id)
// pair so stale notifications for reused addresses cannot cross-talk.
type ConfirmationWatch struct {
	client       rpc.Client
	eventAddress string // address whose change notifications identify the tx (treasury)
	pollAddress  string // address whose balance is polled (the P2SH address)
	expectedTxID string
	phase        Phase
	config       Config

	resolveOnce sync.Once
	resolved    chan struct{}
	matured     bool
	err         error
}

func NewConfirmationWatch(client rpc.Client, eventAddress string, pollAddress string, expectedTxID string, phase Phase, config Config) *ConfirmationWatch {
	if config.Deadline == 0 {
		config.Deadline = DefaultConfig().Deadline
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.PollMaxAttempts == 0 {
		config.PollMaxAttempts = DefaultConfig().PollMaxAttempts
	}
	return &ConfirmationWatch{
		client:       client,
		eventAddress: eventAddress,
		pollAddress:  pollAddress,
		expectedTxID: expectedTxID,
		phase:        phase,
		config:       config,
		resolved:     make(chan struct{}),
	}
}

// OnUTXOsChanged is the event-signal entry point. A notification is
// relevant only if a removed and an added entry both belong to the event
// address and the added entry originates from the expected transaction.
// Duplicate or irrelevant notifications are ignored, not errors.
func (w *ConfirmationWatch) OnUTXOsChanged(notification *rpc.UTXOsChangedNotification) {
	if w.Resolved() {
		return
	}
	removed := notification.RemovedForAddress(w.eventAddress)
	added := notification.AddedForAddress(w.eventAddress)
	if len(removed) == 0 || len(added) == 0 {
		logger.WithField("address", w.eventAddress).Debug("No matching removed UTXO in this change event")
		return
	}
	for _, entry := range added {
		if entry.Outpoint.TransactionID == w.expectedTxID {
			logger.WithFields(logger.Fields{
				"address": w.eventAddress,
				"txId":    w.expectedTxID,
				"phase":   w.phase.String(),
			}).Debug("Maturity event received")
			w.resolve(true, nil)
			return
		}
	}
}

// Await drives the poll signal and blocks until the watch resolves or
// the deadline passes. A deadline resolves as (false, nil); the caller
// decides whether that is fatal. A poll transport error resolves the
// watch with that error.
func (w *ConfirmationWatch) Await(ctx context.Context) (bool, error) {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.pollLoop(pollCtx)

	select {
	case <-w.resolved:
	case <-time.After(w.config.Deadline):
		logger.WithFields(logger.Fields{
			"txId":  w.expectedTxID,
			"phase": w.phase.String(),
		}).Warnf("Timeout - %s transaction did not mature within %s", w.phase.String(), w.config.Deadline)
		w.resolve(false, nil)
	case <-ctx.Done():
		w.resolve(false, ctx.Err())
	}

	<-w.resolved
	return w.matured, w.err
}

// Matured reports the outcome. Only meaningful after resolution.
func (w *ConfirmationWatch) Matured() bool {
	select {
	case <-w.resolved:
		return w.matured
	default:
		return false
	}
}

// Resolved reports whether either signal (or the deadline) fired already.
func (w *ConfirmationWatch) Resolved() bool {
	select {
	case <-w.resolved:
		return true
	default:
		return false
	}
}

func (w *ConfirmationWatch) resolve(matured bool, err error) {
	w.resolveOnce.Do(func() {
		w.matured = matured
		w.err = err
		close(w.resolved)
	})
}

// pollLoop is the poll signal: bounded attempts at a fixed interval.
// Exhausting the attempts does not resolve the watch; the event signal
// may still fire until the deadline.
func (w *ConfirmationWatch) pollLoop(ctx context.Context) {
	for attempt := 1; attempt <= w.config.PollMaxAttempts; attempt++ {
		if w.checkOnce(attempt) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-w.resolved:
			return
		case <-time.After(w.config.PollInterval):
		}
	}
	logger.WithField("address", w.pollAddress).Debug("Max polling attempts reached, waiting on event signal")
}

// checkOnce performs a single poll attempt. Returns true when the loop
// should stop (resolution or transport error).
func (w *ConfirmationWatch) checkOnce(attempt int) bool {
	if w.Resolved() {
		return true
	}
	balance, err := w.client.GetBalanceByAddress(w.pollAddress)
	if err != nil {
		logger.WithFields(logger.Fields{
			"address": w.pollAddress,
			"err":     err,
		}).Error("Polling failed, abandoning watch")
		w.resolve(false, err)
		return true
	}
	logger.WithFields(logger.Fields{
		"attempt": attempt,
		"balance": balance,
		"address": w.pollAddress,
	}).Info("Polling P2SH balance")

	switch w.phase {
	case PhaseCommit:
		if balance > 0 {
			w.resolve(true, nil)
			return true
		}
	case PhaseReveal:
		if balance == 0 {
			count, err := w.client.GetTransactionCountByAddress(w.pollAddress)
			if err != nil {
				w.resolve(false, err)
				return true
			}
			if count%2 == 0 {
				w.resolve(true, nil)
				return true
			}
		}
	}
	return false
}
