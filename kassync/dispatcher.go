package kassync

import (
	"errors"
	"fmt"
	"sync"

	logger "github.com/sirupsen/logrus"

	"github.com/Nacho-the-Kat/krc721-airdrop/kasman/rpc"
)

// ErrSubscriptionFailure is returned when the utxos-changed subscription
// cannot be established even after a reconnect.
var ErrSubscriptionFailure = errors.New("failed to subscribe to UTXO change notifications")

// Dispatcher fans node notifications to the one watch that is currently
// in flight. Transfers are sequential so a single slot is enough; setting
// a new watch detaches the previous one.
type Dispatcher struct {
	mu      sync.Mutex
	current *ConfirmationWatch
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Handle is the handler registered with the rpc client. Safe to call
// with no watch attached.
func (d *Dispatcher) Handle(notification *rpc.UTXOsChangedNotification) {
	d.mu.Lock()
	watch := d.current
	d.mu.Unlock()
	if watch != nil {
		watch.OnUTXOsChanged(notification)
	}
}

// Attach makes the given watch the recipient of future notifications.
func (d *Dispatcher) Attach(watch *ConfirmationWatch) {
	d.mu.Lock()
	d.current = watch
	d.mu.Unlock()
}

// Detach clears the slot so stale notifications are dropped.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	d.current = nil
	d.mu.Unlock()
}

// Subscribe registers the notification handler, retrying once after a
// reconnect before giving up.
func Subscribe(client rpc.Client, addresses []string, handler rpc.NotificationHandler) error {
	err := client.NotifyUTXOsChanged(addresses, handler)
	if err == nil {
		return nil
	}
	logger.WithField("err", err).Warn("Subscription failed, reconnecting and retrying once")
	if rerr := client.Reconnect(); rerr != nil {
		return fmt.Errorf("%w: reconnect: %v", ErrSubscriptionFailure, rerr)
	}
	if err = client.NotifyUTXOsChanged(addresses, handler); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscriptionFailure, err)
	}
	return nil
}
