// Package realtime keeps connected clients' view of a session's participant
// map live without polling.
//
// A Channel is push-based: the store delivers a change event whenever any
// participant subrecord changes, and the channel re-reads and forwards the
// entire current participant map, not a diff. Snapshots conflate: a consumer
// that falls behind sees the latest state, never a backlog of superseded
// intermediate states. History is not replayable; a new channel starts from
// the then-current snapshot.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hanz94/monopoly-tool/internal/ledger"
	"github.com/hanz94/monopoly-tool/internal/store"
)

// PlayerMap is one delivered snapshot of a session's participants, keyed by
// access code.
type PlayerMap = map[string]ledger.PlayerRecord

// Channel is a live subscription to one session's participant map.
type Channel struct {
	snapshots chan PlayerMap
	sub       store.Subscription
	cancel    context.CancelFunc
	closeOnce sync.Once
	logf      func(format string, args ...any)
}

// Open subscribes to a session's participant map. The current snapshot is
// delivered first, then a fresh snapshot after every store change.
func Open(ctx context.Context, l *ledger.Ledger, sessionID int) (*Channel, error) {
	players, err := l.ReadPlayers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read initial snapshot for session %d: %w", sessionID, err)
	}

	sub, err := l.SubscribePlayers(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := &Channel{
		snapshots: make(chan PlayerMap, 1),
		sub:       sub,
		cancel:    cancel,
		logf:      log.Printf,
	}
	c.push(players)
	go c.run(runCtx, l, sessionID)
	return c, nil
}

// Snapshots returns the conflating snapshot feed. The channel closes after
// Close; a snapshot already buffered when Close is called may still be read,
// never more than one.
func (c *Channel) Snapshots() <-chan PlayerMap {
	return c.snapshots
}

// Close detaches the subscription. No further snapshots are produced.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.sub.Close()
	})
}

func (c *Channel) run(ctx context.Context, l *ledger.Ledger, sessionID int) {
	defer close(c.snapshots)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-c.sub.Events():
			if !ok {
				return
			}
			players, err := l.ReadPlayers(ctx, sessionID)
			if err != nil {
				// A reclaimed session empties the subtree mid-flight.
				if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, context.Canceled) {
					continue
				}
				c.logf("realtime: refresh players for session %d: %v", sessionID, err)
				continue
			}
			c.push(players)
		}
	}
}

// push replaces any undelivered snapshot with the newer one.
func (c *Channel) push(players PlayerMap) {
	for {
		select {
		case c.snapshots <- players:
			return
		default:
			select {
			case <-c.snapshots:
			default:
			}
		}
	}
}
