// Package presence maintains the advisory online/offline flag of connected
// participants.
//
// Presence is best-effort: updates are check-before-set, races between
// concurrent updates resolve by last-writer-wins in the store, and failures
// are logged but never surfaced, so a flaky presence write can not block a
// primary session flow. No other package swallows store errors.
package presence

import (
	"context"
	"log"

	"github.com/hanz94/monopoly-tool/internal/game/domain"
	"github.com/hanz94/monopoly-tool/internal/ledger"
)

// Tracker writes participant presence flags.
type Tracker struct {
	ledger *ledger.Ledger
	logf   func(format string, args ...any)
}

// New creates a presence tracker.
func New(l *ledger.Ledger) *Tracker {
	return &Tracker{ledger: l, logf: log.Printf}
}

// Set overwrites a participant's presence flag. The write only happens when
// the status path already exists; setting presence for an unknown
// participant or a reclaimed session is a logged no-op and never creates
// the path.
func (t *Tracker) Set(ctx context.Context, sessionID int, code string, status domain.Status) {
	exists, err := t.ledger.PlayerStatusExists(ctx, sessionID, code)
	if err != nil {
		t.logf("presence: check status path for player %s in session %d: %v", code, sessionID, err)
		return
	}
	if !exists {
		t.logf("presence: skipped update for player %s in session %d: status path does not exist", code, sessionID)
		return
	}
	if err := t.ledger.WritePlayerStatus(ctx, sessionID, code, string(status)); err != nil {
		t.logf("presence: write status for player %s in session %d: %v", code, sessionID, err)
	}
}
