// Package ledger owns the persisted session schema and typed access to the
// realtime store. It is the only package that knows the path layout and
// record shapes; everything above it works with typed records.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hanz94/monopoly-tool/internal/store"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = store.ErrNotFound

// Ledger provides typed access to session, player and access-code records.
type Ledger struct {
	store store.Store
}

// New creates a ledger over the given realtime store.
func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// ReserveSessionID atomically claims a session id by creating its counter
// record. It reports false when the id is already taken.
func (l *Ledger) ReserveSessionID(ctx context.Context, sessionID int) (bool, error) {
	ok, err := l.store.WriteIfAbsent(ctx, IDPath(sessionID), idRecord{TransactionHistory: 0})
	if err != nil {
		return false, fmt.Errorf("reserve session id %d: %w", sessionID, err)
	}
	return ok, nil
}

// ClaimAccessCode atomically claims a globally unique access code by
// creating its access record. It reports false when the code is already
// taken by any session.
func (l *Ledger) ClaimAccessCode(ctx context.Context, code string, record AccessRecord) (bool, error) {
	ok, err := l.store.WriteIfAbsent(ctx, AccessPath(code), record)
	if err != nil {
		return false, fmt.Errorf("claim access code %s: %w", code, err)
	}
	return ok, nil
}

// WriteSession writes the full session record.
func (l *Ledger) WriteSession(ctx context.Context, sessionID int, record SessionRecord) error {
	if err := l.store.Write(ctx, SessionPath(sessionID), record); err != nil {
		return fmt.Errorf("write session %d: %w", sessionID, err)
	}
	return nil
}

// ReadSession reads the full session record.
func (l *Ledger) ReadSession(ctx context.Context, sessionID int) (SessionRecord, error) {
	var record SessionRecord
	if err := l.read(ctx, SessionPath(sessionID), &record); err != nil {
		return SessionRecord{}, err
	}
	return record, nil
}

// SessionExists reports whether a session record or id claim exists.
func (l *Ledger) SessionExists(ctx context.Context, sessionID int) (bool, error) {
	exists, err := l.store.Exists(ctx, IDPath(sessionID))
	if err != nil {
		return false, fmt.Errorf("check session id %d: %w", sessionID, err)
	}
	return exists, nil
}

// ReadPlayers reads the participant map of a session.
func (l *Ledger) ReadPlayers(ctx context.Context, sessionID int) (map[string]PlayerRecord, error) {
	players := make(map[string]PlayerRecord)
	if err := l.read(ctx, PlayersPath(sessionID), &players); err != nil {
		return nil, err
	}
	return players, nil
}

// ReadAccess reads a global access-code index entry.
func (l *Ledger) ReadAccess(ctx context.Context, code string) (AccessRecord, error) {
	var record AccessRecord
	if err := l.read(ctx, AccessPath(code), &record); err != nil {
		return AccessRecord{}, err
	}
	return record, nil
}

// PlayerStatusExists reports whether a participant's presence leaf exists.
func (l *Ledger) PlayerStatusExists(ctx context.Context, sessionID int, code string) (bool, error) {
	exists, err := l.store.Exists(ctx, PlayerStatusPath(sessionID, code))
	if err != nil {
		return false, fmt.Errorf("check status path for %s in session %d: %w", code, sessionID, err)
	}
	return exists, nil
}

// WritePlayerStatus overwrites a participant's presence leaf.
func (l *Ledger) WritePlayerStatus(ctx context.Context, sessionID int, code, status string) error {
	if err := l.store.Write(ctx, PlayerStatusPath(sessionID, code), status); err != nil {
		return fmt.Errorf("write status for %s in session %d: %w", code, sessionID, err)
	}
	return nil
}

// WritePlayerBalance overwrites a participant's balance leaf.
func (l *Ledger) WritePlayerBalance(ctx context.Context, sessionID int, code string, balance int) error {
	if err := l.store.Write(ctx, PlayerBalancePath(sessionID, code), balance); err != nil {
		return fmt.Errorf("write balance for %s in session %d: %w", code, sessionID, err)
	}
	return nil
}

// ReadTransactionCount reads the per-session transaction counter.
func (l *Ledger) ReadTransactionCount(ctx context.Context, sessionID int) (int, error) {
	var count int
	if err := l.read(ctx, TransactionHistoryPath(sessionID), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementTransactionCount bumps the per-session transaction counter.
// Read-modify-write with last-writer-wins: concurrent mutations may coalesce,
// which the schema accepts for an advisory counter.
func (l *Ledger) IncrementTransactionCount(ctx context.Context, sessionID int) (int, error) {
	count, err := l.ReadTransactionCount(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	count++
	if err := l.store.Write(ctx, TransactionHistoryPath(sessionID), count); err != nil {
		return 0, fmt.Errorf("write transaction counter for session %d: %w", sessionID, err)
	}
	return count, nil
}

// SubscribePlayers opens a change feed over a session's participant map.
func (l *Ledger) SubscribePlayers(ctx context.Context, sessionID int) (store.Subscription, error) {
	sub, err := l.store.Subscribe(ctx, PlayersPath(sessionID))
	if err != nil {
		return nil, fmt.Errorf("subscribe players for session %d: %w", sessionID, err)
	}
	return sub, nil
}

func (l *Ledger) read(ctx context.Context, path string, target any) error {
	raw, err := l.store.Read(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("read %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}
