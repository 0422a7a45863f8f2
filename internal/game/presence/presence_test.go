package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hanz94/monopoly-tool/internal/game/domain"
	"github.com/hanz94/monopoly-tool/internal/ledger"
	"github.com/hanz94/monopoly-tool/internal/store"
	"github.com/hanz94/monopoly-tool/internal/store/memory"
)

func seedSession(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	err := l.WriteSession(context.Background(), 123456, ledger.SessionRecord{
		Currency:        "PLN",
		InitialBalance:  1500,
		NumberOfPlayers: 2,
		Players: map[string]ledger.PlayerRecord{
			"ABC123": {Name: "Gracz 1", IsBank: "owner", Balance: 1500, Status: "offline"},
			"DEF456": {Name: "Gracz 2", IsBank: "false", Balance: 1500, Status: "offline"},
		},
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestSetOverwritesExistingStatus(t *testing.T) {
	l := ledger.New(memory.New())
	seedSession(t, l)
	tracker := New(l)
	tracker.logf = func(string, ...any) {}

	tracker.Set(context.Background(), 123456, "ABC123", domain.StatusOnline)

	players, err := l.ReadPlayers(context.Background(), 123456)
	if err != nil {
		t.Fatalf("read players: %v", err)
	}
	if players["ABC123"].Status != "online" {
		t.Fatalf("expected online, got %q", players["ABC123"].Status)
	}
}

func TestSetMissingPathIsSilentNoOp(t *testing.T) {
	mem := memory.New()
	l := ledger.New(mem)
	seedSession(t, l)
	tracker := New(l)

	var logged []string
	tracker.logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	tracker.Set(context.Background(), 123456, "ZZZ999", domain.StatusOnline)

	exists, err := mem.Exists(context.Background(), ledger.PlayerStatusPath(123456, "ZZZ999"))
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("no-op must not create the status path")
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "skipped") {
		t.Fatalf("expected one skip log line, got %v", logged)
	}
}

func TestSetUnknownSessionIsSilentNoOp(t *testing.T) {
	tracker := New(ledger.New(memory.New()))
	tracker.logf = func(string, ...any) {}

	// Must not panic or error: presence never escalates.
	tracker.Set(context.Background(), 999999, "ABC123", domain.StatusOffline)
}

// brokenStore fails every operation to exercise the swallow-and-log policy.
type brokenStore struct{}

func (brokenStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("store offline")
}

func (brokenStore) Read(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("store offline")
}

func (brokenStore) Write(context.Context, string, any) error {
	return errors.New("store offline")
}

func (brokenStore) WriteIfAbsent(context.Context, string, any) (bool, error) {
	return false, errors.New("store offline")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("store offline")
}

func (brokenStore) Subscribe(context.Context, string) (store.Subscription, error) {
	return nil, errors.New("store offline")
}

func TestSetStoreErrorIsLoggedNotRaised(t *testing.T) {
	tracker := New(ledger.New(brokenStore{}))

	var logged []string
	tracker.logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	tracker.Set(context.Background(), 123456, "ABC123", domain.StatusOnline)

	if len(logged) != 1 || !strings.Contains(logged[0], "store offline") {
		t.Fatalf("expected logged store error, got %v", logged)
	}
}
