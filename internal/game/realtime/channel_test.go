package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanz94/monopoly-tool/internal/ledger"
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

// waitForSnapshot reads snapshots until accept returns true or the deadline
// passes. Conflation may coalesce intermediate states, so assertions target
// the latest state, not each step.
func waitForSnapshot(t *testing.T, c *Channel, accept func(PlayerMap) bool) PlayerMap {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-c.Snapshots():
			if !ok {
				t.Fatal("snapshot channel closed while waiting")
			}
			if accept(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestOpenDeliversInitialSnapshot(t *testing.T) {
	l := ledger.New(memory.New())
	seedSession(t, l)

	c, err := Open(context.Background(), l, 123456)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	snap := waitForSnapshot(t, c, func(PlayerMap) bool { return true })
	if len(snap) != 2 {
		t.Fatalf("expected 2 players in initial snapshot, got %d", len(snap))
	}
	if snap["ABC123"].Status != "offline" {
		t.Fatalf("unexpected initial status %q", snap["ABC123"].Status)
	}
}

func TestOpenUnknownSessionFails(t *testing.T) {
	l := ledger.New(memory.New())

	_, err := Open(context.Background(), l, 999999)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatusChangeDeliversFullMap(t *testing.T) {
	l := ledger.New(memory.New())
	seedSession(t, l)
	ctx := context.Background()

	c, err := Open(ctx, l, 123456)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if err := l.WritePlayerStatus(ctx, 123456, "ABC123", "online"); err != nil {
		t.Fatalf("write status: %v", err)
	}

	snap := waitForSnapshot(t, c, func(snap PlayerMap) bool {
		return snap["ABC123"].Status == "online"
	})
	// The whole map is forwarded, not just the changed participant.
	if snap["DEF456"].Name != "Gracz 2" || snap["DEF456"].Balance != 1500 {
		t.Fatalf("expected untouched participant in snapshot, got %+v", snap["DEF456"])
	}
}

func TestBalanceChangeDeliversSnapshot(t *testing.T) {
	l := ledger.New(memory.New())
	seedSession(t, l)
	ctx := context.Background()

	c, err := Open(ctx, l, 123456)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if err := l.WritePlayerBalance(ctx, 123456, "DEF456", 1300); err != nil {
		t.Fatalf("write balance: %v", err)
	}

	waitForSnapshot(t, c, func(snap PlayerMap) bool {
		return snap["DEF456"].Balance == 1300
	})
}

func TestConflationKeepsLatestState(t *testing.T) {
	l := ledger.New(memory.New())
	seedSession(t, l)
	ctx := context.Background()

	c, err := Open(ctx, l, 123456)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	for balance := 1400; balance >= 1000; balance -= 100 {
		if err := l.WritePlayerBalance(ctx, 123456, "ABC123", balance); err != nil {
			t.Fatalf("write balance: %v", err)
		}
	}

	waitForSnapshot(t, c, func(snap PlayerMap) bool {
		return snap["ABC123"].Balance == 1000
	})
}

func TestCloseStopsDelivery(t *testing.T) {
	l := ledger.New(memory.New())
	seedSession(t, l)
	ctx := context.Background()

	c, err := Open(ctx, l, 123456)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c.Close()
	c.Close() // idempotent

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Snapshots():
			if !ok {
				return
			}
			// At most the already-buffered snapshot may arrive after Close.
		case <-deadline:
			t.Fatal("expected snapshot channel to close")
		}
	}
}
