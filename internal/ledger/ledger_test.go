package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanz94/monopoly-tool/internal/store/memory"
)

func testSessionRecord() SessionRecord {
	return SessionRecord{
		Currency:        "PLN",
		InitialBalance:  1500,
		CrossStartBonus: 200,
		NumberOfPlayers: 2,
		Players: map[string]PlayerRecord{
			"ABC123": {Name: "Gracz 1", IsBank: "owner", Balance: 1500, Status: "offline"},
			"DEF456": {Name: "Gracz 2", IsBank: "false", Balance: 1500, Status: "offline"},
		},
		WhenCreated: 1756600000,
		WhenExpired: 1756600000 + 604800,
	}
}

func TestReserveSessionID(t *testing.T) {
	l := New(memory.New())
	ctx := context.Background()

	ok, err := l.ReserveSessionID(ctx, 123456)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatal("expected first reservation to win")
	}

	ok, err = l.ReserveSessionID(ctx, 123456)
	if err != nil {
		t.Fatalf("reserve again: %v", err)
	}
	if ok {
		t.Fatal("expected second reservation to lose")
	}

	count, err := l.ReadTransactionCount(ctx, 123456)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter initialized to 0, got %d", count)
	}
}

func TestClaimAccessCode(t *testing.T) {
	l := New(memory.New())
	ctx := context.Background()

	record := AccessRecord{
		SessionID: 123456,
		Token:     "empty",
		Notifications: map[int]NotificationRecord{
			1: {ID: 1, Type: "info", TextPrimary: "Witamy w grze!", Timestamp: time.Now().Unix()},
		},
	}
	ok, err := l.ClaimAccessCode(ctx, "ABC123", record)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !ok {
		t.Fatal("expected claim to win")
	}

	ok, err = l.ClaimAccessCode(ctx, "ABC123", AccessRecord{SessionID: 654321})
	if err != nil {
		t.Fatalf("claim again: %v", err)
	}
	if ok {
		t.Fatal("expected duplicate code claim to lose")
	}

	loaded, err := l.ReadAccess(ctx, "ABC123")
	if err != nil {
		t.Fatalf("read access: %v", err)
	}
	if loaded.SessionID != 123456 {
		t.Fatalf("expected session 123456, got %d", loaded.SessionID)
	}
	if loaded.Notifications[1].TextPrimary != "Witamy w grze!" {
		t.Fatalf("expected welcome notification, got %+v", loaded.Notifications)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	l := New(memory.New())
	ctx := context.Background()

	record := testSessionRecord()
	if err := l.WriteSession(ctx, 123456, record); err != nil {
		t.Fatalf("write session: %v", err)
	}

	loaded, err := l.ReadSession(ctx, 123456)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if loaded.Currency != "PLN" || loaded.InitialBalance != 1500 {
		t.Fatalf("unexpected session %+v", loaded)
	}
	if len(loaded.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(loaded.Players))
	}
	if loaded.Players["ABC123"].IsBank != "owner" {
		t.Fatalf("expected owner flag on first player, got %+v", loaded.Players["ABC123"])
	}
	if loaded.WhenExpired-loaded.WhenCreated != 604800 {
		t.Fatalf("expected 604800s horizon, got %d", loaded.WhenExpired-loaded.WhenCreated)
	}
}

func TestReadSessionMissing(t *testing.T) {
	l := New(memory.New())
	_, err := l.ReadSession(context.Background(), 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPlayerStatus(t *testing.T) {
	l := New(memory.New())
	ctx := context.Background()

	if err := l.WriteSession(ctx, 123456, testSessionRecord()); err != nil {
		t.Fatalf("write session: %v", err)
	}

	exists, err := l.PlayerStatusExists(ctx, 123456, "ABC123")
	if err != nil {
		t.Fatalf("status exists: %v", err)
	}
	if !exists {
		t.Fatal("expected status leaf after session write")
	}

	if err := l.WritePlayerStatus(ctx, 123456, "ABC123", "online"); err != nil {
		t.Fatalf("write status: %v", err)
	}

	players, err := l.ReadPlayers(ctx, 123456)
	if err != nil {
		t.Fatalf("read players: %v", err)
	}
	if players["ABC123"].Status != "online" {
		t.Fatalf("expected online, got %+v", players["ABC123"])
	}
	if players["DEF456"].Status != "offline" {
		t.Fatalf("expected other player untouched, got %+v", players["DEF456"])
	}
}

func TestIncrementTransactionCount(t *testing.T) {
	l := New(memory.New())
	ctx := context.Background()

	if _, err := l.ReserveSessionID(ctx, 123456); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	count, err := l.IncrementTransactionCount(ctx, 123456)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	count, err = l.IncrementTransactionCount(ctx, 123456)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
}

func TestSubscribePlayersSeesBalanceWrite(t *testing.T) {
	l := New(memory.New())
	ctx := context.Background()

	if err := l.WriteSession(ctx, 123456, testSessionRecord()); err != nil {
		t.Fatalf("write session: %v", err)
	}

	sub, err := l.SubscribePlayers(ctx, 123456)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := l.WritePlayerBalance(ctx, 123456, "DEF456", 1300); err != nil {
		t.Fatalf("write balance: %v", err)
	}

	select {
	case evt := <-sub.Events():
		if evt.Path != PlayerBalancePath(123456, "DEF456") {
			t.Fatalf("unexpected event %q", evt.Path)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for balance event")
	}
}
