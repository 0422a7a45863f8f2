// Package service orchestrates game session operations on top of the
// allocator and the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hanz94/monopoly-tool/internal/game/alloc"
	"github.com/hanz94/monopoly-tool/internal/game/domain"
	"github.com/hanz94/monopoly-tool/internal/ledger"
	apperrors "github.com/hanz94/monopoly-tool/internal/platform/errors"
)

// GameService exposes session creation, lookup and ledger mutations.
type GameService struct {
	ledger    *ledger.Ledger
	allocator *alloc.Allocator
	clock     func() time.Time
}

// New creates a GameService with default dependencies.
func New(l *ledger.Ledger, allocator *alloc.Allocator) *GameService {
	return &GameService{
		ledger:    l,
		allocator: allocator,
		clock:     time.Now,
	}
}

// CreateGameInput is the creation request as received from clients.
type CreateGameInput struct {
	Currency        string   `json:"currency"`
	InitialBalance  int      `json:"initialBalance"`
	CrossStartBonus int      `json:"crossStartBonus"`
	NumberOfPlayers int      `json:"numberOfPlayers"`
	PlayerNames     []string `json:"playerNames"`
}

// CreateGameResult identifies a freshly created session.
type CreateGameResult struct {
	GameID    int      `json:"gameId"`
	OwnerCode string   `json:"ownerCode"`
	Codes     []string `json:"codes"`
	Token     string   `json:"token"`
}

// CreateGame validates the request and allocates a new session.
func (s *GameService) CreateGame(ctx context.Context, input CreateGameInput) (CreateGameResult, error) {
	currency, err := domain.ParseCurrency(input.Currency)
	if err != nil {
		return CreateGameResult{}, err
	}

	result, err := s.allocator.Allocate(ctx, domain.CreateSessionInput{
		Config: domain.Config{
			Currency:        currency,
			InitialBalance:  input.InitialBalance,
			CrossStartBonus: input.CrossStartBonus,
			NumberOfPlayers: input.NumberOfPlayers,
		},
		PlayerNames: input.PlayerNames,
	})
	if err != nil {
		return CreateGameResult{}, err
	}

	return CreateGameResult{
		GameID:    result.SessionID,
		OwnerCode: result.OwnerCode,
		Codes:     result.Codes,
		Token:     result.Token,
	}, nil
}

// GetGame reads a session record. Records past their expiry are reported as
// logically expired even while the external reaper has not reclaimed them.
func (s *GameService) GetGame(ctx context.Context, gameID int) (ledger.SessionRecord, error) {
	record, err := s.ledger.ReadSession(ctx, gameID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return ledger.SessionRecord{}, apperrors.New(apperrors.CodeNotFound,
				fmt.Sprintf("game %d not found", gameID))
		}
		return ledger.SessionRecord{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "read game", err)
	}
	if domain.Expired(record.WhenExpired, s.clock()) {
		return ledger.SessionRecord{}, apperrors.New(apperrors.CodeSessionExpired,
			fmt.Sprintf("game %d expired", gameID))
	}
	return record, nil
}

// AccessInfo resolves a bare access code to its session.
type AccessInfo struct {
	GameID int                  `json:"gameId"`
	Token  string               `json:"token"`
	Game   ledger.SessionRecord `json:"game"`
}

// ResolveAccess looks up an access code in the global index and loads the
// session it belongs to.
func (s *GameService) ResolveAccess(ctx context.Context, code string) (AccessInfo, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != alloc.CodeLength {
		return AccessInfo{}, apperrors.New(apperrors.CodeAccessInvalidCode,
			"access code must be 6 characters")
	}

	access, err := s.ledger.ReadAccess(ctx, code)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return AccessInfo{}, apperrors.New(apperrors.CodeNotFound, "access code not found")
		}
		return AccessInfo{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "read access record", err)
	}

	record, err := s.GetGame(ctx, access.SessionID)
	if err != nil {
		return AccessInfo{}, err
	}

	return AccessInfo{
		GameID: access.SessionID,
		Token:  access.Token,
		Game:   record,
	}, nil
}

// Transfer moves an amount between two participants of one session and bumps
// the transaction counter. The balance writes are independent store writes:
// a failure in between is surfaced as a partial write for reconciliation.
func (s *GameService) Transfer(ctx context.Context, gameID int, fromCode, toCode string, amount int) error {
	if amount <= 0 {
		return apperrors.New(apperrors.CodeGameInvalidAmount, "transfer amount must be positive")
	}
	fromCode = strings.ToUpper(strings.TrimSpace(fromCode))
	toCode = strings.ToUpper(strings.TrimSpace(toCode))
	if fromCode == toCode {
		return apperrors.New(apperrors.CodeGameInvalidAmount, "transfer requires two distinct participants")
	}

	record, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	from, ok := record.Players[fromCode]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("participant %s not found in game %d", fromCode, gameID))
	}
	to, ok := record.Players[toCode]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("participant %s not found in game %d", toCode, gameID))
	}
	if from.Balance < amount {
		return apperrors.New(apperrors.CodeGameInsufficientBalance,
			fmt.Sprintf("participant %s holds %d, cannot send %d", fromCode, from.Balance, amount))
	}

	if err := s.ledger.WritePlayerBalance(ctx, gameID, fromCode, from.Balance-amount); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "debit sender", err)
	}
	if err := s.ledger.WritePlayerBalance(ctx, gameID, toCode, to.Balance+amount); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodePartialWrite, "transfer interrupted after debit",
			map[string]string{"written": ledger.PlayerBalancePath(gameID, fromCode)}, err)
	}
	if _, err := s.ledger.IncrementTransactionCount(ctx, gameID); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodePartialWrite, "transfer applied, counter not bumped",
			map[string]string{"written": ledger.PlayerBalancePath(gameID, fromCode) + "," +
				ledger.PlayerBalancePath(gameID, toCode)}, err)
	}
	return nil
}

// Adjust credits or debits one participant, e.g. the cross-start bonus
// payout by the bank. The resulting balance must not go negative.
func (s *GameService) Adjust(ctx context.Context, gameID int, code string, amount int) error {
	if amount == 0 {
		return apperrors.New(apperrors.CodeGameInvalidAmount, "adjustment amount must not be zero")
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	record, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	player, ok := record.Players[code]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("participant %s not found in game %d", code, gameID))
	}
	balance := player.Balance + amount
	if balance < 0 {
		return apperrors.New(apperrors.CodeGameInsufficientBalance,
			fmt.Sprintf("participant %s holds %d, cannot debit %d", code, player.Balance, -amount))
	}

	if err := s.ledger.WritePlayerBalance(ctx, gameID, code, balance); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "write adjusted balance", err)
	}
	if _, err := s.ledger.IncrementTransactionCount(ctx, gameID); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodePartialWrite, "adjustment applied, counter not bumped",
			map[string]string{"written": ledger.PlayerBalancePath(gameID, code)}, err)
	}
	return nil
}
