// Package alloc mints collision-free session identifiers and participant
// access codes, and persists the full creation record.
//
// Uniqueness is enforced with conditional claim writes against the shared
// store: a draw is claimed by creating its record only if nothing exists at
// that path, so two racing allocators can never both win the same
// identifier. Each draw loop is bounded; exhausting the attempt cap fails
// the creation attempt instead of looping forever against a full keyspace.
package alloc

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/hanz94/monopoly-tool/internal/game/domain"
	"github.com/hanz94/monopoly-tool/internal/ledger"
	apperrors "github.com/hanz94/monopoly-tool/internal/platform/errors"
)

// CodeLength is the access code length in characters.
const CodeLength = 6

// codeAlphabet matches the client-side generator; codes are normalized to
// uppercase before use, so the effective alphabet is A-Z0-9.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const defaultMaxAttempts = 50

// Result describes a successful allocation.
type Result struct {
	SessionID   int
	OwnerCode   string
	Codes       []string
	Token       string
	WhenCreated int64
	WhenExpired int64
}

// Allocator mints session identifiers and access codes against the ledger.
type Allocator struct {
	ledger      *ledger.Ledger
	expiry      domain.ExpiryPolicy
	maxAttempts int
	clock       func() time.Time
	mint        TokenMinter
	sessionID   func() (int, error)
	accessCode  func() (string, error)
	logf        func(format string, args ...any)
}

// New creates an Allocator with default dependencies.
func New(l *ledger.Ledger) *Allocator {
	return &Allocator{
		ledger:      l,
		expiry:      domain.ExpiryPolicy{Horizon: domain.DefaultExpiryHorizon},
		maxAttempts: defaultMaxAttempts,
		clock:       time.Now,
		mint:        PlaceholderMinter,
		sessionID:   randomSessionID,
		accessCode:  randomAccessCode,
		logf:        log.Printf,
	}
}

// WithExpiry overrides the expiry policy.
func (a *Allocator) WithExpiry(policy domain.ExpiryPolicy) *Allocator {
	a.expiry = policy
	return a
}

// WithTokenMinter overrides the session token minter.
func (a *Allocator) WithTokenMinter(mint TokenMinter) *Allocator {
	if mint != nil {
		a.mint = mint
	}
	return a
}

// Allocate validates the request, claims a unique session id and one unique
// access code per participant, and writes the creation records in order:
// id claim, access records, session record. A failure after the id claim is
// surfaced as a partial write with the already-committed paths attached; no
// rollback is attempted.
func (a *Allocator) Allocate(ctx context.Context, input domain.CreateSessionInput) (Result, error) {
	input, err := domain.NormalizeCreateSessionInput(input)
	if err != nil {
		return Result{}, err
	}

	now := a.clock()
	whenCreated, whenExpired := a.expiry.Stamp(now)

	sessionID, err := a.claimSessionID(ctx)
	if err != nil {
		return Result{}, err
	}
	written := []string{ledger.IDPath(sessionID)}

	token, err := a.mint(sessionID, time.Unix(whenExpired, 0))
	if err != nil {
		return Result{}, a.partialWrite(written, fmt.Errorf("mint session token: %w", err))
	}

	welcome := domain.WelcomeNotification(input.InitialBalance, input.Currency, now)
	codes := make([]string, 0, len(input.PlayerNames))
	for range input.PlayerNames {
		code, err := a.claimAccessCode(ctx, ledger.AccessRecord{
			SessionID: sessionID,
			Token:     token,
			Notifications: map[int]ledger.NotificationRecord{
				welcome.ID: {
					ID:            welcome.ID,
					Type:          welcome.Type,
					TextPrimary:   welcome.TextPrimary,
					TextSecondary: welcome.TextSecondary,
					Timestamp:     welcome.Timestamp.Unix(),
					Read:          welcome.Read,
				},
			},
		})
		if err != nil {
			return Result{}, a.partialWrite(written, err)
		}
		codes = append(codes, code)
		written = append(written, ledger.AccessPath(code))
	}

	players := make(map[string]ledger.PlayerRecord, len(codes))
	for i, code := range codes {
		players[code] = ledger.PlayerRecord{
			Name:    input.PlayerNames[i],
			IsBank:  string(domain.RoleFor(i)),
			Balance: input.InitialBalance,
			Status:  string(domain.StatusOffline),
		}
	}

	record := ledger.SessionRecord{
		Currency:        string(input.Currency),
		InitialBalance:  input.InitialBalance,
		CrossStartBonus: input.CrossStartBonus,
		NumberOfPlayers: input.NumberOfPlayers,
		Players:         players,
		WhenCreated:     whenCreated,
		WhenExpired:     whenExpired,
	}
	if err := a.ledger.WriteSession(ctx, sessionID, record); err != nil {
		return Result{}, a.partialWrite(written,
			apperrors.Wrap(apperrors.CodeStoreUnavailable, "write session record", err))
	}

	return Result{
		SessionID:   sessionID,
		OwnerCode:   codes[0],
		Codes:       codes,
		Token:       token,
		WhenCreated: whenCreated,
		WhenExpired: whenExpired,
	}, nil
}

// claimSessionID draws candidate ids until a conditional claim wins.
func (a *Allocator) claimSessionID(ctx context.Context) (int, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate, err := a.sessionID()
		if err != nil {
			return 0, fmt.Errorf("draw session id: %w", err)
		}
		claimed, err := a.ledger.ReserveSessionID(ctx, candidate)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.CodeStoreUnavailable, "reserve session id", err)
		}
		if claimed {
			return candidate, nil
		}
	}
	return 0, apperrors.New(apperrors.CodeAllocationExhausted,
		fmt.Sprintf("no free session id after %d attempts", a.maxAttempts))
}

// claimAccessCode draws candidate codes until a conditional claim wins.
func (a *Allocator) claimAccessCode(ctx context.Context, record ledger.AccessRecord) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate, err := a.accessCode()
		if err != nil {
			return "", fmt.Errorf("draw access code: %w", err)
		}
		claimed, err := a.ledger.ClaimAccessCode(ctx, candidate, record)
		if err != nil {
			return "", apperrors.Wrap(apperrors.CodeStoreUnavailable, "claim access code", err)
		}
		if claimed {
			return candidate, nil
		}
	}
	return "", apperrors.New(apperrors.CodeAllocationExhausted,
		fmt.Sprintf("no free access code after %d attempts", a.maxAttempts))
}

// partialWrite reports a creation failure that left committed paths behind.
// The written paths are logged and attached for reconciliation; the records
// are not rolled back.
func (a *Allocator) partialWrite(written []string, cause error) error {
	joined := strings.Join(written, ",")
	a.logf("alloc: session creation interrupted, committed paths need reconciliation: %s (%v)", joined, cause)
	return apperrors.WrapWithMetadata(apperrors.CodePartialWrite,
		"session creation interrupted after partial write",
		map[string]string{"written": joined}, cause)
}

// randomSessionID draws uniformly from [SessionIDMin, SessionIDMax].
func randomSessionID() (int, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(domain.SessionIDMax-domain.SessionIDMin+1))
	if err != nil {
		return 0, fmt.Errorf("draw random id: %w", err)
	}
	return domain.SessionIDMin + int(n.Int64()), nil
}

// randomAccessCode draws a fixed-length code and normalizes it to uppercase.
func randomAccessCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("draw random code character: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return strings.ToUpper(string(code)), nil
}
