// Package domain holds the pure session/participant model and its
// validation rules. Nothing here touches the store.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hanz94/monopoly-tool/internal/platform/errors"
)

// Currency is a supported ledger currency.
type Currency string

const (
	CurrencyPLN Currency = "PLN"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency validates a currency code.
func ParseCurrency(value string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(value))) {
	case CurrencyPLN:
		return CurrencyPLN, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	default:
		return "", apperrors.New(apperrors.CodeGameInvalidCurrency,
			fmt.Sprintf("currency %q is not supported", value))
	}
}

// Status is a participant's advisory presence flag.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Role marks the banking participant. The stored value is the literal
// "owner" or "false"; connected clients switch on it directly.
type Role string

const (
	RoleOwner  Role = "owner"
	RolePlayer Role = "false"
)

// Session identifier bounds. Identifiers are 6-digit numbers.
const (
	SessionIDMin = 100000
	SessionIDMax = 999999
)

// ValidSessionID reports whether id lies in the 6-digit identifier range.
func ValidSessionID(id int) bool {
	return id >= SessionIDMin && id <= SessionIDMax
}

// Configuration bounds for session creation.
const (
	MinPlayers        = 2
	MaxPlayers        = 6
	MinInitialBalance = 1
	MaxInitialBalance = 10000
	MinCrossBonus     = 0
	MaxCrossBonus     = 1000
)

// Config is the fixed configuration of one session.
type Config struct {
	Currency        Currency
	InitialBalance  int
	CrossStartBonus int
	NumberOfPlayers int
}

// CreateSessionInput describes a session creation request before allocation.
type CreateSessionInput struct {
	Config
	PlayerNames []string
}

// NormalizeCreateSessionInput trims and validates a creation request.
// The first player name belongs to the session owner.
func NormalizeCreateSessionInput(input CreateSessionInput) (CreateSessionInput, error) {
	if _, err := ParseCurrency(string(input.Currency)); err != nil {
		return CreateSessionInput{}, err
	}
	if input.InitialBalance < MinInitialBalance || input.InitialBalance > MaxInitialBalance {
		return CreateSessionInput{}, apperrors.New(apperrors.CodeGameInvalidInitialBalance,
			fmt.Sprintf("initial balance must be between %d and %d", MinInitialBalance, MaxInitialBalance))
	}
	if input.CrossStartBonus < MinCrossBonus || input.CrossStartBonus > MaxCrossBonus {
		return CreateSessionInput{}, apperrors.New(apperrors.CodeGameInvalidCrossBonus,
			fmt.Sprintf("cross start bonus must be between %d and %d", MinCrossBonus, MaxCrossBonus))
	}
	if input.NumberOfPlayers < MinPlayers || input.NumberOfPlayers > MaxPlayers {
		return CreateSessionInput{}, apperrors.New(apperrors.CodeGameInvalidPlayerCount,
			fmt.Sprintf("number of players must be between %d and %d", MinPlayers, MaxPlayers))
	}
	if len(input.PlayerNames) != input.NumberOfPlayers {
		return CreateSessionInput{}, apperrors.New(apperrors.CodeGameInvalidPlayerCount,
			fmt.Sprintf("expected %d player names, got %d", input.NumberOfPlayers, len(input.PlayerNames)))
	}

	names := make([]string, len(input.PlayerNames))
	for i, name := range input.PlayerNames {
		name = strings.TrimSpace(name)
		if name == "" {
			return CreateSessionInput{}, apperrors.New(apperrors.CodeGameEmptyPlayerName,
				fmt.Sprintf("player name %d is empty", i+1))
		}
		names[i] = name
	}
	input.PlayerNames = names
	return input, nil
}

// RoleFor returns the role of the participant at the given creation index.
func RoleFor(index int) Role {
	if index == 0 {
		return RoleOwner
	}
	return RolePlayer
}

// DefaultExpiryHorizon is the default session lifetime: 604800 seconds.
const DefaultExpiryHorizon = 7 * 24 * time.Hour

// ExpiryPolicy stamps creation/expiry timestamps onto new sessions.
// Enforcement is delegated to an external reaper; callers treat any record
// past its expiry as logically expired even before it is reclaimed.
type ExpiryPolicy struct {
	Horizon time.Duration
}

// Stamp returns whenCreated and whenExpired as epoch seconds.
func (p ExpiryPolicy) Stamp(now time.Time) (whenCreated, whenExpired int64) {
	horizon := p.Horizon
	if horizon <= 0 {
		horizon = DefaultExpiryHorizon
	}
	created := now.UTC().Unix()
	return created, created + int64(horizon/time.Second)
}

// Expired reports whether a record stamped with whenExpired is past its
// lifetime at the given instant.
func Expired(whenExpired int64, now time.Time) bool {
	return now.UTC().Unix() > whenExpired
}
