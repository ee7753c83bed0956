package game

import "errors"

// Precondition errors. They are returned before any network call is made.
var (
	ErrNoPlayer         = errors.New("wallet not connected")
	ErrNotConfigured    = errors.New("game not deployed")
	ErrNoActiveSession  = errors.New("no active game")
	ErrSessionActive    = errors.New("a game is already in progress")
	ErrActionInFlight   = errors.New("another action is still pending")
	ErrNotFlying        = errors.New("flight has not started")
	ErrInvalidBet       = errors.New("bet amount must be greater than zero")
	ErrInvalidMineCount = errors.New("mine count must be between 1 and 24")
	ErrInvalidTile      = errors.New("tile must be between 0 and 24")
	ErrInvalidHold      = errors.New("hold positions must be distinct indexes between 0 and 4")
	ErrInvalidTarget    = errors.New("target multiplier must be at least 1.00x")
)

// ErrSessionLookupFailed reports that a bet was accepted but the resulting
// session object could not be found afterwards. The caller decides whether
// to retry.
var ErrSessionLookupFailed = errors.New("game session not found after placing bet")

// ErrStopped is returned when a controller is no longer running.
var ErrStopped = errors.New("controller stopped")
