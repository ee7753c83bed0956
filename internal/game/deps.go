package game

import (
	"context"
	"encoding/json"
	"time"

	"octarcade/internal/chain"
	"octarcade/internal/config"
)

// ObjectSource looks up objects owned by an address.
type ObjectSource interface {
	GetOwnedObjects(ctx context.Context, owner string) ([]chain.OwnedObject, error)
}

// Submitter executes a constructed call on the authority.
type Submitter interface {
	Submit(ctx context.Context, call chain.Call) (chain.Receipt, error)
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier surfaces outcomes to the player.
type Notifier interface {
	Notify(game GameType, level Level, message string)
}

// Publisher fans out state snapshots.
type Publisher interface {
	Broadcast(message interface{})
}

// Recorder persists settled history entries outside the process.
type Recorder interface {
	Push(ctx context.Context, game string, entry interface{}) error
	Recent(ctx context.Context, game string) ([]json.RawMessage, error)
}

// Ticker is the part of time.Ticker the controllers need.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Deps are the external collaborators of a controller. Events, Objects and
// Recorder may be nil where a game does not use them.
type Deps struct {
	Events    EventSource
	Objects   ObjectSource
	Submitter Submitter
	Notifier  Notifier
	Publisher Publisher
	Recorder  Recorder
	NewTicker TickerFactory
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.NewTicker == nil {
		d.NewTicker = NewTimeTicker
	}
	return d
}

// Settings are the per-controller knobs, taken from config.Config.
type Settings struct {
	Player       string
	Game         config.GameConfig
	PollInterval time.Duration
	ClockTick    time.Duration
	SettleDelay  time.Duration
	PageLimit    int
	HistorySize  int
}

// SettingsFor derives the settings of one game from the process config.
func SettingsFor(cfg *config.Config, game GameType) Settings {
	g, _ := cfg.Game(string(game))
	return Settings{
		Player:       cfg.Player,
		Game:         g,
		PollInterval: cfg.PollInterval,
		ClockTick:    cfg.ClockTick,
		SettleDelay:  cfg.SettleDelay,
		PageLimit:    cfg.EventPageLimit,
		HistorySize:  cfg.HistorySize,
	}
}

func (s Settings) withDefaults() Settings {
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
	if s.ClockTick <= 0 {
		s.ClockTick = 100 * time.Millisecond
	}
	if s.PageLimit <= 0 {
		s.PageLimit = 50
	}
	if s.HistorySize <= 0 {
		s.HistorySize = 10
	}
	return s
}

type nopNotifier struct{}

func (nopNotifier) Notify(GameType, Level, string) {}

type nopPublisher struct{}

func (nopPublisher) Broadcast(interface{}) {}
