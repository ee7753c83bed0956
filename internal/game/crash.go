package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"octarcade/internal/chain"
	"octarcade/internal/config"
	"octarcade/internal/metrics"
)

const playerGameMarker = "PlayerGame"

type CrashStatus string

const (
	CrashIdle    CrashStatus = "idle"
	CrashBetting CrashStatus = "betting"
	CrashFlying  CrashStatus = "flying"
)

// CrashSession is the player's PlayerGame object as read after a bet.
type CrashSession struct {
	GameID     string    `json:"game_id"`
	BetAmount  uint64    `json:"bet_amount"`
	CrashPoint uint64    `json:"crash_point"`
	Status     uint64    `json:"status"`
	StartTime  uint64    `json:"start_time"`
	CreatedAt  time.Time `json:"created_at"`
}

// CrashSettlement is the terminal outcome of a session.
type CrashSettlement struct {
	GameID     string
	BetAmount  uint64
	Multiplier uint64
	Payout     uint64
	Won        bool
}

// CrashState is the crash state machine. It has no I/O; the controller
// drives it from its loop.
type CrashState struct {
	Status  CrashStatus
	Session *CrashSession
	Clock   *MultiplierClock

	// CashoutPending is set while a cashout is awaiting the authority.
	CashoutPending bool
	Proposed       uint64
	// CrashPending is set when the clock reached the crash point while a
	// cashout was pending. The authority's answer settles the session.
	CrashPending bool
}

func NewCrashState() *CrashState {
	return &CrashState{Status: CrashIdle}
}

// Bet moves Idle to Betting with the confirmed session.
func (s *CrashState) Bet(sess CrashSession) error {
	if s.Session != nil {
		return ErrSessionActive
	}
	s.Session = &sess
	s.Status = CrashBetting
	return nil
}

// Fly starts the local ramp. No authority round-trip is needed.
func (s *CrashState) Fly() error {
	switch s.Status {
	case CrashIdle:
		return ErrNoActiveSession
	case CrashFlying:
		return nil
	}
	s.Status = CrashFlying
	s.Clock = NewMultiplierClock(s.Session.CrashPoint)
	return nil
}

// Multiplier is the displayed value: 1.00x until flying.
func (s *CrashState) Multiplier() uint64 {
	if s.Clock == nil {
		return BaseMultiplier
	}
	return s.Clock.Value()
}

// ClockActive reports whether the ramp should be ticking.
func (s *CrashState) ClockActive() bool {
	return s.Status == CrashFlying && s.Clock != nil && !s.Clock.Crashed()
}

// Tick advances the ramp. It returns a loss settlement when the crash
// point is reached with no cashout pending.
func (s *CrashState) Tick() (CrashSettlement, bool) {
	if !s.ClockActive() {
		return CrashSettlement{}, false
	}
	if _, crashed := s.Clock.Tick(); !crashed {
		return CrashSettlement{}, false
	}
	if s.CashoutPending {
		s.CrashPending = true
		return CrashSettlement{}, false
	}
	return s.lose(), true
}

// BeginCashout captures the multiplier to propose to the authority.
func (s *CrashState) BeginCashout() (uint64, error) {
	switch {
	case s.Session == nil:
		return 0, ErrNoActiveSession
	case s.Status != CrashFlying:
		return 0, ErrNotFlying
	case s.CashoutPending:
		return 0, ErrActionInFlight
	}
	s.CashoutPending = true
	s.Proposed = s.Clock.Value()
	return s.Proposed, nil
}

// ResolveCashout applies the authority's answer to a pending cashout.
// A rejection after the local crash point is a loss; a rejection before it
// leaves the session flying.
func (s *CrashState) ResolveCashout(accepted bool) (CrashSettlement, bool) {
	if !s.CashoutPending || s.Session == nil {
		return CrashSettlement{}, false
	}
	s.CashoutPending = false
	if accepted {
		st := CrashSettlement{
			GameID:     s.Session.GameID,
			BetAmount:  s.Session.BetAmount,
			Multiplier: s.Proposed,
			Payout:     ApplyMultiplier(s.Session.BetAmount, s.Proposed),
			Won:        true,
		}
		s.Reset()
		return st, true
	}
	if s.CrashPending || s.Clock.Crashed() {
		return s.lose(), true
	}
	s.Proposed = 0
	return CrashSettlement{}, false
}

func (s *CrashState) lose() CrashSettlement {
	st := CrashSettlement{
		GameID:     s.Session.GameID,
		BetAmount:  s.Session.BetAmount,
		Multiplier: s.Session.CrashPoint,
	}
	s.Reset()
	return st
}

// Reset destroys the session and the clock with it.
func (s *CrashState) Reset() {
	s.Status = CrashIdle
	s.Session = nil
	s.Clock = nil
	s.CashoutPending = false
	s.CrashPending = false
	s.Proposed = 0
}

// CrashSnapshot is the published view of the crash controller.
type CrashSnapshot struct {
	Status         CrashStatus    `json:"status"`
	Session        *CrashSession  `json:"session,omitempty"`
	Multiplier     uint64         `json:"multiplier"`
	Display        string         `json:"display"`
	CashoutPending bool           `json:"cashout_pending"`
	Loading        bool           `json:"loading"`
	History        []HistoryEntry `json:"history"`
}

// Crash controls the player's crash sessions.
type Crash struct {
	*base
	state    *CrashState
	inFlight bool
	ticker   Ticker
	settled  *lru.Cache[string, struct{}]
}

func NewCrash(settings Settings, deps Deps) *Crash {
	settled, _ := lru.New[string, struct{}](256)
	return &Crash{
		base:    newBase(GameTypeCrash, settings, deps, nil, ScopePlayer),
		state:   NewCrashState(),
		settled: settled,
	}
}

func (c *Crash) Start(ctx context.Context) error {
	return c.start(ctx, handlers{
		clock:   c.clockC,
		tick:    c.tick,
		publish: c.publish,
		cleanup: c.stopClock,
	})
}

// State returns the last published snapshot.
func (c *Crash) State() CrashSnapshot {
	if s, ok := c.GetState().(CrashSnapshot); ok {
		return s
	}
	return CrashSnapshot{Status: CrashIdle, Multiplier: BaseMultiplier}
}

// PlaceBet stakes amount and waits for the authority to create the
// session object. It returns ErrSessionLookupFailed if the object cannot be
// found after the settle delay.
func (c *Crash) PlaceBet(ctx context.Context, amount uint64) error {
	if amount == 0 {
		return ErrInvalidBet
	}
	var err error
	if e := c.do(ctx, func() {
		if err = c.ready(); err != nil {
			return
		}
		if c.inFlight {
			err = ErrActionInFlight
			return
		}
		if c.state.Session != nil {
			err = ErrSessionActive
			return
		}
		c.inFlight = true
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	sess, err := c.placeBet(ctx, amount)
	perr := c.post(func() {
		c.inFlight = false
		if err != nil {
			return
		}
		err = c.state.Bet(sess)
	})
	if err == nil && perr != nil {
		err = perr
	}
	if err == nil {
		c.notify(LevelSuccess, "Bet placed: %s, take off when ready", FormatAmount(sess.BetAmount))
	}
	return err
}

func (c *Crash) placeBet(ctx context.Context, amount uint64) (CrashSession, error) {
	g := c.settings.Game
	if _, err := c.submit(ctx, "place_bet", g.ObjectID, amount, config.ClockObjectID); err != nil {
		c.notify(LevelError, "Failed to place bet: %v", err)
		return CrashSession{}, err
	}

	if err := wait(ctx, c.settings.SettleDelay); err != nil {
		return CrashSession{}, err
	}

	objects, err := c.deps.Objects.GetOwnedObjects(ctx, c.settings.Player)
	if err != nil {
		c.notify(LevelError, "Bet placed but the game could not be loaded: %v", err)
		return CrashSession{}, fmt.Errorf("%w: %v", ErrSessionLookupFailed, err)
	}
	sess, ok := c.findSession(objects)
	if !ok {
		c.notify(LevelError, "Bet placed but the game could not be found")
		return CrashSession{}, ErrSessionLookupFailed
	}
	return sess, nil
}

// findSession picks the newest PlayerGame object not already settled.
func (c *Crash) findSession(objects []chain.OwnedObject) (CrashSession, bool) {
	var best CrashSession
	found := false
	for _, obj := range objects {
		if !strings.Contains(obj.Type, playerGameMarker) || c.settled.Contains(obj.ObjectID) {
			continue
		}
		fields := decodePayload(obj.Fields)
		sess := CrashSession{
			GameID:     obj.ObjectID,
			BetAmount:  fields.Uint("bet_amount"),
			CrashPoint: fields.Uint("crash_point"),
			Status:     fields.Uint("status"),
			StartTime:  fields.Uint("start_time"),
			CreatedAt:  time.Now(),
		}
		if !found || sess.StartTime > best.StartTime {
			best, found = sess, true
		}
	}
	return best, found
}

// StartFlying starts the multiplier ramp for the current session.
func (c *Crash) StartFlying(ctx context.Context) error {
	var err error
	if e := c.do(ctx, func() {
		err = c.state.Fly()
	}); e != nil {
		return e
	}
	return err
}

// Cashout proposes the current multiplier to the authority.
func (c *Crash) Cashout(ctx context.Context) error {
	var (
		proposed uint64
		gameID   string
		err      error
	)
	if e := c.do(ctx, func() {
		if err = c.ready(); err != nil {
			return
		}
		if c.inFlight {
			err = ErrActionInFlight
			return
		}
		if proposed, err = c.state.BeginCashout(); err != nil {
			return
		}
		gameID = c.state.Session.GameID
		c.inFlight = true
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	g := c.settings.Game
	_, err = c.submit(ctx, "cashout", g.ObjectID, gameID, proposed, config.ClockObjectID)
	if err != nil {
		c.notify(LevelError, "Cashout at %s failed: %v", FormatMultiplier(proposed), err)
	}
	_ = c.post(func() {
		c.inFlight = false
		if st, ok := c.state.ResolveCashout(err == nil); ok {
			c.settle(st)
		}
	})
	return err
}

// Reset clears the local session, stopping the ramp.
func (c *Crash) Reset(ctx context.Context) error {
	return c.do(ctx, func() {
		c.state.Reset()
	})
}

func (c *Crash) tick() {
	if st, ok := c.state.Tick(); ok {
		c.settle(st)
	}
}

// clockC owns the ramp ticker: it exists exactly while the clock is active.
func (c *Crash) clockC() <-chan time.Time {
	active := c.state.ClockActive()
	switch {
	case active && c.ticker == nil:
		c.ticker = c.deps.NewTicker(c.settings.ClockTick)
		metrics.CrashClockRunning.Set(1)
	case !active && c.ticker != nil:
		c.stopClock()
	}
	if c.ticker == nil {
		return nil
	}
	return c.ticker.C()
}

func (c *Crash) stopClock() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
	metrics.CrashClockRunning.Set(0)
}

func (c *Crash) settle(st CrashSettlement) {
	c.settled.Add(st.GameID, struct{}{})
	settled(GameTypeCrash, st.Won)
	c.record(HistoryEntry{
		Game:       GameTypeCrash,
		RoundID:    st.GameID,
		Multiplier: st.Multiplier,
		BetAmount:  st.BetAmount,
		Payout:     st.Payout,
		Won:        st.Won,
		Timestamp:  time.Now(),
	})
	if st.Won {
		c.notify(LevelSuccess, "Cashed out at %s: %s", FormatMultiplier(st.Multiplier), FormatAmount(st.Payout))
		return
	}
	c.notify(LevelError, "Crashed at %s, lost %s", FormatMultiplier(st.Multiplier), FormatAmount(st.BetAmount))
}

func (c *Crash) publish() {
	var sess *CrashSession
	if c.state.Session != nil {
		cp := *c.state.Session
		sess = &cp
	}
	m := c.state.Multiplier()
	c.setState(CrashSnapshot{
		Status:         c.state.Status,
		Session:        sess,
		Multiplier:     m,
		Display:        FormatMultiplier(m),
		CashoutPending: c.state.CashoutPending,
		Loading:        c.inFlight,
		History:        c.history.Entries(),
	})
}
