package game

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"octarcade/internal/metrics"
)

// RevealedTile is one revealed grid point.
type RevealedTile struct {
	Point  uint64 `json:"point"`
	IsMine bool   `json:"is_mine"`
}

type MinesSession struct {
	GameID         string    `json:"game_id"`
	BetAmount      uint64    `json:"bet_amount"`
	MineCount      uint64    `json:"mine_count"`
	Multiplier     uint64    `json:"multiplier"`
	RevealedPoints []uint64  `json:"revealed_points"`
	CreatedAt      time.Time `json:"created_at"`
}

type MinesOutcome string

const (
	MinesLost      MinesOutcome = "lost"
	MinesCashedOut MinesOutcome = "cashed_out"
	MinesEnded     MinesOutcome = "ended"
)

// MinesResult is the final board of the last destroyed session.
type MinesResult struct {
	GameID     string         `json:"game_id"`
	Outcome    MinesOutcome   `json:"outcome"`
	Multiplier uint64         `json:"multiplier"`
	BetAmount  uint64         `json:"bet_amount"`
	Payout     uint64         `json:"payout"`
	Revealed   []RevealedTile `json:"revealed"`
}

// MinesState folds mines_game events for one player. Every transition is
// checked against the current session, so re-delivered events are no-ops.
type MinesState struct {
	Session  *MinesSession
	Revealed []RevealedTile
	Last     *MinesResult
	settled  *lru.Cache[string, struct{}]
}

func NewMinesState() *MinesState {
	settled, _ := lru.New[string, struct{}](512)
	return &MinesState{settled: settled}
}

// Apply folds one event. It reports whether the state changed; a non-nil
// result is returned when the event destroyed the session.
func (s *MinesState) Apply(e Event) (bool, *MinesResult) {
	switch e.Kind {
	case KindGameCreated:
		return s.create(e), nil
	case KindTileRevealed:
		return s.reveal(e)
	case KindGameCashedOut:
		return s.end(e, MinesCashedOut)
	case KindGameEnded:
		return s.end(e, MinesEnded)
	}
	return false, nil
}

// Known reports whether point is already revealed in the live session.
func (s *MinesState) Known(point uint64) bool {
	for _, t := range s.Revealed {
		if t.Point == point {
			return true
		}
	}
	return false
}

func (s *MinesState) create(e Event) bool {
	id := e.Payload.Text("game_id")
	if id == "" || s.settled.Contains(id) {
		return false
	}
	if s.Session != nil {
		if s.Session.GameID == id {
			return false
		}
		// A newer game supersedes one whose end we never saw.
		s.settled.Add(s.Session.GameID, struct{}{})
	}
	s.Session = &MinesSession{
		GameID:         id,
		BetAmount:      e.Payload.Uint("bet_amount"),
		MineCount:      e.Payload.Uint("mine_count"),
		Multiplier:     BaseMultiplier,
		RevealedPoints: []uint64{},
		CreatedAt:      eventTime(e),
	}
	s.Revealed = nil
	return true
}

func (s *MinesState) reveal(e Event) (bool, *MinesResult) {
	if !s.matches(e) {
		return false, nil
	}
	point := e.Payload.Uint("point")
	if point >= MinesGridSize || s.Known(point) {
		return false, nil
	}
	mine := e.Payload.Bool("is_mine")
	s.Revealed = append(s.Revealed, RevealedTile{Point: point, IsMine: mine})
	if mine {
		return true, s.destroy(MinesLost, 0)
	}
	if m := e.Payload.Uint("multiplier"); m > 0 {
		s.Session.Multiplier = m
	}
	s.Session.RevealedPoints = append(s.Session.RevealedPoints, point)
	return true, nil
}

func (s *MinesState) end(e Event, outcome MinesOutcome) (bool, *MinesResult) {
	if !s.matches(e) {
		return false, nil
	}
	return true, s.destroy(outcome, e.Payload.Uint("payout"))
}

// matches reports whether e belongs to the live session. Events without a
// game id are attributed to it.
func (s *MinesState) matches(e Event) bool {
	if s.Session == nil {
		return false
	}
	id := e.Payload.Text("game_id")
	return id == "" || id == s.Session.GameID
}

func (s *MinesState) destroy(outcome MinesOutcome, payout uint64) *MinesResult {
	r := &MinesResult{
		GameID:     s.Session.GameID,
		Outcome:    outcome,
		Multiplier: s.Session.Multiplier,
		BetAmount:  s.Session.BetAmount,
		Payout:     payout,
		Revealed:   append([]RevealedTile(nil), s.Revealed...),
	}
	s.settled.Add(s.Session.GameID, struct{}{})
	s.Session = nil
	s.Last = r
	return r
}

func eventTime(e Event) time.Time {
	if e.Timestamp == 0 {
		return time.Now()
	}
	return time.UnixMilli(int64(e.Timestamp))
}

type MinesSnapshot struct {
	Session  *MinesSession  `json:"session,omitempty"`
	Revealed []RevealedTile `json:"revealed"`
	Last     *MinesResult   `json:"last,omitempty"`
	Loading  bool           `json:"loading"`
	Stale    bool           `json:"stale"`
	Fairness *MinesFairness `json:"fairness,omitempty"`
	History  []HistoryEntry `json:"history"`
}

// MinesFairness commits to the seed the last submitted board was drawn from.
// ServerSeed stays empty until that session settles.
type MinesFairness struct {
	Commitment string `json:"commitment"`
	Nonce      uint64 `json:"nonce"`
	ServerSeed string `json:"server_seed,omitempty"`
}

// newSeed is replaced in tests.
var newSeed = GenerateSeed

// Mines controls the player's mines sessions.
type Mines struct {
	*base
	state    *MinesState
	inFlight bool
	synced   bool
	stale    bool
	nonce    uint64
	seed     string
	fair     *MinesFairness
}

func NewMines(settings Settings, deps Deps) *Mines {
	return &Mines{
		base:  newBase(GameTypeMines, settings, deps, MinesKinds, ScopePlayer),
		state: NewMinesState(),
	}
}

func (m *Mines) Start(ctx context.Context) error {
	return m.start(ctx, handlers{
		apply:   m.apply,
		publish: m.publish,
	})
}

func (m *Mines) State() MinesSnapshot {
	if s, ok := m.GetState().(MinesSnapshot); ok {
		return s
	}
	return MinesSnapshot{}
}

// CreateGame stakes amount on a new board with mineCount mines. The session
// appears once the GameCreated event is observed.
func (m *Mines) CreateGame(ctx context.Context, amount uint64, mineCount int) error {
	if amount == 0 {
		return ErrInvalidBet
	}
	if mineCount < MinMineCount || mineCount > MaxMineCount {
		return ErrInvalidMineCount
	}
	var (
		nonce uint64
		err   error
	)
	if e := m.do(ctx, func() {
		if err = m.ready(); err != nil {
			return
		}
		if m.inFlight {
			err = ErrActionInFlight
			return
		}
		if m.state.Session != nil {
			err = ErrSessionActive
			return
		}
		m.nonce++
		nonce = m.nonce
		m.inFlight = true
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	seed, positions, err := m.board(nonce, mineCount)
	if err != nil {
		_ = m.post(func() { m.inFlight = false })
		m.notify(LevelError, "Failed to create game: %v", err)
		return err
	}
	g := m.settings.Game
	_, err = m.submit(ctx, "create_game", g.ObjectID, amount, mineCount, positions)
	_ = m.post(func() {
		m.inFlight = false
		if err == nil {
			m.seed = seed
			m.fair = &MinesFairness{Commitment: CommitSeed(seed), Nonce: nonce}
		}
	})
	if err != nil {
		m.notify(LevelError, "Failed to create game: %v", err)
		return err
	}
	m.notify(LevelSuccess, "Game created with %d mines for %s", mineCount, FormatAmount(amount))
	return nil
}

// board draws the mine layout for nonce from a fresh server seed.
func (m *Mines) board(nonce uint64, mineCount int) (string, []int, error) {
	seed, err := newSeed()
	if err != nil {
		return "", nil, err
	}
	positions, err := MinePositions(seed, m.settings.Player, nonce, mineCount)
	if err != nil {
		return "", nil, err
	}
	return seed, positions, nil
}

// RevealTile reveals point on the live board. It reports false without
// contacting the authority when there is no session, the point is already
// revealed, or another action is pending.
func (m *Mines) RevealTile(ctx context.Context, point uint64) (bool, error) {
	if point >= MinesGridSize {
		return false, ErrInvalidTile
	}
	var (
		gameID string
		err    error
	)
	if e := m.do(ctx, func() {
		if err = m.ready(); err != nil {
			return
		}
		if m.state.Session == nil || m.state.Known(point) || m.inFlight {
			return
		}
		gameID = m.state.Session.GameID
		m.inFlight = true
	}); e != nil {
		return false, e
	}
	if err != nil || gameID == "" {
		return false, err
	}

	_, err = m.submit(ctx, "reveal_tile", m.settings.Game.ObjectID, gameID, point)
	_ = m.post(func() { m.inFlight = false })
	if err != nil {
		m.notify(LevelError, "Failed to reveal tile: %v", err)
		return true, err
	}
	return true, nil
}

// Cashout ends the live session at its accumulated multiplier.
func (m *Mines) Cashout(ctx context.Context) error {
	var (
		gameID string
		err    error
	)
	if e := m.do(ctx, func() {
		if err = m.ready(); err != nil {
			return
		}
		if m.state.Session == nil {
			err = ErrNoActiveSession
			return
		}
		if m.inFlight {
			err = ErrActionInFlight
			return
		}
		gameID = m.state.Session.GameID
		m.inFlight = true
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	_, err = m.submit(ctx, "cashout", m.settings.Game.ObjectID, gameID)
	_ = m.post(func() { m.inFlight = false })
	if err != nil {
		m.notify(LevelError, "Failed to cash out: %v", err)
		return err
	}
	return nil
}

func (m *Mines) apply(batch Batch) {
	if batch.Gap {
		m.stale = true
	}
	for _, e := range batch.Events {
		changed, result := m.state.Apply(e)
		if !changed {
			metrics.EventsIgnored.WithLabelValues(string(GameTypeMines), string(e.Kind)).Inc()
			continue
		}
		metrics.EventsApplied.WithLabelValues(string(GameTypeMines), string(e.Kind)).Inc()
		m.stale = false
		if result != nil {
			m.settle(*result, e)
		} else if m.synced && e.Kind == KindTileRevealed {
			m.notify(LevelSuccess, "Safe tile, multiplier now %s", FormatMultiplier(m.state.Session.Multiplier))
		}
	}
	m.synced = true
}

func (m *Mines) settle(r MinesResult, e Event) {
	if m.fair != nil && m.fair.ServerSeed == "" {
		m.fair.ServerSeed = m.seed
	}
	won := r.Outcome == MinesCashedOut
	settled(GameTypeMines, won)
	m.record(HistoryEntry{
		Game:       GameTypeMines,
		RoundID:    r.GameID,
		Multiplier: r.Multiplier,
		BetAmount:  r.BetAmount,
		Payout:     r.Payout,
		Won:        won,
		Timestamp:  eventTime(e),
	})
	if !m.synced {
		return
	}
	switch r.Outcome {
	case MinesLost:
		m.notify(LevelError, "Hit a mine, lost %s", FormatAmount(r.BetAmount))
	case MinesCashedOut:
		m.notify(LevelSuccess, "Cashed out at %s", FormatMultiplier(r.Multiplier))
	}
}

func (m *Mines) publish() {
	var sess *MinesSession
	if m.state.Session != nil {
		cp := *m.state.Session
		cp.RevealedPoints = append([]uint64(nil), cp.RevealedPoints...)
		sess = &cp
	}
	var fair *MinesFairness
	if m.fair != nil {
		cp := *m.fair
		fair = &cp
	}
	m.setState(MinesSnapshot{
		Session:  sess,
		Revealed: append([]RevealedTile{}, m.state.Revealed...),
		Last:     m.state.Last,
		Loading:  m.inFlight,
		Stale:    m.stale,
		Fairness: fair,
		History:  m.history.Entries(),
	})
}
