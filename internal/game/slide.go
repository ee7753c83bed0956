package game

import (
	"context"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"octarcade/internal/metrics"
)

type SlideStatus string

const (
	SlideWaiting SlideStatus = "waiting"
	SlideBetting SlideStatus = "betting"
	SlidePlaying SlideStatus = "playing"
)

// SlideBet is a bet seen on the shared round, from any player.
type SlideBet struct {
	Player           string `json:"player"`
	Amount           uint64 `json:"amount"`
	TargetMultiplier uint64 `json:"target_multiplier"`
}

// PlayerBet is the local player's bet on a round.
type PlayerBet struct {
	RoundID          uint64 `json:"round_id"`
	Amount           uint64 `json:"amount"`
	TargetMultiplier uint64 `json:"target_multiplier"`
	Resolved         bool   `json:"resolved"`
	Won              bool   `json:"won"`
	Payout           uint64 `json:"payout"`
}

// SlideEffect describes what an applied event did.
type SlideEffect struct {
	Changed  bool
	Played   bool
	Resolved bool
}

// SlideState folds the shared slide round. The local player only observes
// it, except for their own bet record.
type SlideState struct {
	Status           SlideStatus
	RoundID          uint64
	ResultMultiplier uint64
	Bets             []SlideBet
	PlayerBet        *PlayerBet

	player   string
	hasRound bool
	seen     *lru.Cache[string, struct{}]
}

func NewSlideState(player string) *SlideState {
	seen, _ := lru.New[string, struct{}](1024)
	return &SlideState{Status: SlideWaiting, player: player, seen: seen}
}

func (s *SlideState) Apply(e Event) SlideEffect {
	switch e.Kind {
	case KindBettingPhase:
		return s.bettingPhase(e)
	case KindBetPlaced:
		return s.betPlaced(e)
	case KindRoundPlaying:
		return s.roundPlaying(e)
	case KindBetResult:
		return s.betResult(e)
	}
	return SlideEffect{}
}

func (s *SlideState) bettingPhase(e Event) SlideEffect {
	round := e.Payload.Uint("round_id")
	if s.hasRound && round <= s.RoundID {
		return SlideEffect{}
	}
	s.newRound(round)
	s.Status = SlideBetting
	return SlideEffect{Changed: true}
}

func (s *SlideState) newRound(round uint64) {
	s.RoundID = round
	s.hasRound = true
	s.ResultMultiplier = 0
	s.Bets = nil
	s.seen.Purge()
}

func (s *SlideState) betPlaced(e Event) SlideEffect {
	if s.seen.Contains(e.Key()) {
		return SlideEffect{}
	}
	if e.Payload.Has("round_id") && (!s.hasRound || e.Payload.Uint("round_id") != s.RoundID) {
		return SlideEffect{}
	}
	s.seen.Add(e.Key(), struct{}{})
	bet := SlideBet{
		Player:           e.Player,
		Amount:           e.Payload.Uint("bet_amount"),
		TargetMultiplier: e.Payload.Uint("target_multiplier"),
	}
	s.Bets = append(s.Bets, bet)
	if s.player != "" && e.Player == s.player {
		s.PlayerBet = &PlayerBet{
			RoundID:          s.RoundID,
			Amount:           bet.Amount,
			TargetMultiplier: bet.TargetMultiplier,
		}
	}
	return SlideEffect{Changed: true}
}

func (s *SlideState) roundPlaying(e Event) SlideEffect {
	round := e.Payload.Uint("round_id")
	if s.hasRound {
		if round < s.RoundID || (round == s.RoundID && s.Status == SlidePlaying) {
			return SlideEffect{}
		}
	}
	if !s.hasRound || round > s.RoundID {
		s.newRound(round)
	}
	s.Status = SlidePlaying
	s.ResultMultiplier = e.Payload.Uint("result_multiplier")
	return SlideEffect{Changed: true, Played: true}
}

func (s *SlideState) betResult(e Event) SlideEffect {
	if s.player == "" || e.Player != s.player || s.PlayerBet == nil || s.PlayerBet.Resolved {
		return SlideEffect{}
	}
	if e.Payload.Has("round_id") && e.Payload.Uint("round_id") != s.PlayerBet.RoundID {
		return SlideEffect{}
	}
	s.PlayerBet.Resolved = true
	s.PlayerBet.Won = e.Payload.Bool("won")
	s.PlayerBet.Payout = e.Payload.Uint("payout")
	return SlideEffect{Changed: true, Resolved: true}
}

type SlideSnapshot struct {
	Status           SlideStatus    `json:"status"`
	RoundID          uint64         `json:"round_id"`
	ResultMultiplier uint64         `json:"result_multiplier"`
	Bets             []SlideBet     `json:"bets"`
	PlayerBet        *PlayerBet     `json:"player_bet,omitempty"`
	Loading          bool           `json:"loading"`
	Stale            bool           `json:"stale"`
	History          []HistoryEntry `json:"history"`
}

// Slide follows the shared slide round and places the player's bets.
type Slide struct {
	*base
	state    *SlideState
	inFlight bool
	synced   bool
	stale    bool
}

func NewSlide(settings Settings, deps Deps) *Slide {
	b := newBase(GameTypeSlide, settings, deps, SlideKinds, ScopeRound)
	return &Slide{
		base:  b,
		state: NewSlideState(b.settings.Player),
	}
}

func (s *Slide) Start(ctx context.Context) error {
	return s.start(ctx, handlers{
		apply:   s.apply,
		publish: s.publish,
	})
}

func (s *Slide) State() SlideSnapshot {
	if snap, ok := s.GetState().(SlideSnapshot); ok {
		return snap
	}
	return SlideSnapshot{Status: SlideWaiting}
}

// PlaceBet bets amount that the round reaches target (scaled by 100).
func (s *Slide) PlaceBet(ctx context.Context, amount, target uint64) error {
	if amount == 0 {
		return ErrInvalidBet
	}
	if target < BaseMultiplier {
		return ErrInvalidTarget
	}
	var err error
	if e := s.do(ctx, func() {
		if err = s.ready(); err != nil {
			return
		}
		if s.inFlight {
			err = ErrActionInFlight
			return
		}
		s.inFlight = true
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	_, err = s.submit(ctx, "place_bet", s.settings.Game.ObjectID, amount, target)
	_ = s.post(func() { s.inFlight = false })
	if err != nil {
		s.notify(LevelError, "Failed to place bet: %v", err)
		return err
	}
	s.notify(LevelSuccess, "Bet placed: %s at %s", FormatAmount(amount), FormatMultiplier(target))
	return nil
}

func (s *Slide) apply(batch Batch) {
	if batch.Gap {
		s.stale = true
	}
	for _, e := range batch.Events {
		eff := s.state.Apply(e)
		if !eff.Changed {
			metrics.EventsIgnored.WithLabelValues(string(GameTypeSlide), string(e.Kind)).Inc()
			continue
		}
		metrics.EventsApplied.WithLabelValues(string(GameTypeSlide), string(e.Kind)).Inc()
		if e.Kind == KindBettingPhase || e.Kind == KindRoundPlaying {
			s.stale = false
		}
		if eff.Played {
			s.record(HistoryEntry{
				Game:       GameTypeSlide,
				RoundID:    strconv.FormatUint(s.state.RoundID, 10),
				Multiplier: s.state.ResultMultiplier,
				Timestamp:  eventTime(e),
			})
		}
		if eff.Resolved {
			s.resolved(*s.state.PlayerBet)
		}
	}
	s.synced = true
}

func (s *Slide) resolved(bet PlayerBet) {
	settled(GameTypeSlide, bet.Won)
	if !s.synced {
		return
	}
	if bet.Won {
		s.notify(LevelSuccess, "Round %d won: %s", bet.RoundID, FormatAmount(bet.Payout))
		return
	}
	s.notify(LevelError, "Round %d lost %s", bet.RoundID, FormatAmount(bet.Amount))
}

func (s *Slide) publish() {
	var bet *PlayerBet
	if s.state.PlayerBet != nil {
		cp := *s.state.PlayerBet
		bet = &cp
	}
	s.setState(SlideSnapshot{
		Status:           s.state.Status,
		RoundID:          s.state.RoundID,
		ResultMultiplier: s.state.ResultMultiplier,
		Bets:             append([]SlideBet{}, s.state.Bets...),
		PlayerBet:        bet,
		Loading:          s.inFlight,
		Stale:            s.stale,
		History:          s.history.Entries(),
	})
}
