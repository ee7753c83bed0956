package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octarcade/internal/config"
)

func slideEvent(digest string, ts uint64, kind Kind, payload map[string]any) Event {
	return event(digest, ts, kind, payload)
}

func TestSlideState_RoundCycle(t *testing.T) {
	s := NewSlideState(testPlayer)
	assert.Equal(t, SlideWaiting, s.Status)

	eff := s.Apply(slideEvent("t1", 1, KindBettingPhase, map[string]any{"round_id": 7}))
	require.True(t, eff.Changed)
	assert.Equal(t, SlideBetting, s.Status)
	assert.Equal(t, uint64(7), s.RoundID)

	s.Apply(slideEvent("t2", 2, KindBetPlaced, map[string]any{"round_id": 7, "player": "0xother", "bet_amount": 5, "target_multiplier": 300}))
	s.Apply(slideEvent("t3", 3, KindBetPlaced, map[string]any{"round_id": 7, "player": testPlayer, "bet_amount": 9, "target_multiplier": 150}))
	assert.Len(t, s.Bets, 2)
	require.NotNil(t, s.PlayerBet)
	assert.Equal(t, uint64(9), s.PlayerBet.Amount)
	assert.Equal(t, uint64(150), s.PlayerBet.TargetMultiplier)
	assert.False(t, s.PlayerBet.Resolved)

	eff = s.Apply(slideEvent("t4", 4, KindRoundPlaying, map[string]any{"round_id": 7, "result_multiplier": 212}))
	assert.True(t, eff.Played)
	assert.Equal(t, SlidePlaying, s.Status)
	assert.Equal(t, uint64(212), s.ResultMultiplier)

	eff = s.Apply(slideEvent("t5", 5, KindBetResult, map[string]any{"round_id": 7, "player": testPlayer, "won": true, "payout": 13}))
	assert.True(t, eff.Resolved)
	assert.True(t, s.PlayerBet.Won)
	assert.Equal(t, uint64(13), s.PlayerBet.Payout)

	eff = s.Apply(slideEvent("t6", 6, KindBettingPhase, map[string]any{"round_id": 8}))
	require.True(t, eff.Changed)
	assert.Empty(t, s.Bets, "bets are per round")
	assert.Zero(t, s.ResultMultiplier)
}

func TestSlideState_BetResultForOtherPlayer(t *testing.T) {
	s := NewSlideState(testPlayer)
	s.Apply(slideEvent("t1", 1, KindBettingPhase, map[string]any{"round_id": 1}))
	s.Apply(slideEvent("t2", 2, KindBetPlaced, map[string]any{"round_id": 1, "player": testPlayer, "bet_amount": 9, "target_multiplier": 150}))
	before := *s.PlayerBet

	eff := s.Apply(slideEvent("t3", 3, KindBetResult, map[string]any{"round_id": 1, "player": "0xother", "won": true, "payout": 99}))
	assert.False(t, eff.Changed)
	assert.Equal(t, before, *s.PlayerBet)
}

func TestSlideState_ReplayIsIdempotent(t *testing.T) {
	batch := []Event{
		slideEvent("t1", 1, KindBettingPhase, map[string]any{"round_id": 3}),
		slideEvent("t2", 2, KindBetPlaced, map[string]any{"round_id": 3, "player": "0xother", "bet_amount": 5, "target_multiplier": 300}),
		slideEvent("t3", 3, KindBetPlaced, map[string]any{"round_id": 3, "player": testPlayer, "bet_amount": 9, "target_multiplier": 150}),
		slideEvent("t4", 4, KindRoundPlaying, map[string]any{"round_id": 3, "result_multiplier": 140}),
		slideEvent("t5", 5, KindBetResult, map[string]any{"round_id": 3, "player": testPlayer, "won": false, "payout": 0}),
	}

	s := NewSlideState(testPlayer)
	for _, e := range batch {
		s.Apply(e)
	}
	bets := len(s.Bets)

	for _, e := range batch {
		eff := s.Apply(e)
		assert.False(t, eff.Changed, "replayed %s applied", e.Kind)
	}
	assert.Len(t, s.Bets, bets)
	assert.Equal(t, SlidePlaying, s.Status)
}

func TestSlideState_StaleRoundsIgnored(t *testing.T) {
	s := NewSlideState(testPlayer)
	s.Apply(slideEvent("t1", 1, KindBettingPhase, map[string]any{"round_id": 5}))

	assert.False(t, s.Apply(slideEvent("t0", 0, KindBettingPhase, map[string]any{"round_id": 4})).Changed)
	assert.False(t, s.Apply(slideEvent("t9", 0, KindRoundPlaying, map[string]any{"round_id": 4, "result_multiplier": 500})).Changed)
	assert.False(t, s.Apply(slideEvent("t8", 0, KindBetPlaced, map[string]any{"round_id": 4, "player": testPlayer, "bet_amount": 1})).Changed)
	assert.Nil(t, s.PlayerBet)
	assert.Equal(t, uint64(5), s.RoundID)
}

func TestSlide_FeedAndBet(t *testing.T) {
	feed := &fakeFeed{}
	feed.set(
		rawEvent("t2", 2, "RoundPlaying", map[string]any{"round_id": "11", "result_multiplier": "250"}),
		rawEvent("t1", 1, "BettingPhase", map[string]any{"round_id": "11"}),
	)
	sub := &fakeSubmitter{}
	tickers := &fakeTickers{}
	slide := NewSlide(testSettings(config.ModuleSlide), Deps{
		Events:    feed,
		Submitter: sub,
		NewTicker: tickers.New,
	})
	require.NoError(t, slide.Start(context.Background()))
	defer slide.Stop()
	idle(t, slide.base, feed)

	st := slide.State()
	assert.Equal(t, SlidePlaying, st.Status)
	assert.Equal(t, uint64(11), st.RoundID)
	require.Len(t, st.History, 1)
	assert.Equal(t, "11", st.History[0].RoundID)
	assert.Equal(t, uint64(250), st.History[0].Multiplier)

	// the same window again adds nothing
	pollOnce(t, slide.base, feed, tickers)
	assert.Len(t, slide.State().History, 1)

	assert.ErrorIs(t, slide.PlaceBet(context.Background(), 1e9, 99), ErrInvalidTarget)
	require.NoError(t, slide.PlaceBet(context.Background(), 1e9, 200))
	calls := sub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "0xpkg::slide_game::place_bet", calls[0].Target)
	assert.Equal(t, []any{"0xobj", uint64(1e9), uint64(200)}, calls[0].Args)
}
