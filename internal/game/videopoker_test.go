package game

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octarcade/internal/config"
)

func newPoker(t *testing.T, sub *fakeSubmitter) (*VideoPoker, *recordingNotifier) {
	t.Helper()
	notes := &recordingNotifier{}
	p := NewVideoPoker(testSettings(config.ModuleVideoPoker), Deps{Submitter: sub, Notifier: notes})
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { p.Stop() })
	return p, notes
}

func TestVideoPoker_DealUsesDigestDeck(t *testing.T) {
	sub := &fakeSubmitter{digest: "9mXq"}
	p, notes := newPoker(t, sub)

	require.NoError(t, p.Deal(context.Background(), 1_000_000_000))

	deck := ShuffleDeck("9mXq", testPlayer, 1)
	s := p.State()
	assert.Equal(t, PhaseHold, s.Phase)
	assert.Equal(t, deck[:5], s.Cards)
	assert.Equal(t, uint64(1_000_000_000), s.BetAmount)
	assert.False(t, s.Loading)

	calls := sub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "0xpkg::videopoker_game::deal", calls[0].Target)
	assert.Equal(t, []any{uint64(1_000_000_000)}, calls[0].Args)
	assert.Equal(t, 1, notes.count(LevelSuccess))

	assert.ErrorIs(t, p.Deal(context.Background(), 1), ErrSessionActive)
}

func TestVideoPoker_DrawHoldAll(t *testing.T) {
	sub := &fakeSubmitter{digest: "abc"}
	p, _ := newPoker(t, sub)
	require.NoError(t, p.Deal(context.Background(), 10))
	dealt := p.State().Cards

	result, err := p.Draw(context.Background(), []int{0, 1, 2, 3, 4})
	require.NoError(t, err)

	var hand Hand
	copy(hand[:], dealt)
	assert.Equal(t, Evaluate(hand), result)

	s := p.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Equal(t, dealt, s.Cards)
	assert.Equal(t, 10*result.Payout, s.Payout)
	require.Len(t, s.History, 1)
	assert.Equal(t, result.Won, s.History[0].Won)
	assert.Equal(t, result.Payout*100, s.History[0].Multiplier)
}

func TestVideoPoker_DrawReplacesFromDeck(t *testing.T) {
	sub := &fakeSubmitter{digest: "replace"}
	p, _ := newPoker(t, sub)
	require.NoError(t, p.Deal(context.Background(), 10))

	_, err := p.Draw(context.Background(), nil)
	require.NoError(t, err)

	deck := ShuffleDeck("replace", testPlayer, 1)
	assert.Equal(t, deck[5:10], p.State().Cards)
	assert.Equal(t, []any{[]int{}}, sub.Calls()[1].Args)

	// A finished hand can be followed by a new deal.
	require.NoError(t, p.Deal(context.Background(), 10))
	assert.Equal(t, ShuffleDeck("replace", testPlayer, 2)[:5], p.State().Cards)
}

func TestVideoPoker_PayoutSaturates(t *testing.T) {
	sub := &fakeSubmitter{digest: "whale"}
	p, _ := newPoker(t, sub)
	bet := uint64(math.MaxUint64 / 4)
	require.NoError(t, p.Deal(context.Background(), bet))
	require.NoError(t, p.do(context.Background(), func() {
		p.hand = Hand{mk(Ace, Spades), mk(King, Spades), mk(Queen, Spades), mk(Jack, Spades), mk(Ten, Spades)}
	}))

	result, err := p.Draw(context.Background(), []int{0, 1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, RoyalFlush, result.HandRank)

	s := p.State()
	assert.Equal(t, uint64(math.MaxUint64), s.Payout)
	require.Len(t, s.History, 1)
	assert.Equal(t, uint64(math.MaxUint64), s.History[0].Payout)
	assert.Equal(t, bet, s.History[0].BetAmount)
}

func TestVideoPoker_Preconditions(t *testing.T) {
	p, notes := newPoker(t, &fakeSubmitter{})

	tests := []struct {
		name  string
		holds []int
		want  error
	}{
		{"out of range", []int{5}, ErrInvalidHold},
		{"negative", []int{-1}, ErrInvalidHold},
		{"duplicate", []int{1, 1}, ErrInvalidHold},
		{"too many", []int{0, 1, 2, 3, 4, 0}, ErrInvalidHold},
		{"before deal", []int{0}, ErrNoActiveSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Draw(context.Background(), tt.holds)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.ErrorIs(t, p.Deal(context.Background(), 0), ErrInvalidBet)
	assert.Equal(t, 0, notes.count(LevelError), "precondition failures are not notified")
}

func TestVideoPoker_DealFailure(t *testing.T) {
	sub := &fakeSubmitter{}
	sub.setErr(errors.New("relay down"))
	p, notes := newPoker(t, sub)

	err := p.Deal(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deal")
	assert.Equal(t, PhaseDeal, p.State().Phase)
	assert.False(t, p.State().Loading)
	assert.Equal(t, 1, notes.count(LevelError))
}

func TestVideoPoker_NoPackage(t *testing.T) {
	settings := testSettings(config.ModuleVideoPoker)
	settings.Game.PackageID = ""
	p := NewVideoPoker(settings, Deps{Submitter: &fakeSubmitter{}})
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.ErrorIs(t, p.Deal(context.Background(), 10), ErrNotConfigured)

	settings = testSettings(config.ModuleVideoPoker)
	settings.Game.ObjectID = ""
	q := NewVideoPoker(settings, Deps{Submitter: &fakeSubmitter{}})
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()
	assert.NoError(t, q.Deal(context.Background(), 10), "video poker needs no shared object")
}
