package game

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octarcade/internal/config"
)

func TestTransactionFromEvent(t *testing.T) {
	win, ok := TransactionFromEvent(event("w", 5, KindPlayerCashedOut, map[string]any{
		"player": "0xp1", "bet_amount": 1_000_000_000, "payout": 2_500_000_000, "multiplier": 250,
	}))
	require.True(t, ok)
	assert.True(t, win.Won)
	assert.Equal(t, int64(1_500_000_000), win.Profit)
	assert.Equal(t, uint64(250), win.Multiplier)
	assert.Equal(t, "w:0", win.EventID)

	loss, ok := TransactionFromEvent(event("l", 6, KindGameCrashed, map[string]any{
		"player": "0xp2", "bet_amount": 1_000_000_000, "crash_point": 130,
	}))
	require.True(t, ok)
	assert.False(t, loss.Won)
	assert.Equal(t, int64(-1_000_000_000), loss.Profit)
	assert.Equal(t, uint64(130), loss.Multiplier)

	_, ok = TransactionFromEvent(event("r", 7, KindGameCrashed, map[string]any{"crash_point": 130}))
	assert.False(t, ok, "round-level crash without a player is not a transaction")
}

func TestLeaderboard_AddAndRank(t *testing.T) {
	l := NewLeaderboard(testSettings(config.ModuleCrash), Deps{}, nil)

	txs := []Transaction{
		{EventID: "1", Player: "0xa", Profit: 100},
		{EventID: "2", Player: "0xb", Profit: 300},
		{EventID: "3", Player: "0xa", Profit: 250},
		{EventID: "4", Player: "0xc", Profit: -50},
		{EventID: "5", Player: "0xd", Profit: 300},
	}
	for _, tx := range txs {
		require.True(t, l.Add(tx))
	}
	assert.False(t, l.Add(txs[0]), "duplicate event id")

	ranking := Ranking(l.players)
	require.Len(t, ranking, 4)
	assert.Equal(t, LeaderboardEntry{Rank: 1, Player: "0xa", Profit: 350, Games: 2}, ranking[0])
	assert.Equal(t, "0xb", ranking[1].Player, "ties broken by address")
	assert.Equal(t, "0xd", ranking[2].Player)
	assert.Equal(t, "0xc", ranking[3].Player)
	assert.Equal(t, 4, ranking[3].Rank)

	assert.Len(t, l.txs, 5)
	assert.Equal(t, "5", l.txs[0].EventID, "newest first")
}

type memArchive struct {
	mu  sync.Mutex
	txs []Transaction
}

func (a *memArchive) SaveTransactions(_ context.Context, txs []Transaction) error {
	a.mu.Lock()
	a.txs = append(a.txs, txs...)
	a.mu.Unlock()
	return nil
}

func (a *memArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.txs)
}

func TestLeaderboard_FoldsFeed(t *testing.T) {
	feed := &fakeFeed{}
	feed.set(
		rawEvent("t3", 3, "GameCrashed", map[string]any{"player": "0xp2", "bet_amount": "100", "crash_point": "120"}),
		rawEvent("t2", 2, "BetPlaced", map[string]any{"player": "0xp2", "bet_amount": "100"}),
		rawEvent("t1", 1, "PlayerCashedOut", map[string]any{"player": "0xp1", "bet_amount": "100", "payout": "200", "multiplier": "200"}),
	)
	archive := &memArchive{}
	tickers := &fakeTickers{}
	l := NewLeaderboard(testSettings(config.ModuleCrash), Deps{Events: feed, NewTicker: tickers.New}, archive)
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	idle(t, l.base, feed)

	top := l.Top(10)
	require.Len(t, top, 2)
	assert.Equal(t, "0xp1", top[0].Player)
	assert.Equal(t, int64(100), top[0].Profit)
	assert.Equal(t, int64(-100), top[1].Profit)
	assert.Len(t, l.Transactions(1), 1)
	eventually(t, func() bool { return archive.count() == 2 }, "transactions archived")

	pollOnce(t, l.base, feed, tickers)
	assert.Len(t, l.Transactions(0), 2)
	assert.Equal(t, 2, archive.count())
}
