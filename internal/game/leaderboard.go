package game

import (
	"context"
	"log"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"octarcade/internal/metrics"
)

// GameTypeLeaderboard tags the all-players crash feed.
const GameTypeLeaderboard GameType = "leaderboard"

const maxTransactions = 50

var leaderboardKinds = map[string]Kind{
	"PlayerCashedOut": KindPlayerCashedOut,
	"GameCrashed":     KindGameCrashed,
}

// Transaction is one settled crash bet of any player.
type Transaction struct {
	EventID    string    `json:"event_id"`
	Player     string    `json:"player"`
	Amount     uint64    `json:"amount"`
	Payout     uint64    `json:"payout"`
	Profit     int64     `json:"profit"`
	Multiplier uint64    `json:"multiplier"`
	Won        bool      `json:"won"`
	Timestamp  time.Time `json:"timestamp"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Profit int64  `json:"profit"`
	Games  int    `json:"games"`
}

// Archiver stores transactions for long-term ranking. Saving the same
// event id twice must be a no-op.
type Archiver interface {
	SaveTransactions(ctx context.Context, txs []Transaction) error
}

// TransactionFromEvent builds a transaction from a settled crash event.
// GameCrashed events only count when they name the losing player.
func TransactionFromEvent(e Event) (Transaction, bool) {
	if e.Player == "" {
		return Transaction{}, false
	}
	bet := e.Payload.Uint("bet_amount")
	tx := Transaction{
		EventID:    e.Key(),
		Player:     e.Player,
		Amount:     bet,
		Multiplier: e.Payload.Uint("multiplier"),
		Timestamp:  eventTime(e),
	}
	switch e.Kind {
	case KindPlayerCashedOut:
		tx.Payout = e.Payload.Uint("payout")
		tx.Won = true
	case KindGameCrashed:
		if !e.Payload.Has("bet_amount") {
			return Transaction{}, false
		}
		if m := e.Payload.Uint("crash_point"); m > 0 {
			tx.Multiplier = m
		}
	default:
		return Transaction{}, false
	}
	tx.Profit = int64(tx.Payout) - int64(tx.Amount)
	return tx, true
}

type LeaderboardSnapshot struct {
	Transactions []Transaction      `json:"transactions"`
	Ranking      []LeaderboardEntry `json:"ranking"`
}

// Leaderboard folds every player's crash settlements into a transaction
// feed and per-player totals.
type Leaderboard struct {
	*base
	archive Archiver
	seen    *lru.Cache[string, struct{}]
	txs     []Transaction
	players map[string]*LeaderboardEntry
}

func NewLeaderboard(settings Settings, deps Deps, archive Archiver) *Leaderboard {
	seen, _ := lru.New[string, struct{}](4096)
	return &Leaderboard{
		base:    newBase(GameTypeLeaderboard, settings, deps, leaderboardKinds, ScopeRound),
		archive: archive,
		seen:    seen,
		players: make(map[string]*LeaderboardEntry),
	}
}

func (l *Leaderboard) Start(ctx context.Context) error {
	return l.start(ctx, handlers{
		apply:   l.apply,
		publish: l.publish,
	})
}

func (l *Leaderboard) State() LeaderboardSnapshot {
	if s, ok := l.GetState().(LeaderboardSnapshot); ok {
		return s
	}
	return LeaderboardSnapshot{}
}

// Top returns the n most profitable players.
func (l *Leaderboard) Top(n int) []LeaderboardEntry {
	r := l.State().Ranking
	if n > 0 && len(r) > n {
		r = r[:n]
	}
	return r
}

// Transactions returns the n newest transactions.
func (l *Leaderboard) Transactions(n int) []Transaction {
	t := l.State().Transactions
	if n > 0 && len(t) > n {
		t = t[:n]
	}
	return t
}

// Add folds one transaction. It reports false for one already seen.
func (l *Leaderboard) Add(tx Transaction) bool {
	if l.seen.Contains(tx.EventID) {
		return false
	}
	l.seen.Add(tx.EventID, struct{}{})

	l.txs = append([]Transaction{tx}, l.txs...)
	if len(l.txs) > maxTransactions {
		l.txs = l.txs[:maxTransactions]
	}

	p, ok := l.players[tx.Player]
	if !ok {
		p = &LeaderboardEntry{Player: tx.Player}
		l.players[tx.Player] = p
	}
	p.Profit += tx.Profit
	p.Games++
	return true
}

func (l *Leaderboard) apply(batch Batch) {
	var fresh []Transaction
	for _, e := range batch.Events {
		tx, ok := TransactionFromEvent(e)
		if !ok || !l.Add(tx) {
			metrics.EventsIgnored.WithLabelValues(string(GameTypeLeaderboard), string(e.Kind)).Inc()
			continue
		}
		metrics.EventsApplied.WithLabelValues(string(GameTypeLeaderboard), string(e.Kind)).Inc()
		fresh = append(fresh, tx)
	}
	if len(fresh) == 0 || l.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.archive.SaveTransactions(ctx, fresh); err != nil {
			log.Printf("[LEADERBOARD] Failed to archive %d transactions: %v", len(fresh), err)
		}
	}()
}

// Ranking orders players by profit, then games played, then address.
func Ranking(players map[string]*LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Profit != out[j].Profit {
			return out[i].Profit > out[j].Profit
		}
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Player < out[j].Player
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (l *Leaderboard) publish() {
	l.setState(LeaderboardSnapshot{
		Transactions: append([]Transaction{}, l.txs...),
		Ranking:      Ranking(l.players),
	})
}
