package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"octarcade/internal/chain"
	"octarcade/internal/metrics"
)

var errAlreadyStarted = errors.New("controller already started")

var logTags = map[GameType]string{
	GameTypeCrash:       "[CRASH]",
	GameTypeMines:       "[MINES]",
	GameTypeSlide:       "[SLIDE]",
	GameTypeVideoPoker:  "[POKER]",
	GameTypeLeaderboard: "[LEADERBOARD]",
}

// loop runs every session mutation on one goroutine. Network calls happen
// elsewhere and hand their results back through do.
type loop struct {
	ops      chan loopOp
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

type loopOp struct {
	fn   func()
	done chan struct{}
}

func newLoop() *loop {
	return &loop{
		ops:    make(chan loopOp),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// do runs fn on the loop and waits for it. It must not be called from the
// loop goroutine itself.
func (l *loop) do(ctx context.Context, fn func()) error {
	if !l.started.Load() {
		return ErrStopped
	}
	op := loopOp{fn: fn, done: make(chan struct{})}
	select {
	case l.ops <- op:
	case <-l.stopCh:
		return ErrStopped
	case <-l.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-op.done
	return nil
}

// post is do for completions that must land even if the caller gave up.
func (l *loop) post(fn func()) error {
	return l.do(context.Background(), fn)
}

func (l *loop) Stop() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	if l.started.Load() {
		<-l.doneCh
	}
	return nil
}

// handlers are the game-specific parts of a controller loop.
type handlers struct {
	apply   func(Batch)
	clock   func() <-chan time.Time
	tick    func()
	publish func()
	cleanup func()
}

// base is shared by all game controllers.
type base struct {
	*loop
	game     GameType
	settings Settings
	deps     Deps
	feed     *Reconciler
	fetching bool
	history  *History

	mu    sync.RWMutex
	state interface{}
}

func newBase(game GameType, settings Settings, deps Deps, kinds map[string]Kind, scope Scope) *base {
	settings = settings.withDefaults()
	deps = deps.withDefaults()
	b := &base{
		loop:     newLoop(),
		game:     game,
		settings: settings,
		deps:     deps,
		history:  NewHistory(settings.HistorySize),
	}
	if deps.Events != nil && kinds != nil {
		b.feed = NewReconciler(deps.Events, ReconcilerConfig{
			Package: settings.Game.PackageID,
			Module:  settings.Game.Module,
			Kinds:   kinds,
			Scope:   scope,
			Player:  settings.Player,
			Limit:   settings.PageLimit,
		})
	}
	return b
}

func (b *base) GetType() GameType {
	return b.game
}

// GetState returns the last published snapshot.
func (b *base) GetState() interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *base) start(ctx context.Context, h handlers) error {
	if !b.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}
	b.restoreHistory(ctx)
	h.publish()
	go b.run(ctx, h)
	log.Printf("%s Controller started", b.tag())
	return nil
}

func (b *base) run(ctx context.Context, h handlers) {
	defer close(b.doneCh)
	if h.cleanup != nil {
		defer h.cleanup()
	}

	var pollC <-chan time.Time
	if b.feed != nil && b.settings.Game.PackageID != "" {
		poll := b.deps.NewTicker(b.settings.PollInterval)
		defer poll.Stop()
		pollC = poll.C()
		b.poll(ctx, h.apply)
	}

	for {
		var tickC <-chan time.Time
		if h.clock != nil {
			tickC = h.clock()
		}

		select {
		case <-b.stopCh:
			log.Printf("%s Controller stopped", b.tag())
			return
		case <-ctx.Done():
			log.Printf("%s Controller stopped: %v", b.tag(), ctx.Err())
			return
		case op := <-b.ops:
			op.fn()
			h.publish()
			close(op.done)
			continue
		case <-pollC:
			b.poll(ctx, h.apply)
			continue
		case <-tickC:
			h.tick()
		}
		h.publish()
	}
}

// poll starts one feed fetch unless one is still outstanding.
func (b *base) poll(ctx context.Context, apply func(Batch)) {
	if b.fetching {
		return
	}
	b.fetching = true
	go func() {
		batch, err := b.feed.Poll(ctx)
		_ = b.post(func() {
			b.fetching = false
			if err != nil {
				log.Printf("[FEED] %s poll failed: %v", b.game, err)
				return
			}
			if batch.Gap {
				log.Printf("[FEED] %s: events were missed between polls, local state may be stale", b.game)
			}
			apply(batch)
		})
	}()
}

func (b *base) setState(v interface{}) {
	b.mu.Lock()
	b.state = v
	b.mu.Unlock()

	b.deps.Publisher.Broadcast(map[string]interface{}{
		"type": "state",
		"game": b.game,
		"data": v,
	})
}

func (b *base) tag() string {
	return logTags[b.game]
}

func (b *base) notify(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("%s %s", b.tag(), msg)
	b.deps.Notifier.Notify(b.game, level, msg)
}

// ready checks the preconditions shared by every submitting action.
func (b *base) ready() error {
	if b.settings.Player == "" {
		return ErrNoPlayer
	}
	if !b.settings.Game.Configured() {
		return ErrNotConfigured
	}
	return nil
}

func (b *base) submit(ctx context.Context, function string, args ...any) (chain.Receipt, error) {
	call := chain.Call{Target: b.settings.Game.Target(function), Args: args}
	receipt, err := b.deps.Submitter.Submit(ctx, call)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.Submissions.WithLabelValues(string(b.game), function, result).Inc()
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", function, err)
	}
	log.Printf("%s %s accepted (digest %s)", b.tag(), function, receipt.Digest)
	return receipt, nil
}

// record adds a history entry and mirrors it to the recorder if one is set.
func (b *base) record(e HistoryEntry) {
	b.history.Add(e)
	if b.deps.Recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.deps.Recorder.Push(ctx, string(b.game), e); err != nil {
			log.Printf("%s Failed to persist history: %v", b.tag(), err)
		}
	}()
}

func (b *base) restoreHistory(ctx context.Context) {
	if b.deps.Recorder == nil {
		return
	}
	raw, err := b.deps.Recorder.Recent(ctx, string(b.game))
	if err != nil {
		log.Printf("%s Failed to load history: %v", b.tag(), err)
		return
	}
	b.history.Restore(raw)
}

func settled(game GameType, won bool) {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	metrics.Settlements.WithLabelValues(string(game), outcome).Inc()
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
