package game

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"octarcade/internal/chain"
	"octarcade/internal/config"
)

const testPlayer = "0xabc"

type fakeTicker struct {
	d       time.Duration
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeTickers hands out manually driven tickers and remembers them.
type fakeTickers struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeTickers) New(d time.Duration) Ticker {
	t := &fakeTicker{d: d, c: make(chan time.Time)}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// latest returns the newest ticker created with period d.
func (f *fakeTickers) latest(d time.Duration) *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.tickers) - 1; i >= 0; i-- {
		if f.tickers[i].d == d {
			return f.tickers[i]
		}
	}
	return nil
}

type fakeSubmitter struct {
	mu     sync.Mutex
	calls  []chain.Call
	err    error
	digest string
}

func (s *fakeSubmitter) Submit(_ context.Context, call chain.Call) (chain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if s.err != nil {
		return chain.Receipt{}, s.err
	}
	d := s.digest
	if d == "" {
		d = fmt.Sprintf("digest-%d", len(s.calls))
	}
	return chain.Receipt{Digest: d}, nil
}

func (s *fakeSubmitter) Calls() []chain.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chain.Call(nil), s.calls...)
}

func (s *fakeSubmitter) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type fakeObjects struct {
	objects []chain.OwnedObject
	err     error
}

func (f *fakeObjects) GetOwnedObjects(context.Context, string) ([]chain.OwnedObject, error) {
	return f.objects, f.err
}

// fakeFeed serves one descending page, replaceable between polls.
type fakeFeed struct {
	mu      sync.Mutex
	events  []chain.Event
	err     error
	queries int
}

func (f *fakeFeed) QueryEvents(_ context.Context, q chain.EventQuery) (chain.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return chain.EventPage{}, f.err
	}
	return chain.EventPage{Data: append([]chain.Event(nil), f.events...)}, nil
}

func (f *fakeFeed) set(events ...chain.Event) {
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
}

type note struct {
	game  GameType
	level Level
	msg   string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) Notify(game GameType, level Level, msg string) {
	n.mu.Lock()
	n.notes = append(n.notes, note{game, level, msg})
	n.mu.Unlock()
}

func (n *recordingNotifier) count(level Level) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, x := range n.notes {
		if x.level == level {
			c++
		}
	}
	return c
}

// rawEvent builds a feed event of the given kind and payload.
func rawEvent(digest string, ts uint64, kind string, payload map[string]any) chain.Event {
	body, _ := json.Marshal(payload)
	return chain.Event{
		ID:          chain.EventID{TxDigest: digest, EventSeq: "0"},
		Type:        "0xpkg::module::" + kind,
		ParsedJSON:  body,
		TimestampMs: strconv.FormatUint(ts, 10),
	}
}

// event builds an already classified event.
func event(digest string, ts uint64, kind Kind, payload map[string]any) Event {
	ev, ok := Classify(rawEvent(digest, ts, string(kind), payload), map[string]Kind{string(kind): kind})
	if !ok {
		panic("unclassified test event " + string(kind))
	}
	return ev
}

func testSettings(module string) Settings {
	return Settings{
		Player:       testPlayer,
		Game:         config.GameConfig{PackageID: "0xpkg", Module: module, ObjectID: "0xobj"},
		PollInterval: time.Second,
		ClockTick:    100 * time.Millisecond,
		PageLimit:    50,
		HistorySize:  10,
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

var testTime = time.UnixMilli(1_700_000_000_000)
