package game

import (
	"context"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"octarcade/internal/chain"
	"octarcade/internal/metrics"
)

// EventSource is the authority event feed.
type EventSource interface {
	QueryEvents(ctx context.Context, q chain.EventQuery) (chain.EventPage, error)
}

// Scope selects which events of a module a reconciler keeps.
type Scope int

const (
	// ScopePlayer keeps events whose payload player is the configured identity.
	ScopePlayer Scope = iota
	// ScopeRound keeps every recognized event (shared round state).
	ScopeRound
)

// defaultMaxPages bounds how far back a poll walks to close a gap.
const defaultMaxPages = 5

// Batch is the outcome of one poll, in chronological order.
type Batch struct {
	Events []Event
	// Gap is set when older pages could not reach the last delivered event,
	// so some events may never have been seen. Local state for the module
	// should be treated as unknown until a later event resynchronises it.
	Gap bool
}

// seenCapacity bounds the memory of delivered event ids. It must stay well
// above the largest window one poll can fetch.
const seenCapacity = 4096

// Reconciler turns the raw, newest-first module event feed into the
// classified chronological subsequence one game controller folds.
type Reconciler struct {
	source   EventSource
	pkg      string
	module   string
	kinds    map[string]Kind
	scope    Scope
	player   string
	limit    int
	maxPages int

	seen    *lru.Cache[string, struct{}]
	started bool
	// newest is the newest delivered timestamp; paging back stops there.
	newest uint64
	// floor is the oldest timestamp of the first window when older pages
	// exist. History below it is never folded.
	floor uint64
}

type ReconcilerConfig struct {
	Package string
	Module  string
	Kinds   map[string]Kind
	Scope   Scope
	Player  string
	Limit   int
}

func NewReconciler(source EventSource, cfg ReconcilerConfig) *Reconciler {
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	seen, _ := lru.New[string, struct{}](max(seenCapacity, cfg.Limit*defaultMaxPages*2))
	return &Reconciler{
		seen:     seen,
		source:   source,
		pkg:      cfg.Package,
		module:   cfg.Module,
		kinds:    cfg.Kinds,
		scope:    cfg.Scope,
		player:   cfg.Player,
		limit:    cfg.Limit,
		maxPages: defaultMaxPages,
	}
}

// Classify maps a raw event to a domain event. The kind is the trailing
// component of the type tag after the last "::"; unknown kinds are rejected.
func Classify(raw chain.Event, kinds map[string]Kind) (Event, bool) {
	name := raw.Type
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	// Generic instantiations carry type arguments: Foo<0x2::oct::OCT>.
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	kind, ok := kinds[name]
	if !ok {
		return Event{}, false
	}

	payload := decodePayload(raw.ParsedJSON)
	return Event{
		ID:        raw.ID,
		Kind:      kind,
		Player:    payload.Text("player"),
		Payload:   payload,
		Timestamp: raw.Timestamp(),
	}, true
}

// Poll fetches the newest events and returns those not yet delivered.
// Delivery is keyed by event id, so an event that surfaces late with an
// older timestamp is still folded. On error nothing is marked delivered.
func (r *Reconciler) Poll(ctx context.Context) (Batch, error) {
	if r.scope == ScopePlayer && r.player == "" {
		return Batch{}, nil
	}

	raw, gap, err := r.fetch(ctx)
	if err != nil {
		metrics.FeedPolls.WithLabelValues(r.module, "error").Inc()
		return Batch{}, err
	}
	metrics.FeedPolls.WithLabelValues(r.module, "ok").Inc()
	if gap {
		metrics.FeedGaps.WithLabelValues(r.module).Inc()
	}

	// raw is newest first; fold oldest first.
	fresh := make([]chain.Event, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		e := raw[i]
		if r.seen.Contains(rawKey(e)) || e.Timestamp() < r.floor {
			continue
		}
		fresh = append(fresh, e)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp() < fresh[j].Timestamp()
	})

	batch := Batch{Gap: gap}
	for _, e := range fresh {
		ev, ok := Classify(e, r.kinds)
		if !ok {
			continue
		}
		if r.scope == ScopePlayer && ev.Player != r.player {
			continue
		}
		batch.Events = append(batch.Events, ev)
	}

	r.advance(fresh)
	return batch, nil
}

func (r *Reconciler) fetch(ctx context.Context) ([]chain.Event, bool, error) {
	page, err := r.source.QueryEvents(ctx, chain.EventQuery{
		Package:    r.pkg,
		Module:     r.module,
		Limit:      r.limit,
		Descending: true,
	})
	if err != nil {
		return nil, false, err
	}
	events := page.Data

	// The first non-empty poll folds the newest window only.
	if !r.started {
		r.started = len(events) > 0
		if page.HasNextPage && len(events) > 0 {
			r.floor = events[len(events)-1].Timestamp()
		}
		return events, false, nil
	}

	for pages := 1; ; pages++ {
		if len(events) > 0 && events[len(events)-1].Timestamp() <= r.newest {
			return events, false, nil
		}
		if !page.HasNextPage || page.NextCursor == nil {
			return events, false, nil
		}
		if pages >= r.maxPages {
			return events, true, nil
		}
		page, err = r.source.QueryEvents(ctx, chain.EventQuery{
			Package:    r.pkg,
			Module:     r.module,
			Cursor:     page.NextCursor,
			Limit:      r.limit,
			Descending: true,
		})
		if err != nil {
			return nil, false, err
		}
		events = append(events, page.Data...)
	}
}

func (r *Reconciler) advance(fresh []chain.Event) {
	for _, e := range fresh {
		r.seen.Add(rawKey(e), struct{}{})
		if ts := e.Timestamp(); ts > r.newest {
			r.newest = ts
		}
	}
}

func rawKey(e chain.Event) string {
	return Event{ID: e.ID}.Key()
}
