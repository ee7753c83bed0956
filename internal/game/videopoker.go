package game

import (
	"context"
	"time"
)

type PokerPhase string

const (
	PhaseDeal     PokerPhase = "deal"
	PhaseHold     PokerPhase = "hold"
	PhaseComplete PokerPhase = "complete"
)

var handNames = map[HandRank]string{
	RoyalFlush:    "Royal Flush",
	StraightFlush: "Straight Flush",
	FourOfAKind:   "4 of a Kind",
	FullHouse:     "Full House",
	Flush:         "Flush",
	Straight:      "Straight",
	ThreeOfAKind:  "3 of a Kind",
	TwoPair:       "2 Pair",
	JacksOrBetter: "Pair of Jacks",
}

type PokerSnapshot struct {
	Phase     PokerPhase     `json:"phase"`
	Cards     []Card         `json:"cards"`
	BetAmount uint64         `json:"bet_amount"`
	Result    *HandResult    `json:"result,omitempty"`
	Payout    uint64         `json:"payout"`
	Loading   bool           `json:"loading"`
	History   []HistoryEntry `json:"history"`
}

// VideoPoker plays five-card draw. The deck for each hand is derived from
// the deal transaction digest, so a hand can be replayed from its receipt.
type VideoPoker struct {
	*base
	phase    PokerPhase
	hand     Hand
	deck     []Card
	next     int
	bet      uint64
	result   *HandResult
	inFlight bool
	nonce    uint64
}

func NewVideoPoker(settings Settings, deps Deps) *VideoPoker {
	return &VideoPoker{
		base:  newBase(GameTypeVideoPoker, settings, deps, nil, ScopePlayer),
		phase: PhaseDeal,
	}
}

func (p *VideoPoker) Start(ctx context.Context) error {
	return p.start(ctx, handlers{publish: p.publish})
}

func (p *VideoPoker) State() PokerSnapshot {
	if s, ok := p.GetState().(PokerSnapshot); ok {
		return s
	}
	return PokerSnapshot{Phase: PhaseDeal}
}

// ready only needs the package; video poker has no shared object.
func (p *VideoPoker) ready() error {
	if p.settings.Player == "" {
		return ErrNoPlayer
	}
	if p.settings.Game.PackageID == "" {
		return ErrNotConfigured
	}
	return nil
}

// Deal stakes amount and deals a new hand.
func (p *VideoPoker) Deal(ctx context.Context, amount uint64) error {
	if amount == 0 {
		return ErrInvalidBet
	}
	var (
		nonce uint64
		err   error
	)
	if e := p.do(ctx, func() {
		if err = p.ready(); err != nil {
			return
		}
		if p.inFlight {
			err = ErrActionInFlight
			return
		}
		if p.phase == PhaseHold {
			err = ErrSessionActive
			return
		}
		p.nonce++
		nonce = p.nonce
		p.inFlight = true
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	receipt, err := p.submit(ctx, "deal", amount)
	if err != nil {
		_ = p.post(func() { p.inFlight = false })
		p.notify(LevelError, "Failed to deal: %v", err)
		return err
	}

	deck := ShuffleDeck(receipt.Digest, p.settings.Player, nonce)
	if err := p.post(func() {
		p.inFlight = false
		copy(p.hand[:], deck[:len(p.hand)])
		p.deck = deck
		p.next = len(p.hand)
		p.bet = amount
		p.result = nil
		p.phase = PhaseHold
	}); err != nil {
		return err
	}
	p.notify(LevelSuccess, "Cards dealt for %s, choose which to hold", FormatAmount(amount))
	return nil
}

// Draw replaces every card not held and evaluates the final hand.
func (p *VideoPoker) Draw(ctx context.Context, holds []int) (HandResult, error) {
	if err := validateHolds(holds); err != nil {
		return HandResult{}, err
	}
	var err error
	if e := p.do(ctx, func() {
		if err = p.ready(); err != nil {
			return
		}
		if p.inFlight {
			err = ErrActionInFlight
			return
		}
		if p.phase != PhaseHold {
			err = ErrNoActiveSession
			return
		}
		p.inFlight = true
	}); e != nil {
		return HandResult{}, e
	}
	if err != nil {
		return HandResult{}, err
	}

	if holds == nil {
		holds = []int{}
	}
	if _, err := p.submit(ctx, "draw", holds); err != nil {
		_ = p.post(func() { p.inFlight = false })
		p.notify(LevelError, "Failed to draw: %v", err)
		return HandResult{}, err
	}

	var (
		result HandResult
		bet    uint64
	)
	if err := p.post(func() {
		p.inFlight = false
		held := make(map[int]bool, len(holds))
		for _, i := range holds {
			held[i] = true
		}
		for i := range p.hand {
			if !held[i] {
				p.hand[i] = p.deck[p.next]
				p.next++
			}
		}
		result = Evaluate(p.hand)
		bet = p.bet
		p.result = &result
		p.phase = PhaseComplete

		won := result.Won
		settled(GameTypeVideoPoker, won)
		p.record(HistoryEntry{
			Game:       GameTypeVideoPoker,
			Multiplier: result.Payout * MultiplierScale,
			BetAmount:  bet,
			Payout:     ApplyPayout(bet, result.Payout),
			Won:        won,
			HandRank:   result.HandRank,
			Timestamp:  time.Now(),
		})
	}); err != nil {
		return HandResult{}, err
	}

	if result.Won {
		p.notify(LevelSuccess, "%s! Won %s", handNames[result.HandRank], FormatAmount(ApplyPayout(bet, result.Payout)))
	} else {
		p.notify(LevelError, "No winning hand, lost %s", FormatAmount(bet))
	}
	return result, nil
}

func validateHolds(holds []int) error {
	if len(holds) > 5 {
		return ErrInvalidHold
	}
	seen := make(map[int]bool, len(holds))
	for _, i := range holds {
		if i < 0 || i > 4 || seen[i] {
			return ErrInvalidHold
		}
		seen[i] = true
	}
	return nil
}

func (p *VideoPoker) publish() {
	var cards []Card
	if p.phase != PhaseDeal {
		cards = append(cards, p.hand[:]...)
	}
	var payout uint64
	if p.result != nil {
		payout = ApplyPayout(p.bet, p.result.Payout)
	}
	p.setState(PokerSnapshot{
		Phase:     p.phase,
		Cards:     cards,
		BetAmount: p.bet,
		Result:    p.result,
		Payout:    payout,
		Loading:   p.inFlight,
		History:   p.history.Entries(),
	})
}
