package game

import "sort"

type Suit string

const (
	Hearts   Suit = "Hearts"
	Diamonds Suit = "Diamonds"
	Clubs    Suit = "Clubs"
	Spades   Suit = "Spades"
)

type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

var (
	Suits = []Suit{Hearts, Diamonds, Clubs, Spades}
	Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

var rankValues = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8,
	Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13, Ace: 14,
}

// Value is the numeric rank, Ace high (14).
func (r Rank) Value() int {
	return rankValues[r]
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// Hand is exactly five cards in dealt order.
type Hand [5]Card

// NewDeck returns the 52 cards ordered by suit then rank.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

type HandRank string

const (
	RoyalFlush    HandRank = "royal_flush"
	StraightFlush HandRank = "straight_flush"
	FourOfAKind   HandRank = "4_of_a_kind"
	FullHouse     HandRank = "full_house"
	Flush         HandRank = "flush"
	Straight      HandRank = "straight"
	ThreeOfAKind  HandRank = "3_of_a_kind"
	TwoPair       HandRank = "2_pair"
	JacksOrBetter HandRank = "pair"
)

// Paytable maps each paying hand to its stake multiplier.
var Paytable = map[HandRank]uint64{
	RoyalFlush:    800,
	StraightFlush: 60,
	FourOfAKind:   22,
	FullHouse:     9,
	Flush:         6,
	Straight:      4,
	ThreeOfAKind:  3,
	TwoPair:       2,
	JacksOrBetter: 1,
}

// HandResult is the evaluated hand. Payout is a multiplier on the stake; a
// losing hand has an empty HandRank and Payout 0.
type HandResult struct {
	HandRank     HandRank `json:"hand_rank"`
	Won          bool     `json:"won"`
	Payout       uint64   `json:"payout"`
	WinningCards []Card   `json:"winning_cards"`
}

// Evaluate ranks a five-card hand under Jacks-or-better rules.
func Evaluate(h Hand) HandResult {
	rankCounts := make(map[Rank]int, 5)
	suitCounts := make(map[Suit]int, 4)
	// ranks in first-seen order so pair selection is deterministic
	var order []Rank
	for _, c := range h {
		if rankCounts[c.Rank] == 0 {
			order = append(order, c.Rank)
		}
		rankCounts[c.Rank]++
		suitCounts[c.Suit]++
	}

	flush := false
	for _, n := range suitCounts {
		if n == 5 {
			flush = true
		}
	}
	straight := isStraight(order)

	var pairs []Rank
	var three, four Rank
	for _, r := range order {
		switch rankCounts[r] {
		case 2:
			pairs = append(pairs, r)
		case 3:
			three = r
		case 4:
			four = r
		}
	}

	royal := true
	for _, r := range []Rank{Ten, Jack, Queen, King, Ace} {
		if rankCounts[r] == 0 {
			royal = false
			break
		}
	}

	var rank HandRank
	var winning []Card
	switch {
	case flush && royal:
		rank, winning = RoyalFlush, h[:]
	case flush && straight:
		rank, winning = StraightFlush, h[:]
	case four != "":
		rank, winning = FourOfAKind, h.withRanks(four)
	case three != "" && len(pairs) > 0:
		rank, winning = FullHouse, h.withRanks(three, pairs[0])
	case flush:
		rank, winning = Flush, h[:]
	case straight:
		rank, winning = Straight, h[:]
	case three != "":
		rank, winning = ThreeOfAKind, h.withRanks(three)
	case len(pairs) == 2:
		rank, winning = TwoPair, h.withRanks(pairs...)
	case len(pairs) == 1 && pairs[0].Value() >= Jack.Value():
		rank, winning = JacksOrBetter, h.withRanks(pairs[0])
	}

	if rank == "" {
		return HandResult{WinningCards: []Card{}}
	}
	return HandResult{
		HandRank:     rank,
		Won:          true,
		Payout:       Paytable[rank],
		WinningCards: append([]Card(nil), winning...),
	}
}

// isStraight reports five consecutive distinct ranks, or the wheel A-2-3-4-5.
func isStraight(ranks []Rank) bool {
	if len(ranks) != 5 {
		return false
	}
	v := make([]int, len(ranks))
	for i, r := range ranks {
		v[i] = r.Value()
	}
	sort.Ints(v)

	consecutive := true
	for i := 1; i < len(v); i++ {
		if v[i] != v[i-1]+1 {
			consecutive = false
			break
		}
	}
	wheel := v[0] == 2 && v[1] == 3 && v[2] == 4 && v[3] == 5 && v[4] == 14
	return consecutive || wheel
}

func (h Hand) withRanks(ranks ...Rank) []Card {
	var out []Card
	for _, c := range h {
		for _, r := range ranks {
			if c.Rank == r {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
