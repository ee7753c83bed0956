package game

import (
	"encoding/json"
	"strconv"

	"octarcade/internal/chain"
)

type GameType string

const (
	GameTypeCrash      GameType = "crash"
	GameTypeMines      GameType = "mines"
	GameTypeSlide      GameType = "slide"
	GameTypeVideoPoker GameType = "videopoker"
)

// Kind is the recognized type of an authority event.
type Kind string

const (
	KindBetPlaced       Kind = "BetPlaced"
	KindGameCreated     Kind = "GameCreated"
	KindTileRevealed    Kind = "TileRevealed"
	KindGameCashedOut   Kind = "GameCashedOut"
	KindGameEnded       Kind = "GameEnded"
	KindGameCrashed     Kind = "GameCrashed"
	KindPlayerCashedOut Kind = "PlayerCashedOut"
	KindBettingPhase    Kind = "BettingPhase"
	KindRoundPlaying    Kind = "RoundPlaying"
	KindBetResult       Kind = "BetResult"
)

// Recognized event kinds per module. Anything else is dropped.
var (
	CrashKinds = map[string]Kind{
		"BetPlaced":       KindBetPlaced,
		"PlayerCashedOut": KindPlayerCashedOut,
		"GameCrashed":     KindGameCrashed,
	}
	MinesKinds = map[string]Kind{
		"GameCreated":   KindGameCreated,
		"TileRevealed":  KindTileRevealed,
		"GameCashedOut": KindGameCashedOut,
		"GameEnded":     KindGameEnded,
	}
	SlideKinds = map[string]Kind{
		"BettingPhase": KindBettingPhase,
		"BetPlaced":    KindBetPlaced,
		"RoundPlaying": KindRoundPlaying,
		"BetResult":    KindBetResult,
	}
)

// Event is a classified, immutable authority event.
type Event struct {
	ID        chain.EventID `json:"id"`
	Kind      Kind          `json:"kind"`
	Player    string        `json:"player,omitempty"`
	Payload   Payload       `json:"payload"`
	Timestamp uint64        `json:"timestamp"`
}

// Key identifies the event across deliveries.
func (e Event) Key() string {
	return e.ID.TxDigest + ":" + e.ID.EventSeq
}

// Payload is the decoded event body. Move u64 values arrive as strings,
// smaller integers as numbers; the accessors accept both.
type Payload map[string]any

func decodePayload(raw json.RawMessage) Payload {
	if len(raw) == 0 {
		return Payload{}
	}
	var p Payload
	if err := unmarshalNumbers(raw, &p); err != nil || p == nil {
		return Payload{}
	}
	return p
}

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Uint returns the unsigned integer at key, or 0 when absent or malformed.
func (p Payload) Uint(key string) uint64 {
	switch v := p[key].(type) {
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case float64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	}
	return 0
}

// Bool returns the boolean at key.
func (p Payload) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Text returns the string at key.
func (p Payload) Text(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}
