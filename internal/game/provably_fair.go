package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	MinesGridSize = 25
	MinMineCount  = 1
	MaxMineCount  = 24
)

// GenerateSeed returns 32 random bytes, hex encoded.
func GenerateSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CommitSeed returns the SHA-256 commitment published before a seed is used.
func CommitSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// VerifySeed reports whether a revealed seed matches its commitment.
func VerifySeed(seed, commitment string) bool {
	want := CommitSeed(seed)
	return hmac.Equal([]byte(want), []byte(commitment))
}

// byteStream yields HMAC-SHA256(serverSeed, "clientSeed:nonce:round") bytes,
// moving to the next round every 32 bytes.
type byteStream struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	round      int
	pos        int
	buf        [32]byte
}

func newByteStream(serverSeed, clientSeed string, nonce uint64) *byteStream {
	s := &byteStream{serverSeed: serverSeed, clientSeed: clientSeed, nonce: nonce}
	s.fill()
	return s
}

func (s *byteStream) fill() {
	h := hmac.New(sha256.New, []byte(s.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", s.clientSeed, s.nonce, s.round)
	copy(s.buf[:], h.Sum(nil))
	s.pos = 0
}

func (s *byteStream) next() byte {
	if s.pos >= len(s.buf) {
		s.round++
		s.fill()
	}
	b := s.buf[s.pos]
	s.pos++
	return b
}

// float returns a value in [0, 1) built from 4 bytes.
func (s *byteStream) float() float64 {
	f := 0.0
	div := 1.0
	for i := 0; i < 4; i++ {
		div *= 256
		f += float64(s.next()) / div
	}
	return f
}

// pick draws count distinct indexes from [0, n) without replacement.
func pick(s *byteStream, n, count int) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		j := int(s.float() * float64(len(pool)))
		out = append(out, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return out
}

// MinePositions returns mineCount distinct grid points in [0, 25).
func MinePositions(serverSeed, clientSeed string, nonce uint64, mineCount int) ([]int, error) {
	if mineCount < MinMineCount || mineCount > MaxMineCount {
		return nil, ErrInvalidMineCount
	}
	return pick(newByteStream(serverSeed, clientSeed, nonce), MinesGridSize, mineCount), nil
}

// ShuffleDeck returns the full 52-card deck in dealing order.
func ShuffleDeck(serverSeed, clientSeed string, nonce uint64) []Card {
	deck := NewDeck()
	order := pick(newByteStream(serverSeed, clientSeed, nonce), len(deck), len(deck))
	out := make([]Card, len(order))
	for i, j := range order {
		out[i] = deck[j]
	}
	return out
}
