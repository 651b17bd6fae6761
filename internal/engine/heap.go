package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ErrHeapDepleted is returned when a draw asks for more cards than the
// face-down and discard piles hold together.
var ErrHeapDepleted = errors.New("card heap depleted")

// CardHeap is one room's draw pile and discard pile.
//
// The face-down pile is stored bottom-first: the last element is the top
// card. Cards held in a seat's regions belong to neither pile until they are
// discarded or returned.
type CardHeap struct {
	mu      sync.Mutex
	drawn   []Card
	discard []Card
}

// NewCardHeap shuffles cards into a fresh face-down pile.
func NewCardHeap(cards []Card) *CardHeap {
	pile := make([]Card, len(cards))
	copy(pile, cards)
	shuffleCards(pile)
	return &CardHeap{drawn: pile}
}

// Draw takes n cards from the top, returned top-first. When the face-down
// pile is short the discard pile is shuffled and slid underneath it first.
func (h *CardHeap) Draw(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("draw %d cards: negative count", n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.drawn)+len(h.discard) < n {
		return nil, fmt.Errorf("%w: want %d, have %d face-down and %d discarded",
			ErrHeapDepleted, n, len(h.drawn), len(h.discard))
	}
	if len(h.drawn) < n {
		h.reshuffle()
	}
	out := make([]Card, n)
	for i := 0; i < n; i++ {
		last := len(h.drawn) - 1
		out[i] = h.drawn[last]
		h.drawn = h.drawn[:last]
	}
	return out, nil
}

// reshuffle puts the shuffled discard pile below the remaining face-down cards.
func (h *CardHeap) reshuffle() {
	shuffleCards(h.discard)
	pile := make([]Card, 0, len(h.discard)+len(h.drawn))
	pile = append(pile, h.discard...)
	pile = append(pile, h.drawn...)
	h.drawn = pile
	h.discard = nil
}

// Discard places used cards face-up without shuffling.
func (h *CardHeap) Discard(cards ...Card) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discard = append(h.discard, cards...)
}

// ReturnToTop puts cards back on top of the face-down pile. cards are given
// top-first, so cards[0] is the next card drawn.
func (h *CardHeap) ReturnToTop(cards ...Card) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drawn = append(h.drawn, reversed(cards)...)
}

// ReturnToBottom puts cards under the face-down pile, keeping their order:
// cards[0] ends up above cards[1], and the last card is the new bottom.
func (h *CardHeap) ReturnToBottom(cards ...Card) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pile := make([]Card, 0, len(cards)+len(h.drawn))
	pile = append(pile, reversed(cards)...)
	pile = append(pile, h.drawn...)
	h.drawn = pile
}

// Peek returns up to n cards from the top without removing them.
func (h *CardHeap) Peek(n int) []Card {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.drawn) {
		n = len(h.drawn)
	}
	out := make([]Card, n)
	for i := 0; i < n; i++ {
		out[i] = h.drawn[len(h.drawn)-1-i]
	}
	return out
}

// Counts reports the size of the face-down and discard piles.
func (h *CardHeap) Counts() (faceDown, discarded int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.drawn), len(h.discard)
}

func reversed(cards []Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[len(cards)-1-i] = c
	}
	return out
}

func shuffleCards(cards []Card) {
	rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}
