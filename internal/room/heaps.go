package room

import (
	"sync"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
)

// HeapRegistry holds the card heaps of the rooms hosted by this process.
type HeapRegistry struct {
	mu    sync.Mutex
	deck  func() []engine.Card
	heaps map[string]*engine.CardHeap
}

func NewHeapRegistry(deck func() []engine.Card) *HeapRegistry {
	return &HeapRegistry{deck: deck, heaps: make(map[string]*engine.CardHeap)}
}

// Get returns the heap of roomID, shuffling a fresh deck on first use.
func (h *HeapRegistry) Get(roomID string) *engine.CardHeap {
	h.mu.Lock()
	defer h.mu.Unlock()
	heap, ok := h.heaps[roomID]
	if !ok {
		heap = engine.NewCardHeap(h.deck())
		h.heaps[roomID] = heap
	}
	return heap
}

// Drop forgets the heap of an ended room.
func (h *HeapRegistry) Drop(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.heaps, roomID)
}

// Len is the number of live heaps.
func (h *HeapRegistry) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.heaps)
}
