package engine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCards(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = Card{ID: i + 1, Name: "Kill", Type: TypeBase, Suit: Suit(i % 4), Rank: i%13 + 1}
	}
	return cards
}

func ids(cards []Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	sort.Ints(out)
	return out
}

func TestCardHeap_DrawDistinct(t *testing.T) {
	heap := NewCardHeap(testCards(10))

	hand, err := heap.Draw(4)
	require.NoError(t, err)
	assert.Len(t, hand, 4)

	seen := make(map[int]bool)
	for _, c := range hand {
		assert.False(t, seen[c.ID], "card %d drawn twice", c.ID)
		seen[c.ID] = true
	}

	faceDown, discarded := heap.Counts()
	assert.Equal(t, 6, faceDown)
	assert.Equal(t, 0, discarded)
}

func TestCardHeap_Depleted(t *testing.T) {
	heap := NewCardHeap(testCards(3))
	_, err := heap.Draw(2)
	require.NoError(t, err)

	_, err = heap.Draw(2)
	assert.ErrorIs(t, err, ErrHeapDepleted)

	faceDown, _ := heap.Counts()
	assert.Equal(t, 1, faceDown, "failed draw must not move cards")
}

func TestCardHeap_ReshuffleOnShortPile(t *testing.T) {
	heap := NewCardHeap(testCards(4))

	first, err := heap.Draw(4)
	require.NoError(t, err)
	heap.Discard(first...)

	faceDown, discarded := heap.Counts()
	assert.Equal(t, 0, faceDown)
	assert.Equal(t, 4, discarded)

	second, err := heap.Draw(4)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))

	faceDown, discarded = heap.Counts()
	assert.Equal(t, 0, faceDown)
	assert.Equal(t, 0, discarded)
}

func TestCardHeap_ReshuffleKeepsRemainingOnTop(t *testing.T) {
	heap := NewCardHeap(testCards(6))

	used, err := heap.Draw(4)
	require.NoError(t, err)
	heap.Discard(used...)
	remaining := heap.Peek(2)

	drawn, err := heap.Draw(3)
	require.NoError(t, err)
	assert.Equal(t, remaining, drawn[:2], "face-down cards are drawn before reshuffled ones")
	assert.Contains(t, ids(used), drawn[2].ID)
}

func TestCardHeap_Conservation(t *testing.T) {
	all := testCards(20)
	heap := NewCardHeap(all)
	var held []Card

	for round := 0; round < 25; round++ {
		cards, err := heap.Draw(3)
		require.NoError(t, err)
		held = append(held, cards...)
		if len(held) > 6 {
			heap.Discard(held[:4]...)
			held = held[4:]
		}

		faceDown, discarded := heap.Counts()
		assert.Equal(t, len(all), faceDown+discarded+len(held), "round %d", round)
	}

	rest, err := heap.Draw(len(all) - len(held))
	require.NoError(t, err)
	assert.Equal(t, ids(all), ids(append(rest, held...)))
}

func TestCardHeap_ReturnToTopAndBottom(t *testing.T) {
	heap := NewCardHeap(testCards(5))
	peeked, err := heap.Draw(2)
	require.NoError(t, err)

	heap.ReturnToTop(peeked...)
	assert.Equal(t, peeked, heap.Peek(2))

	top, err := heap.Draw(2)
	require.NoError(t, err)
	assert.Equal(t, peeked, top)

	heap.ReturnToBottom(top...)
	all, err := heap.Draw(5)
	require.NoError(t, err)
	assert.Equal(t, top, all[3:])
}

func TestCardHeap_NegativeDraw(t *testing.T) {
	heap := NewCardHeap(testCards(2))
	_, err := heap.Draw(-1)
	assert.Error(t, err)
}

func TestStandardDeck(t *testing.T) {
	deck := StandardDeck()
	require.NotEmpty(t, deck)

	seen := make(map[int]bool)
	kills := 0
	for _, c := range deck {
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
		assert.True(t, c.Rank >= 1 && c.Rank <= 13)
		if c.Name == "Kill" {
			kills++
			assert.True(t, c.Type.Is(TypeBase))
		}
	}
	assert.Equal(t, 30, kills)
	assert.Equal(t, deck, StandardDeck(), "deck is stable across calls")
}

func TestCardType_Is(t *testing.T) {
	assert.True(t, TypeWeapon.Is(TypeEquipment))
	assert.True(t, TypeStratagemDelay.Is(TypeStratagem))
	assert.False(t, TypeWeapon.Is(TypeArmor))
	assert.False(t, TypeBase.Is(TypeEquipment))
}
