package engine

import "fmt"

// Suit of a playing card.
type Suit int

const (
	Spade Suit = iota
	Club
	Heart
	Diamond
)

var suitSymbols = [...]string{"♠", "♣", "♥", "♦"}

func (s Suit) String() string {
	if s < Spade || s > Diamond {
		return "?"
	}
	return suitSymbols[s]
}

// CardType groups cards by how they are played. Equipment and stratagem
// subtypes share the category bits of their parent in the low two bits.
type CardType int

const (
	TypeBase      CardType = 1
	TypeStratagem CardType = 2
	TypeEquipment CardType = 3

	TypeStratagemNormal = TypeStratagem | 1<<2
	TypeStratagemDelay  = TypeStratagem | 2<<2

	TypeWeapon       = TypeEquipment | 1<<2
	TypeArmor        = TypeEquipment | 2<<2
	TypeOffenseHorse = TypeEquipment | 3<<2
	TypeDefenseHorse = TypeEquipment | 4<<2
	TypeTreasure     = TypeEquipment | 5<<2
)

// Category strips the subtype bits.
func (t CardType) Category() CardType { return t & 3 }

// Is reports whether t is other, or a subtype of the category other.
func (t CardType) Is(other CardType) bool {
	if other <= TypeEquipment {
		return t.Category() == other
	}
	return t == other
}

// Card is immutable once dealt from the catalogue; only its pile changes.
type Card struct {
	ID   int      `json:"id"`
	Name string   `json:"name"`
	Type CardType `json:"type"`
	Suit Suit     `json:"suit"`
	Rank int      `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("[%s%s %s]", c.Suit, rankLabel(c.Rank), c.Name)
}

func rankLabel(rank int) string {
	switch rank {
	case 1:
		return "A"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	}
	return fmt.Sprint(rank)
}
