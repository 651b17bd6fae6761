package engine

import (
	"fmt"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/hero"
)

// EquipSlot names a position in a seat's equipment region.
type EquipSlot string

const (
	SlotWeapon       EquipSlot = "weapon"
	SlotArmor        EquipSlot = "armor"
	SlotOffenseHorse EquipSlot = "offense_horse"
	SlotDefenseHorse EquipSlot = "defense_horse"
	SlotTreasure     EquipSlot = "treasure"
)

// UserRole is one filled seat: who sits there, their hidden role, the
// character they play and the cards in front of them.
type UserRole struct {
	UserID string
	Role   Role
	RoomID string

	HeroName string
	HeroPack string
	HP       int
	HPMax    int
	Camp     hero.Camp
	Gender   string

	OwnRegion   []Card
	JudgeRegion []Card
	EquipRegion map[EquipSlot]Card
	Tags        map[string]string
}

// NewUserRole builds a seat and deals its starting hand from heap.
func NewUserRole(roomID, userID string, role Role, heap *CardHeap, handSize int) (*UserRole, error) {
	hand, err := heap.Draw(handSize)
	if err != nil {
		return nil, fmt.Errorf("deal starting hand to %s: %w", userID, err)
	}
	return &UserRole{
		UserID:      userID,
		Role:        role,
		RoomID:      roomID,
		Camp:        hero.CampUnknown,
		OwnRegion:   hand,
		EquipRegion: make(map[EquipSlot]Card),
		Tags:        make(map[string]string),
	}, nil
}

// SetHero assigns the chosen character to the seat.
func (u *UserRole) SetHero(h hero.Hero) {
	u.HeroName = h.Name
	u.HeroPack = h.Pack
	u.HP = h.HP
	u.HPMax = h.HPMax
	u.Camp = h.Camp
	u.Gender = h.Gender
}

// HasHero reports whether a character has been assigned.
func (u *UserRole) HasHero() bool { return u.HeroName != "" }

// SeatSummary is the public view of a seat. Only the lord's role is revealed.
type SeatSummary struct {
	Position int       `json:"position"`
	UserID   string    `json:"user_id"`
	Lord     bool      `json:"lord"`
	Hero     string    `json:"hero,omitempty"`
	Pack     string    `json:"pack,omitempty"`
	HP       int       `json:"hp"`
	HPMax    int       `json:"hp_max"`
	Camp     hero.Camp `json:"camp"`
	Hand     int       `json:"hand"`
}

// Summary renders the seat at a 1-indexed position.
func (u *UserRole) Summary(position int) SeatSummary {
	return SeatSummary{
		Position: position,
		UserID:   u.UserID,
		Lord:     u.Role == RoleLord,
		Hero:     u.HeroName,
		Pack:     u.HeroPack,
		HP:       u.HP,
		HPMax:    u.HPMax,
		Camp:     u.Camp,
		Hand:     len(u.OwnRegion),
	}
}

// LordFirst rotates seats so the lord sits at index 0. It returns false if
// there is no lord.
func LordFirst(seats []*UserRole) ([]*UserRole, bool) {
	for i, s := range seats {
		if s.Role == RoleLord {
			out := make([]*UserRole, 0, len(seats))
			out = append(out, seats[i:]...)
			out = append(out, seats[:i]...)
			return out, true
		}
	}
	return nil, false
}
