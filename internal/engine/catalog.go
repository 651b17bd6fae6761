package engine

type catalogEntry struct {
	name  string
	typ   CardType
	count int
}

var standardCatalog = []catalogEntry{
	{"Kill", TypeBase, 30},
	{"Dodge", TypeBase, 15},
	{"Peach", TypeBase, 8},

	{"Impeccable", TypeStratagemNormal, 3},
	{"Get More", TypeStratagemNormal, 4},
	{"Steal", TypeStratagemNormal, 5},
	{"Break", TypeStratagemNormal, 6},
	{"Borrow Sword", TypeStratagemNormal, 2},
	{"Duel", TypeStratagemNormal, 3},
	{"Barbarian Invasion", TypeStratagemNormal, 3},
	{"Arrow Volley", TypeStratagemNormal, 1},
	{"Harvest", TypeStratagemNormal, 2},
	{"Peach Garden", TypeStratagemNormal, 1},
	{"Indulgence", TypeStratagemDelay, 3},
	{"Lightning", TypeStratagemDelay, 1},

	{"Crossbow", TypeWeapon, 2},
	{"Double Sword", TypeWeapon, 1},
	{"Qinggang Sword", TypeWeapon, 1},
	{"Ice Sword", TypeWeapon, 1},
	{"Snake Spear", TypeWeapon, 1},
	{"Green Dragon Blade", TypeWeapon, 1},
	{"Stone Axe", TypeWeapon, 1},
	{"Halberd", TypeWeapon, 1},
	{"Kirin Bow", TypeWeapon, 1},
	{"Eight Trigrams", TypeArmor, 2},
	{"Renwang Shield", TypeArmor, 1},
	{"Red Hare", TypeOffenseHorse, 1},
	{"Zixing", TypeOffenseHorse, 1},
	{"Dayuan", TypeOffenseHorse, 1},
	{"Shadowrunner", TypeDefenseHorse, 1},
	{"Dilu", TypeDefenseHorse, 1},
	{"Flying Lightning", TypeDefenseHorse, 1},
}

// StandardDeck returns a fresh copy of the standard card collection.
// IDs are stable across calls; suits and ranks are assigned by position.
func StandardDeck() []Card {
	cards := make([]Card, 0, 110)
	id := 1
	for _, e := range standardCatalog {
		for i := 0; i < e.count; i++ {
			cards = append(cards, Card{
				ID:   id,
				Name: e.name,
				Type: e.typ,
				Suit: Suit(id % 4),
				Rank: (id*7)%13 + 1,
			})
			id++
		}
	}
	return cards
}
