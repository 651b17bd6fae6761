package hero

import "fmt"

// Camp is the faction a character belongs to.
type Camp string

const (
	CampUnknown Camp = "unknown"
	CampShu     Camp = "shu"
	CampWei     Camp = "wei"
	CampWu      Camp = "wu"
	CampQun     Camp = "qun"
	CampJin     Camp = "jin"
)

// ParseCamp maps a faction name to a Camp, falling back to CampUnknown.
func ParseCamp(s string) Camp {
	switch c := Camp(s); c {
	case CampShu, CampWei, CampWu, CampQun, CampJin:
		return c
	}
	return CampUnknown
}

// Hero is a playable character.
type Hero struct {
	Name    string `json:"name"`
	Pack    string `json:"pack"`
	Gender  string `json:"gender"`
	Camp    Camp   `json:"camp"`
	HP      int    `json:"hp"`
	HPMax   int    `json:"hp_max"`
	Monarch bool   `json:"monarch"`
}

// UniName identifies a hero across packs.
func (h Hero) UniName() string {
	return fmt.Sprintf("%s@%s", h.Name, h.Pack)
}
