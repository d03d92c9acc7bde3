package lineup

import (
	"strings"
	"time"
)

const (
	SideHome = "home"
	SideAway = "away"
)

// Slot is one entry in a team sheet. A nil PlayerID marks an unresolved
// player: the provider published a name without a stable identity (common for
// youth call-ups). A later poll may resolve the same slot to a known ID.
type Slot struct {
	PlayerID     *int64
	DisplayName  string
	Number       *int
	Position     string
	IsSubstitute bool
}

// Resolved reports whether the slot carries a stable player identity.
func (s Slot) Resolved() bool {
	return s.PlayerID != nil && *s.PlayerID > 0
}

// Snapshot is one team's sheet for a fixture as last seen from the provider.
type Snapshot struct {
	FixtureID int64
	TeamID    int64
	Side      string
	Formation string
	Slots     []Slot
	FetchedAt time.Time
}

func (s Snapshot) Empty() bool {
	return len(s.Slots) == 0
}

// IsComplete is true iff every slot of both sheets, starters and substitutes,
// carries a resolved player ID. A single unresolved slot keeps it false.
func IsComplete(home, away Snapshot) bool {
	if home.Empty() || away.Empty() {
		return false
	}
	for _, side := range [][]Slot{home.Slots, away.Slots} {
		for _, slot := range side {
			if !slot.Resolved() {
				return false
			}
		}
	}
	return true
}

// Equal compares two sheets by formation and slot content, ignoring FetchedAt.
func Equal(a, b Snapshot) bool {
	if a.TeamID != b.TeamID || a.Formation != b.Formation || len(a.Slots) != len(b.Slots) {
		return false
	}
	for i := range a.Slots {
		if !slotEqual(a.Slots[i], b.Slots[i]) {
			return false
		}
	}
	return true
}

func slotEqual(a, b Slot) bool {
	if a.IsSubstitute != b.IsSubstitute || a.Position != b.Position {
		return false
	}
	if normalizeName(a.DisplayName) != normalizeName(b.DisplayName) {
		return false
	}
	if (a.PlayerID == nil) != (b.PlayerID == nil) {
		return false
	}
	if a.PlayerID != nil && *a.PlayerID != *b.PlayerID {
		return false
	}
	if (a.Number == nil) != (b.Number == nil) {
		return false
	}
	if a.Number != nil && *a.Number != *b.Number {
		return false
	}
	return true
}

// Reconcile merges a freshly fetched sheet with the previous one. Slots are
// matched by player ID where both sides have one; a previously unresolved slot
// is matched by normalized display name so a provider-assigned ID resolves the
// existing slot in place instead of producing a duplicate entry.
func Reconcile(prev, next Snapshot) Snapshot {
	if prev.Empty() {
		return next
	}

	prevByName := make(map[string]Slot, len(prev.Slots))
	for _, slot := range prev.Slots {
		if key := normalizeName(slot.DisplayName); key != "" {
			prevByName[key] = slot
		}
	}

	merged := next
	merged.Slots = make([]Slot, len(next.Slots))
	for i, slot := range next.Slots {
		if !slot.Resolved() {
			// Carry a resolution the provider already gave us on an earlier
			// poll but dropped again.
			if old, ok := prevByName[normalizeName(slot.DisplayName)]; ok && old.Resolved() {
				slot.PlayerID = old.PlayerID
			}
		}
		if slot.Number == nil {
			if old, ok := prevByName[normalizeName(slot.DisplayName)]; ok && old.Number != nil {
				slot.Number = old.Number
			}
		}
		merged.Slots[i] = slot
	}
	return merged
}

func normalizeName(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
