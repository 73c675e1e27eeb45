package domain

import "time"

// State is the user's position in the conversation. The codes are partitioned
// by menu depth: single digits are top-level menus, two digits are settings
// sub-menus, three digits are wizard sub-states.
type State int

const (
	StateIdle              State = 0
	StateSettings          State = 1
	StateWarnings          State = 2
	StateTips              State = 3
	StateHelp              State = 4
	StateAwaitSuggestion   State = 10
	StateSubscriptionsMenu State = 11
	StateAwaitSubLocation  State = 110
)

// Valid reports whether the code is one the state machine knows. A stored
// code outside this set is a data error, not user input.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateSettings, StateWarnings, StateTips, StateHelp,
		StateAwaitSuggestion, StateSubscriptionsMenu, StateAwaitSubLocation:
		return true
	}
	return false
}

// User is the persisted per-chat record. A chat id never seen before reads as
// the zero record with ReceiveWarnings enabled; rows are created lazily on the
// first write.
type User struct {
	ChatID          int64
	State           State
	ReceiveWarnings bool
	LastMessageID   *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultUser is the record returned for unknown chat ids.
func DefaultUser(chatID int64) *User {
	return &User{
		ChatID:          chatID,
		State:           StateIdle,
		ReceiveWarnings: true,
	}
}

// Subscription is one (location, category, threshold) entry. Level is the
// lowest severity rank that still notifies.
type Subscription struct {
	Location string
	Category WarningCategory
	Level    int
}

// SubscriptionSet groups a user's subscriptions by location then category.
type SubscriptionSet map[string]map[WarningCategory]int

// MaxRecommendations bounds the rolling location ring.
const MaxRecommendations = 3

// PushRecommendation prepends location to the ring, removing any earlier
// occurrence and clipping to MaxRecommendations.
func PushRecommendation(ring []string, location string) []string {
	out := make([]string, 0, MaxRecommendations)
	out = append(out, location)
	for _, r := range ring {
		if r == location {
			continue
		}
		out = append(out, r)
		if len(out) == MaxRecommendations {
			break
		}
	}
	return out
}
