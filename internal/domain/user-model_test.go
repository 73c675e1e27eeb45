package domain

import (
	"reflect"
	"testing"
)

func TestPushRecommendation(t *testing.T) {
	var ring []string
	for _, loc := range []string{"Darmstadt", "München", "Frankfurt", "Frankfurt", "Darmstadt"} {
		ring = PushRecommendation(ring, loc)
	}
	want := []string{"Darmstadt", "Frankfurt", "München"}
	if !reflect.DeepEqual(ring, want) {
		t.Fatalf("ring = %v, want %v", ring, want)
	}
}

func TestPushRecommendationClips(t *testing.T) {
	var ring []string
	for _, loc := range []string{"A", "B", "C", "D"} {
		ring = PushRecommendation(ring, loc)
	}
	want := []string{"D", "C", "B"}
	if !reflect.DeepEqual(ring, want) {
		t.Fatalf("ring = %v, want %v", ring, want)
	}
}

func TestStateValid(t *testing.T) {
	valid := []State{StateIdle, StateSettings, StateWarnings, StateTips, StateHelp,
		StateAwaitSuggestion, StateSubscriptionsMenu, StateAwaitSubLocation}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("state %d should be valid", s)
		}
	}
	for _, s := range []State{-1, 5, 12, 99, 111} {
		if s.Valid() {
			t.Errorf("state %d should be invalid", s)
		}
	}
}

func TestDefaultUser(t *testing.T) {
	u := DefaultUser(42)
	if u.ChatID != 42 || u.State != StateIdle || !u.ReceiveWarnings || u.LastMessageID != nil {
		t.Fatalf("unexpected defaults: %+v", u)
	}
}
