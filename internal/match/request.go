package match

import (
	"math"
	"strconv"
	"strings"

	"github.com/utsavhq/vendormatch/internal/directory"
)

// EventType is the kind of event a request is planning for. The set is
// closed; tag affinity scoring switches over these values.
type EventType string

const (
	EventWedding    EventType = "Wedding"
	EventEngagement EventType = "Engagement"
	EventReception  EventType = "Reception"
	EventSangeet    EventType = "Sangeet"
	EventCorporate  EventType = "Corporate"
	EventBirthday   EventType = "Birthday"
	EventOther      EventType = "Other"
)

// EventTypes returns all valid event types in display order.
func EventTypes() []EventType {
	return []EventType{
		EventWedding,
		EventEngagement,
		EventReception,
		EventSangeet,
		EventCorporate,
		EventBirthday,
		EventOther,
	}
}

// ParseEventType maps a wire string to an EventType. The second return value
// reports whether the string named a known event type.
func ParseEventType(s string) (EventType, bool) {
	e := EventType(s)
	if e.Valid() {
		return e, true
	}
	return "", false
}

// Valid reports whether e is one of the closed event type values.
func (e EventType) Valid() bool {
	switch e {
	case EventWedding, EventEngagement, EventReception, EventSangeet,
		EventCorporate, EventBirthday, EventOther:
		return true
	}
	return false
}

// Request describes one event's vendor needs. Requests are ephemeral: built
// per query, never persisted, never mutated by the engine.
type Request struct {
	EventType  EventType            `json:"event_type"`
	City       string               `json:"city"`
	Budget     float64              `json:"budget"`
	Categories []directory.Category `json:"categories"`
}

// NewRequest builds a normalized Request from host form input. Budget arrives
// as text and degrades to zero rather than erroring; an empty category
// selection becomes {Other}. Duplicate categories collapse to their first
// occurrence.
func NewRequest(eventType EventType, city, budgetText string, categories []directory.Category) Request {
	return Request{
		EventType:  eventType,
		City:       city,
		Budget:     NormalizeBudget(budgetText),
		Categories: NormalizeCategories(categories),
	}
}

// NormalizeBudget parses budget text from a host form. Anything that does not
// parse as a finite non-negative number normalizes to 0; this is a deliberate
// leniency policy, never an error.
func NormalizeBudget(text string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NormalizeCategories collapses duplicates (first occurrence order) and
// substitutes {Other} for an empty selection. Values are passed through
// without validation; the engine treats category membership as opaque.
func NormalizeCategories(categories []directory.Category) []directory.Category {
	out := make([]directory.Category, 0, len(categories))
	seen := make(map[directory.Category]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, directory.CategoryOther)
	}
	return out
}

// Needs reports whether the request asks for the given category.
func (r Request) Needs(c directory.Category) bool {
	for _, want := range r.Categories {
		if want == c {
			return true
		}
	}
	return false
}
