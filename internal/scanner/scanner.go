// Package scanner finds personal or sensitive data in free text. Detectors
// return typed, scored entities; Thresholds decides which of them flag the
// text as potentially sensitive.
package scanner

import (
	"context"
	"fmt"
	"sort"
)

// Entity types produced by the built-in detectors and by Presidio.
const (
	TypePerson              = "PERSON"
	TypeEmailAddress        = "EMAIL_ADDRESS"
	TypePhoneNumber         = "PHONE_NUMBER"
	TypeUKPostcode          = "UK_POSTCODE"
	TypeUKMobilePhone       = "UK_MOBILE_PHONE"
	TypeUKLandline          = "UK_LANDLINE"
	TypeSensitivityMarkings = "SENSITIVITY_MARKINGS"
)

// Entity is a single finding. Start and End are byte offsets into the text.
// The matched text itself is not kept.
type Entity struct {
	Type  string  `json:"entity_type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Detector finds entities in text.
type Detector interface {
	Detect(ctx context.Context, text string) ([]Entity, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, text string) ([]Entity, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, text string) ([]Entity, error) {
	return f(ctx, text)
}

type combined []Detector

// Combine runs every detector in order and concatenates their findings,
// sorted by position. The first error aborts.
func Combine(detectors ...Detector) Detector {
	return combined(detectors)
}

func (c combined) Detect(ctx context.Context, text string) ([]Entity, error) {
	var out []Entity
	for _, d := range c {
		found, err := d.Detect(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("scanner: detect: %w", err)
		}
		out = append(out, found...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// Thresholds maps an entity type to the minimum score at which it flags text.
type Thresholds map[string]float64

// DefaultThresholds returns the standard per-type bars. Regex recognizers
// score 1.0, so their types require an exact pattern hit.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TypeEmailAddress:        0.7,
		TypePerson:              0.7,
		TypePhoneNumber:         0.7,
		TypeUKPostcode:          1.0,
		TypeSensitivityMarkings: 1.0,
		TypeUKMobilePhone:       1.0,
		TypeUKLandline:          1.0,
	}
}

// Types returns the configured entity types, sorted.
func (t Thresholds) Types() []string {
	types := make([]string, 0, len(t))
	for k := range t {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Flagging returns the entities whose score is at or above the threshold for
// their type. Types without a threshold never flag.
func (t Thresholds) Flagging(entities []Entity) []Entity {
	var out []Entity
	for _, e := range entities {
		bar, ok := t[e.Type]
		if ok && e.Score >= bar {
			out = append(out, e)
		}
	}
	return out
}
