package scanner

import (
	"context"
	"regexp"
)

// UK-centric patterns. All pattern matches score 1.0.
const (
	ukPostcodePattern    = `(?i)\b[A-Z]{1,2}[0-9R][0-9A-Z]? ?[0-9][ABD-HJLNP-UW-Z]{2}\b`
	ukMobilePattern      = `(\+44\s?|\(?0\)?)7\d{3}\s?\d{3}\s?\d{3}`
	ukLandlinePattern    = `(\+44\s?)?\(?0?\)?[123]\d{2,3}\s?\d{0,2}\)?\s?\d{6}`
	emailPattern         = `(?i)\b[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}\b`
	sensitivityMarkWords = `(?i)\b(OFFICIAL[ -]SENSITIVE|SECRET)\b`
)

type pattern struct {
	entityType string
	re         *regexp.Regexp
	score      float64
}

// PatternDetector recognises entities with regular expressions and a deny
// list of protective markings. It is stateless and safe for concurrent use.
type PatternDetector struct {
	patterns []pattern
}

// NewPatternDetector returns the built-in recognizers.
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{patterns: []pattern{
		{TypeUKPostcode, regexp.MustCompile(ukPostcodePattern), 1.0},
		{TypeUKMobilePhone, regexp.MustCompile(ukMobilePattern), 1.0},
		{TypeUKLandline, regexp.MustCompile(ukLandlinePattern), 1.0},
		{TypeEmailAddress, regexp.MustCompile(emailPattern), 1.0},
		{TypeSensitivityMarkings, regexp.MustCompile(sensitivityMarkWords), 1.0},
	}}
}

// Detect implements Detector.
func (d *PatternDetector) Detect(_ context.Context, text string) ([]Entity, error) {
	var out []Entity
	for _, p := range d.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			out = append(out, Entity{Type: p.entityType, Start: loc[0], End: loc[1], Score: p.score})
		}
	}
	return out, nil
}
