package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectTypes(t *testing.T, text string) []string {
	t.Helper()
	found, err := NewPatternDetector().Detect(context.Background(), text)
	require.NoError(t, err)
	var types []string
	for _, e := range DefaultThresholds().Flagging(found) {
		types = append(types, e.Type)
	}
	return types
}

func TestPatternDetector_Postcode(t *testing.T) {
	for _, text := range []string{
		"I want to know more about my friend who lives at 70 Whitehall,  SW1A 2AS",
		"Mickey Mouse: BL9 3TF",
		"lower case works too: sw1a 2as",
	} {
		assert.Contains(t, detectTypes(t, text), TypeUKPostcode, text)
	}
}

func TestPatternDetector_SensitivityMarkings(t *testing.T) {
	for _, text := range []string{
		"Official Sensitive",
		"OFFICIAL-SENSITIVE",
		"SECRET",
		"Can you please tell me about this top secret document?",
	} {
		assert.Contains(t, detectTypes(t, text), TypeSensitivityMarkings, text)
	}
}

func TestPatternDetector_UKPhoneNumbers(t *testing.T) {
	for _, text := range []string{
		"01204 778998",
		"(01204)668669",
		"07777888734",
		"07777 666666",
		"+44 131 667998",
		"+441204667998",
		"01382 006776",
		"07777 666 666",
	} {
		types := detectTypes(t, text)
		assert.True(t,
			contains(types, TypeUKMobilePhone) || contains(types, TypeUKLandline),
			"%q not flagged as a phone number: %v", text, types)
	}
}

func TestPatternDetector_Email(t *testing.T) {
	assert.Contains(t, detectTypes(t, "write to mr@example.com please"), TypeEmailAddress)
}

func TestPatternDetector_InnocentText(t *testing.T) {
	for _, text := range []string{
		"Can you explain what a linear regression is?",
		"What is the capital of Spain?",
		"",
	} {
		assert.Empty(t, detectTypes(t, text), text)
	}
}

func TestPatternDetector_Offsets(t *testing.T) {
	text := "postcode SW1A 2AS here"
	found, err := NewPatternDetector().Detect(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	var pc Entity
	for _, e := range found {
		if e.Type == TypeUKPostcode {
			pc = e
		}
	}
	assert.Equal(t, "SW1A 2AS", text[pc.Start:pc.End])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
