package safety

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askai/askai/internal/scanner"
)

type fakeModerator struct {
	flagged bool
	err     error
	calls   []string
}

func (f *fakeModerator) Moderate(_ context.Context, text string) (bool, error) {
	f.calls = append(f.calls, text)
	return f.flagged, f.err
}

type countingDetector struct {
	scanner.Detector
	calls int
}

func (c *countingDetector) Detect(ctx context.Context, text string) ([]scanner.Entity, error) {
	c.calls++
	return c.Detector.Detect(ctx, text)
}

func newTestGate(mod *fakeModerator) (*Gate, *countingDetector) {
	det := &countingDetector{Detector: scanner.NewPatternDetector()}
	return NewGate(mod, det, scanner.DefaultThresholds()), det
}

func TestGate_PostcodeNeedsConfirmation(t *testing.T) {
	gate, _ := newTestGate(&fakeModerator{})

	v, err := gate.CheckInput(context.Background(), "I want to know more about my friend who lives at 70 Whitehall, SW1A 2AS")
	require.NoError(t, err)
	assert.Equal(t, EventSensitivityFlagged, v.Event)
	require.NotEmpty(t, v.Entities)
	assert.Equal(t, scanner.TypeUKPostcode, v.Entities[0].Type)
	assert.GreaterOrEqual(t, v.Entities[0].Score, 1.0)
}

func TestGate_ModerationPreemptsSensitivity(t *testing.T) {
	gate, det := newTestGate(&fakeModerator{flagged: true})

	v, err := gate.CheckInput(context.Background(), "something awful near SW1A 2AS")
	require.NoError(t, err)
	assert.Equal(t, EventModerationFlagged, v.Event)
	assert.Empty(t, v.Entities)
	assert.Zero(t, det.calls, "sensitivity scan must not run on blocked input")
}

func TestGate_CleanInput(t *testing.T) {
	gate, det := newTestGate(&fakeModerator{})

	v, err := gate.CheckInput(context.Background(), "Can you explain what a linear regression is?")
	require.NoError(t, err)
	assert.Equal(t, EventCleared, v.Event)
	assert.Equal(t, 1, det.calls)
}

func TestGate_ModeratorFailure(t *testing.T) {
	boom := errors.New("connection reset")
	gate, det := newTestGate(&fakeModerator{err: boom})

	_, err := gate.CheckInput(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, det.calls)
}

func TestGate_DetectorFailure(t *testing.T) {
	boom := errors.New("presidio down")
	det := scanner.DetectorFunc(func(context.Context, string) ([]scanner.Entity, error) { return nil, boom })
	gate := NewGate(&fakeModerator{}, det, scanner.DefaultThresholds())

	_, err := gate.CheckInput(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
}

func TestGate_CheckOutput(t *testing.T) {
	mod := &fakeModerator{flagged: true}
	gate, _ := newTestGate(mod)

	flagged, err := gate.CheckOutput(context.Background(), "model said something")
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, []string{"model said something"}, mod.calls)
}
