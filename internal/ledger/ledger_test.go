package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askai/askai/internal/catalog"
	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/safety"
)

func TestComputeCost_Exact(t *testing.T) {
	l := New(catalog.Default())
	c, err := l.ComputeCost("gpt-3.5-turbo-0125", 57, 17)
	require.NoError(t, err)

	in, out := 0.0005, 0.0015
	assert.Equal(t, 57*(in/1000), c.InputDollars)
	assert.Equal(t, 17*(out/1000), c.OutputDollars)
}

func TestComputeCost_ZeroTokensIsFree(t *testing.T) {
	l := New(catalog.Default())
	for _, name := range catalog.Default().Names() {
		c, err := l.ComputeCost(name, 0, 0)
		require.NoError(t, err)
		assert.Zero(t, c.Total(), name)
	}
}

func TestComputeCost_Linear(t *testing.T) {
	l := New(catalog.Default())
	for _, name := range catalog.Default().Names() {
		one, err := l.ComputeCost(name, 100, 40)
		require.NoError(t, err)
		three, err := l.ComputeCost(name, 300, 120)
		require.NoError(t, err)
		assert.InDelta(t, 3*one.InputDollars, three.InputDollars, 1e-12, name)
		assert.InDelta(t, 3*one.OutputDollars, three.OutputDollars, 1e-12, name)
	}
}

func TestComputeCost_UnknownModel(t *testing.T) {
	_, err := New(catalog.Default()).ComputeCost("davinci", 10, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrUnknownModel))
}

func TestComputeCost_NegativeTokens(t *testing.T) {
	_, err := New(catalog.Default()).ComputeCost("gpt-4", -1, 0)
	assert.Error(t, err)
}

func TestUsage(t *testing.T) {
	u, err := New(catalog.Default()).Usage("gpt-4", 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, 1000, u.TokensInput)
	assert.Equal(t, 500, u.TokensOutput)
	assert.InDelta(t, 0.03, u.CostInputDollars, 1e-12)
	assert.InDelta(t, 0.03, u.CostOutputDollars, 1e-12)
}

func TestSum_IncludesIneligibleTurns(t *testing.T) {
	ok := conversation.NewTurn("c", "gpt-4", "q")
	require.NoError(t, ok.Apply(safety.EventCleared))
	require.NoError(t, ok.Complete("a", false, conversation.Usage{CostInputDollars: 1, CostOutputDollars: 2}))

	moderated := conversation.NewTurn("c", "gpt-4", "q")
	require.NoError(t, moderated.Apply(safety.EventCleared))
	require.NoError(t, moderated.Complete("bad", true, conversation.Usage{CostInputDollars: 0.5, CostOutputDollars: 0.25}))

	failed := conversation.NewTurn("c", "gpt-4", "q")
	require.NoError(t, failed.Apply(safety.EventCleared))
	require.NoError(t, failed.Fail(true))

	total := Sum([]conversation.Turn{ok, moderated, failed})
	assert.Equal(t, 1.5, total.InputDollars)
	assert.Equal(t, 2.25, total.OutputDollars)
	assert.Equal(t, 3.75, total.Total())
}
