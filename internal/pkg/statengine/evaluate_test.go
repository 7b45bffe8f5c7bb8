package statengine

import (
	"context"
	"errors"
	"testing"

	"github.com/gabrielonicala/quillia/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStatChangesRejectsAndClamps(t *testing.T) {
	raw := map[string]RawStatChange{
		"BogusStat": {Change: 99},
		"Valor":     {Change: -10, Confidence: 2},
	}

	validated := ValidateStatChanges(models.ThemeFantasy, raw)

	require.Len(t, validated, 1)
	valor, ok := validated["Valor"]
	require.True(t, ok)
	assert.Equal(t, -4, valor.Change)
	assert.Equal(t, 1.0, valor.Confidence)
	assert.Equal(t, defaultReason, valor.Reason)
}

func TestValidateStatChangesRoundsBeforeClamping(t *testing.T) {
	raw := map[string]RawStatChange{
		"Valor":  {Change: 2.6, Confidence: 0.5, Reason: "stood firm"},
		"Wisdom": {Change: -0.4, Confidence: -1},
	}

	validated := ValidateStatChanges(models.ThemeFantasy, raw)

	assert.Equal(t, 3, validated["Valor"].Change)
	assert.Equal(t, 0.5, validated["Valor"].Confidence)
	assert.Equal(t, "stood firm", validated["Valor"].Reason)
	assert.Equal(t, 0, validated["Wisdom"].Change)
	assert.Equal(t, 0.0, validated["Wisdom"].Confidence)
}

type stubJudge struct {
	result map[string]RawStatChange
	err    error
}

func (s stubJudge) EvaluateStatChanges(_ context.Context, _, _, _ string, _ models.CharacterStats) (map[string]RawStatChange, error) {
	return s.result, s.err
}

func TestEvaluateSwallowsJudgeFailure(t *testing.T) {
	svc := NewService(stubJudge{err: errors.New("provider timeout")}, nil)

	changes := svc.Evaluate(context.Background(), "orig", "reimagined", models.ThemeFantasy, nil)

	assert.NotNil(t, changes)
	assert.Empty(t, changes)
}

func TestEvaluateValidatesJudgeOutput(t *testing.T) {
	svc := NewService(stubJudge{result: map[string]RawStatChange{
		"Valor":     {Change: 7, Confidence: 0.9, Reason: "faced the dragon"},
		"NotAStat":  {Change: 1},
	}}, nil)

	changes := svc.Evaluate(context.Background(), "orig", "reimagined", models.ThemeFantasy, nil)

	require.Len(t, changes, 1)
	assert.Equal(t, 4, changes["Valor"].Change)
}
