package model_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/model"
)

func TestValueArithmeticPropagatesUnknown(t *testing.T) {
	known := model.Known(10)

	assert.False(t, known.Add(model.Unknown).IsKnown())
	assert.False(t, model.Unknown.Sub(known).IsKnown())
	assert.False(t, known.Mul(model.Unknown).IsKnown())
	assert.False(t, known.Div(model.Known(0)).IsKnown())
	assert.False(t, model.Known(math.NaN()).IsKnown())

	got, ok := known.Div(model.Known(4)).Float64()
	require.True(t, ok)
	assert.Equal(t, 2.5, got)
}

func TestValueMaxIgnoresUnknown(t *testing.T) {
	assert.Equal(t, model.Known(3), model.Unknown.Max(model.Known(3)))
	assert.Equal(t, model.Known(3), model.Known(3).Max(model.Unknown))
	assert.Equal(t, model.Known(5), model.Known(3).Max(model.Known(5)))
	assert.False(t, model.Unknown.Max(model.Unknown).IsKnown())
}

func TestValueRoundAndString(t *testing.T) {
	assert.Equal(t, "3", model.Known(2.5).Round().String())
	assert.Equal(t, "-3", model.Known(-2.5).Round().String())
	assert.Equal(t, "unknown", model.Unknown.String())
	assert.Equal(t, 7.0, model.Unknown.Or(7))
}

func TestValueJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		A model.Value `json:"a"`
		B model.Value `json:"b"`
	}{A: model.Known(1.5), B: model.Unknown})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(payload))

	var v model.Value
	require.NoError(t, json.Unmarshal([]byte("null"), &v))
	assert.False(t, v.IsKnown())
	require.NoError(t, json.Unmarshal([]byte("4"), &v))
	assert.Equal(t, model.Known(4), v)
}

func TestStatsGetSet(t *testing.T) {
	s := model.Stats{}
	assert.False(t, s.Get(model.StatTotalCost).IsKnown())

	s.Set(model.StatTotalCost, model.Known(12))
	assert.Equal(t, model.Known(12), s.Get(model.StatTotalCost))

	s.Set(model.StatTotalCost, model.Unknown)
	_, present := s[model.StatTotalCost]
	assert.False(t, present)

	assert.True(t, model.StatExclusiveCost.Derived())
	assert.False(t, model.StatTotalCost.Derived())
	assert.Equal(t, model.StatKey("Temp Read Blocks"), model.BlocksTempRead.SourceKey())
}
