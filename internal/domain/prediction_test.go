package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassValid(t *testing.T) {
	for _, c := range []Class{ClassPoint, ClassQuantile, ClassBin, ClassNamed, ClassSample} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Class("histogram").Valid())
	assert.False(t, Class("").Valid())
}

func TestPredictionElement_MarshalJSON(t *testing.T) {
	t.Run("point", func(t *testing.T) {
		el := PredictionElement{Unit: "US", Target: "1 wk ahead inc death", Class: ClassPoint, Prediction: PointData{Value: 55}}
		data, err := json.Marshal(el)
		require.NoError(t, err)
		assert.JSONEq(t, `{"unit":"US","target":"1 wk ahead inc death","class":"point","prediction":{"value":55}}`, string(data))
	})

	t.Run("quantile", func(t *testing.T) {
		el := PredictionElement{
			Unit: "US", Target: "1 wk ahead inc death", Class: ClassQuantile,
			Prediction: QuantileData{Quantile: []float64{0.25, 0.75}, Value: []any{40, 70}},
		}
		data, err := json.Marshal(el)
		require.NoError(t, err)
		assert.JSONEq(t, `{"unit":"US","target":"1 wk ahead inc death","class":"quantile","prediction":{"quantile":[0.25,0.75],"value":[40,70]}}`, string(data))
	})

	t.Run("retraction is null", func(t *testing.T) {
		el := PredictionElement{Unit: "US", Target: "1 wk ahead inc death", Class: ClassPoint}
		data, err := json.Marshal(el)
		require.NoError(t, err)
		assert.JSONEq(t, `{"unit":"US","target":"1 wk ahead inc death","class":"point","prediction":null}`, string(data))
	})
}

func TestPredictionElement_UnmarshalJSON(t *testing.T) {
	t.Run("each class decodes to its payload type", func(t *testing.T) {
		tests := []struct {
			name string
			in   string
			want PredictionData
		}{
			{
				name: "point",
				in:   `{"unit":"US","target":"t","class":"point","prediction":{"value":2.5}}`,
				want: PointData{Value: 2.5},
			},
			{
				name: "quantile",
				in:   `{"unit":"US","target":"t","class":"quantile","prediction":{"quantile":[0.5],"value":[3]}}`,
				want: QuantileData{Quantile: []float64{0.5}, Value: []any{3.0}},
			},
			{
				name: "bin",
				in:   `{"unit":"US","target":"t","class":"bin","prediction":{"cat":["a","b"],"prob":[0.4,0.6]}}`,
				want: BinData{Cat: []any{"a", "b"}, Prob: []float64{0.4, 0.6}},
			},
			{
				name: "named",
				in:   `{"unit":"US","target":"t","class":"named","prediction":{"family":"pois","param1":1.2,"param2":0,"param3":0}}`,
				want: NamedData{Family: "pois", Param1: 1.2},
			},
			{
				name: "sample",
				in:   `{"unit":"US","target":"t","class":"sample","prediction":{"sample":[1,2,3]}}`,
				want: SampleData{Sample: []any{1.0, 2.0, 3.0}},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var el PredictionElement
				require.NoError(t, json.Unmarshal([]byte(tt.in), &el))
				assert.Equal(t, tt.want, el.Prediction)
				assert.False(t, el.IsRetraction())
			})
		}
	})

	t.Run("null prediction is a retraction", func(t *testing.T) {
		var el PredictionElement
		require.NoError(t, json.Unmarshal([]byte(`{"unit":"US","target":"t","class":"point","prediction":null}`), &el))
		assert.True(t, el.IsRetraction())
		assert.Equal(t, ClassPoint, el.Class)
	})

	t.Run("unknown class", func(t *testing.T) {
		var el PredictionElement
		err := json.Unmarshal([]byte(`{"unit":"US","target":"t","class":"histogram","prediction":{"x":1}}`), &el)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown prediction class")
	})

	t.Run("malformed payload", func(t *testing.T) {
		var el PredictionElement
		err := json.Unmarshal([]byte(`{"unit":"US","target":"t","class":"quantile","prediction":{"quantile":"nope"}}`), &el)
		require.Error(t, err)
	})
}

func TestForecast_JSONRoundTrip(t *testing.T) {
	f := NewForecast()
	f.Meta["1 wk ahead inc death"] = TargetMeta{Type: "discrete", Unit: "count"}
	f.Predictions = []PredictionElement{
		{Unit: "US", Target: "1 wk ahead inc death", Class: ClassPoint, Prediction: PointData{Value: 55.0}},
		{Unit: "US", Target: "1 wk ahead inc death", Class: ClassQuantile,
			Prediction: QuantileData{Quantile: []float64{0.25, 0.75}, Value: []any{40.0, 70.0}}},
		{Unit: "01", Target: "1 wk ahead inc death", Class: ClassPoint}, // retraction
	}

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var back Forecast
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f.Meta, back.Meta)
	require.Len(t, back.Predictions, 3)
	assert.Equal(t, f.Predictions[0], back.Predictions[0])
	assert.Equal(t, f.Predictions[1], back.Predictions[1])
	assert.True(t, back.Predictions[2].IsRetraction())
}
