package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cdcHeaderLine = "location,target,type,unit,bin_start_incl,bin_end_notincl,value\n"

func TestFromCDCCSV_PointsAndBins(t *testing.T) {
	csv := cdcHeaderLine +
		"US National,1 wk ahead,Point,percent,NA,NA,2.2\n" +
		"US National,1 wk ahead,Bin,percent,0.5,0.6,0.7\n" +
		"US National,1 wk ahead,Bin,percent,0.6,0.7,0.3\n"

	forecast, err := FromCDCCSV(2020, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, forecast.Predictions, 2)

	// bins sort before the point for the same (location, target)
	assert.Equal(t, ClassBin, forecast.Predictions[0].Class)
	assert.Equal(t, BinData{Cat: []any{0.5, 0.6}, Prob: []float64{0.7, 0.3}}, forecast.Predictions[0].Prediction)
	assert.Equal(t, ClassPoint, forecast.Predictions[1].Class)
	assert.Equal(t, PointData{Value: 2.2}, forecast.Predictions[1].Prediction)
}

func TestFromCDCCSV_HeaderTolerance(t *testing.T) {
	t.Run("quoted uppercase header", func(t *testing.T) {
		csv := `"Location","Target","Type","Unit","Bin_start_incl","Bin_end_notincl","Value"` + "\n" +
			"US National,1 wk ahead,Point,percent,NA,NA,2.2\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		assert.NoError(t, err)
	})

	t.Run("trailing empty eighth column", func(t *testing.T) {
		csv := "location,target,type,unit,bin_start_incl,bin_end_notincl,value,\n" +
			"US National,1 wk ahead,Point,percent,NA,NA,2.2,\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		assert.NoError(t, err)
	})

	t.Run("wrong header", func(t *testing.T) {
		csv := "location,target,type,unit,bin_start,bin_end,value\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid header")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := FromCDCCSV(2020, strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestFromCDCCSV_RowErrors(t *testing.T) {
	t.Run("unknown row type", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,1 wk ahead,Quantile,percent,NA,NA,2.2\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `neither "Point" nor "Bin"`)
	})

	t.Run("wrong column count", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,1 wk ahead,Point,percent,NA,NA\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wasn't 7 columns")
	})

	t.Run("duplicate point rows", func(t *testing.T) {
		csv := cdcHeaderLine +
			"US National,1 wk ahead,Point,percent,NA,NA,2.2\n" +
			"US National,1 wk ahead,Point,percent,NA,NA,2.3\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than one point row")
	})

	t.Run("unexpected bin target", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,5 wk ahead,Bin,percent,0.5,0.6,1\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected bin target name")
	})

	t.Run("non-numeric bin value", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,1 wk ahead,Bin,percent,0.5,0.6,high\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not coerce bin value")
	})

	t.Run("non-numeric point value for percent target", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,1 wk ahead,Point,percent,NA,NA,high\n"
		_, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-numeric point value")
	})
}

func TestFromCDCCSV_DateTargets(t *testing.T) {
	t.Run("onset point week converts to Monday date", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,Season onset,Point,week,NA,NA,50\n"
		forecast, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, forecast.Predictions, 1)
		assert.Equal(t, PointData{Value: "2020-12-07"}, forecast.Predictions[0].Prediction)
	})

	t.Run("week past new year converts within the season", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,Season peak week,Point,week,NA,NA,1\n"
		forecast, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, PointData{Value: "2021-01-04"}, forecast.Predictions[0].Prediction)
	})

	t.Run("fractional week rounds", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,Season peak week,Point,week,NA,NA,49.7\n"
		forecast, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, PointData{Value: "2020-12-07"}, forecast.Predictions[0].Prediction)
	})

	t.Run("none passes through lowercased", func(t *testing.T) {
		csv := cdcHeaderLine + "US National,Season onset,Point,week,NA,NA,None\n"
		forecast, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, PointData{Value: "none"}, forecast.Predictions[0].Prediction)
	})

	t.Run("onset bins convert week starts", func(t *testing.T) {
		csv := cdcHeaderLine +
			"US National,Season onset,Bin,week,50,51,0.6\n" +
			"US National,Season onset,Bin,week,none,none,0.4\n"
		forecast, err := FromCDCCSV(2020, strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, forecast.Predictions, 1)
		bin := forecast.Predictions[0].Prediction.(BinData)
		assert.Equal(t, []any{"2020-12-07", "none"}, bin.Cat)
		assert.Equal(t, []float64{0.6, 0.4}, bin.Prob)
	})
}

func TestToCDCCSV(t *testing.T) {
	t.Run("point and percent bins", func(t *testing.T) {
		f := NewForecast()
		f.Predictions = []PredictionElement{
			{Unit: "US National", Target: "1 wk ahead", Class: ClassPoint, Prediction: PointData{Value: 2.2}},
			{Unit: "US National", Target: "Season peak percentage", Class: ClassBin,
				Prediction: BinData{Cat: []any{0.0, 13.0}, Prob: []float64{0.3, 0.7}}},
		}

		rows, err := ToCDCCSV(f)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			cdcHeader,
			{"US National", "1 wk ahead", "Point", "percent", "NA", "NA", "2.2"},
			{"US National", "Season peak percentage", "Bin", "percent", "0", "0.1", "0.3"},
			{"US National", "Season peak percentage", "Bin", "percent", "13", "100", "0.7"},
		}, rows)
	})

	t.Run("week bins", func(t *testing.T) {
		f := NewForecast()
		f.Predictions = []PredictionElement{
			{Unit: "US National", Target: "Season onset", Class: ClassBin,
				Prediction: BinData{Cat: []any{"40", "52", "none"}, Prob: []float64{0.2, 0.3, 0.5}}},
		}

		rows, err := ToCDCCSV(f)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			cdcHeader,
			{"US National", "Season onset", "Bin", "week", "40", "41", "0.2"},
			{"US National", "Season onset", "Bin", "week", "52", "53", "0.3"},
			{"US National", "Season onset", "Bin", "week", "none", "none", "0.5"},
		}, rows)
	})

	t.Run("week bin label out of range", func(t *testing.T) {
		f := NewForecast()
		f.Predictions = []PredictionElement{
			{Unit: "US National", Target: "Season onset", Class: ClassBin,
				Prediction: BinData{Cat: []any{"30"}, Prob: []float64{1}}},
		}
		_, err := ToCDCCSV(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("unrecognized target", func(t *testing.T) {
		f := NewForecast()
		f.Predictions = []PredictionElement{
			{Unit: "US", Target: "1 wk ahead inc death", Class: ClassPoint, Prediction: PointData{Value: 55}},
		}
		_, err := ToCDCCSV(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target not recognized")
	})

	t.Run("unsupported class", func(t *testing.T) {
		f := NewForecast()
		f.Predictions = []PredictionElement{
			{Unit: "US National", Target: "1 wk ahead", Class: ClassQuantile,
				Prediction: QuantileData{Quantile: []float64{0.5}, Value: []any{2.2}}},
		}
		_, err := ToCDCCSV(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid prediction class")
	})
}
