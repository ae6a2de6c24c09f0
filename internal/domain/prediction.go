package domain

import (
	"encoding/json"
	"fmt"
)

// Class discriminates the shape of a prediction element's payload.
type Class string

const (
	ClassPoint    Class = "point"
	ClassQuantile Class = "quantile"
	ClassBin      Class = "bin"
	ClassNamed    Class = "named"
	ClassSample   Class = "sample"
)

// Valid reports whether c is one of the five known prediction classes.
func (c Class) Valid() bool {
	switch c {
	case ClassPoint, ClassQuantile, ClassBin, ClassNamed, ClassSample:
		return true
	}
	return false
}

// PredictionData is the sealed payload interface. Exactly one implementation
// exists per Class; the compiler checks exhaustiveness wherever code switches
// on the concrete type.
type PredictionData interface {
	predictionClass() Class
}

// PointData is a single scalar prediction. Value is a number, string, bool,
// or ISO date string depending on the target's data type.
type PointData struct {
	Value any `json:"value"`
}

// QuantileData is a discretized CDF: parallel quantile/value arrays.
// Quantiles are distinct numbers in [0, 1]; values sorted by ascending
// quantile are non-decreasing.
type QuantileData struct {
	Quantile []float64 `json:"quantile"`
	Value    []any     `json:"value"`
}

// BinData is a binned distribution: parallel category/probability arrays.
type BinData struct {
	Cat  []any     `json:"cat"`
	Prob []float64 `json:"prob"`
}

// NamedData is a named parametric distribution.
type NamedData struct {
	Family string  `json:"family"`
	Param1 float64 `json:"param1"`
	Param2 float64 `json:"param2"`
	Param3 float64 `json:"param3"`
}

// SampleData is a list of sampled values.
type SampleData struct {
	Sample []any `json:"sample"`
}

func (PointData) predictionClass() Class    { return ClassPoint }
func (QuantileData) predictionClass() Class { return ClassQuantile }
func (BinData) predictionClass() Class      { return ClassBin }
func (NamedData) predictionClass() Class    { return ClassNamed }
func (SampleData) predictionClass() Class   { return ClassSample }

// PredictionElement is one prediction about a (unit, target) pair. A nil
// Prediction is a retraction: an explicit withdrawal of a previously
// submitted value for this class.
type PredictionElement struct {
	Unit       string
	Target     string
	Class      Class
	Prediction PredictionData
}

// IsRetraction reports whether the element withdraws a prior prediction.
func (e PredictionElement) IsRetraction() bool { return e.Prediction == nil }

// TargetMeta is optional per-target metadata carried in a forecast's meta
// section.
type TargetMeta struct {
	Type string `json:"type,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// Forecast is the canonical representation of one submission: optional
// target metadata plus an ordered list of prediction elements. Order is not
// semantically significant but is preserved for deterministic output.
type Forecast struct {
	Meta        map[string]TargetMeta `json:"meta"`
	Predictions []PredictionElement   `json:"predictions"`
}

// NewForecast returns an empty forecast with a non-nil meta section.
func NewForecast() *Forecast {
	return &Forecast{Meta: map[string]TargetMeta{}}
}

// predictionElementJSON is the wire form of PredictionElement.
type predictionElementJSON struct {
	Unit       string          `json:"unit"`
	Target     string          `json:"target"`
	Class      Class           `json:"class"`
	Prediction json.RawMessage `json:"prediction"`
}

// MarshalJSON emits the element keyed on its class, with a JSON null
// prediction for retractions.
func (e PredictionElement) MarshalJSON() ([]byte, error) {
	out := predictionElementJSON{Unit: e.Unit, Target: e.Target, Class: e.Class}
	if e.Prediction == nil {
		out.Prediction = json.RawMessage("null")
	} else {
		data, err := json.Marshal(e.Prediction)
		if err != nil {
			return nil, err
		}
		out.Prediction = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the class-specific payload based on the "class" tag.
func (e *PredictionElement) UnmarshalJSON(data []byte) error {
	var raw predictionElementJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Unit = raw.Unit
	e.Target = raw.Target
	e.Class = raw.Class
	e.Prediction = nil

	if len(raw.Prediction) == 0 || string(raw.Prediction) == "null" {
		return nil // retraction
	}

	decode := func(v PredictionData) error {
		if err := json.Unmarshal(raw.Prediction, v); err != nil {
			return fmt.Errorf("decode %s prediction for unit=%q target=%q: %w", raw.Class, raw.Unit, raw.Target, err)
		}
		return nil
	}
	switch raw.Class {
	case ClassPoint:
		var p PointData
		if err := decode(&p); err != nil {
			return err
		}
		e.Prediction = p
	case ClassQuantile:
		var q QuantileData
		if err := decode(&q); err != nil {
			return err
		}
		e.Prediction = q
	case ClassBin:
		var b BinData
		if err := decode(&b); err != nil {
			return err
		}
		e.Prediction = b
	case ClassNamed:
		var n NamedData
		if err := decode(&n); err != nil {
			return err
		}
		e.Prediction = n
	case ClassSample:
		var s SampleData
		if err := decode(&s); err != nil {
			return err
		}
		e.Prediction = s
	default:
		return fmt.Errorf("unknown prediction class %q for unit=%q target=%q", raw.Class, raw.Unit, raw.Target)
	}
	return nil
}
