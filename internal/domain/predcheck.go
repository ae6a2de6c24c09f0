package domain

import (
	"fmt"
	"math"
	"sort"
)

// monotonicRelTol is the relative tolerance used when checking that quantile
// values are non-decreasing.
const monotonicRelTol = 1e-5

// maxListedTuples caps how many offending (unit, target) tuples an
// aggregate-check message lists before an ellipsis marker.
const maxListedTuples = 10

// ValidateForecast runs cross-row invariant checks over an assembled
// forecast: per-element quantile checks plus prediction-level rules about
// duplicate classes and multiple point predictions for the same
// (unit, target) pair. All findings are non-terminal.
func ValidateForecast(f *Forecast) []ValidationError {
	var errs []ValidationError

	type pair struct{ unit, target string }
	var order []pair
	pairClasses := map[pair][]Class{}
	for _, el := range f.Predictions {
		key := pair{el.Unit, el.Target}
		if _, seen := pairClasses[key]; !seen {
			order = append(order, key)
		}
		pairClasses[key] = append(pairClasses[key], el.Class)

		if q, ok := el.Prediction.(QuantileData); ok {
			errs = append(errs, validateQuantileData(el.Unit, el.Target, q)...)
		}
	}

	// no duplicate classes within one (unit, target) prediction
	var duplicates []string
	for _, key := range order {
		classes := pairClasses[key]
		seen := map[Class]bool{}
		hasDup := false
		for _, c := range classes {
			if seen[c] {
				hasDup = true
			}
			seen[c] = true
		}
		if hasDup {
			duplicates = append(duplicates, fmt.Sprintf("(%s, %s, %v)", key.unit, key.target, classes))
		}
	}
	if len(duplicates) > 0 {
		errs = append(errs, errorf(PriorityQuantilesAndValues,
			"Within a Prediction, there cannot be more than 1 Prediction Element of the same class. "+
				"Found these duplicate unit/target/classes tuples: %v", listWithEllipsis(duplicates)))
	}

	// at most one point prediction per (unit, target)
	var multiPoints []string
	for _, key := range order {
		points := 0
		for _, c := range pairClasses[key] {
			if c == ClassPoint {
				points++
			}
		}
		if points > 1 {
			multiPoints = append(multiPoints, fmt.Sprintf("(%s, %s, %d)", key.unit, key.target, points))
		}
	}
	if len(multiPoints) > 0 {
		errs = append(errs, errorf(PriorityQuantilesAsAGroup,
			"There must be zero or one point prediction for each location/target pair. Found these "+
				"unit, target, point counts tuples did not have exactly one point: %v", listWithEllipsis(multiPoints)))
	}

	return errs
}

// listWithEllipsis returns at most maxListedTuples entries, appending "..."
// when more were dropped.
func listWithEllipsis(tuples []string) []string {
	if len(tuples) > maxListedTuples {
		return append(tuples[:maxListedTuples:maxListedTuples], "...")
	}
	return tuples
}

// validateQuantileData checks one quantile prediction element: parallel
// array lengths, unique quantiles, and values non-decreasing as quantiles
// increase (within relative tolerance).
func validateQuantileData(unit, target string, q QuantileData) []ValidationError {
	var errs []ValidationError

	if len(q.Quantile) != len(q.Value) {
		// subsequent checks pair the arrays elementwise
		return append(errs, errorf(PriorityQuantilesAndValues,
			"The number of elements in the `quantile` and `value` vectors should be identical. "+
				"|quantile|=%d, |value|=%d, unit=%q, target=%q", len(q.Quantile), len(q.Value), unit, target))
	}

	unique := map[float64]bool{}
	for _, quantile := range q.Quantile {
		unique[quantile] = true
	}
	if len(unique) != len(q.Quantile) {
		errs = append(errs, errorf(PriorityQuantilesAndValues,
			"`quantile`s must be unique. quantile column=%v, unit=%q, target=%q", q.Quantile, unit, target))
	}

	type qv struct {
		quantile float64
		value    any
	}
	pairs := make([]qv, len(q.Quantile))
	for i := range q.Quantile {
		pairs[i] = qv{q.Quantile[i], q.Value[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].quantile < pairs[j].quantile })

	monotonic := true
	for i := 0; i+1 < len(pairs); i++ {
		if !leWithTolerance(pairs[i].value, pairs[i+1].value) {
			monotonic = false
			break
		}
	}
	if !monotonic {
		values := make([]any, len(pairs))
		for i, p := range pairs {
			values[i] = p.value
		}
		errs = append(errs, errorf(PriorityQuantilesAndValues,
			"Entries in `value` must be non-decreasing as quantiles increase. value column=%v, unit=%q, target=%q",
			values, unit, target))
	}

	return errs
}

// leWithTolerance reports a <= b for numeric values, treating values within
// monotonicRelTol of each other as equal. Non-numeric values fail the check.
func leWithTolerance(a, b any) bool {
	fa, okA := asFloat(a)
	fb, okB := asFloat(b)
	if !okA || !okB {
		return false
	}
	if math.Abs(fa-fb) <= monotonicRelTol*math.Max(math.Abs(fa), math.Abs(fb)) {
		return true
	}
	return fa <= fb
}
