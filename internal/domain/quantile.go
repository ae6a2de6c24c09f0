package domain

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Required logical columns of the quantile CSV format. They may appear in any
// order and may be accompanied by extra columns.
var quantileRequiredColumns = []string{"location", "target", "type", "quantile", "value"}

const (
	pointRowType    = "point"
	quantileRowType = "quantile"

	// RetractionValue is the sentinel in the value column that marks a
	// retraction row.
	RetractionValue = "NULL"
)

// RowValidator plugs domain-specific per-row rules into the quantile CSV
// parser. Implementations receive the header's column-to-index map, the raw
// row, and whether the row's target was recognized, and return any extra
// errors. They must not mutate the row.
type RowValidator interface {
	ValidateRow(columns map[string]int, row []string, targetValid bool) []ValidationError
}

// RowValidatorFunc adapts a plain function to the RowValidator interface.
type RowValidatorFunc func(columns map[string]int, row []string, targetValid bool) []ValidationError

func (f RowValidatorFunc) ValidateRow(columns map[string]int, row []string, targetValid bool) []ValidationError {
	return f(columns, row, targetValid)
}

// quantileRow is the intermediate parsed form of one CSV data row.
type quantileRow struct {
	target   string
	location string
	isPoint  bool
	quantile any
	value    any
}

// FromQuantileCSV validates and converts a quantile-format CSV stream into a
// canonical forecast. Point rows become point elements and quantile rows are
// grouped into one quantile element per (location, target).
//
// validTargets is the recognized target vocabulary. validator, when non-nil,
// runs domain rules against every data row. addlReqCols names columns that
// are required beyond the base five.
//
// Errors are accumulated so one pass reports everything wrong with a file.
// Structural problems (missing or duplicate required column, row width
// mismatch, unrecognized row type) are terminal: parsing stops and the
// forecast holds whatever was assembled before the failure.
func FromQuantileCSV(r io.Reader, validTargets []string, validator RowValidator, addlReqCols []string) (*Forecast, []ValidationError) {
	rows, errs := validatedQuantileRows(r, validTargets, validator, addlReqCols)

	forecast := NewForecast()
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].target != rows[j].target {
			return rows[i].target < rows[j].target
		}
		if rows[i].location != rows[j].location {
			return rows[i].location < rows[j].location
		}
		return !rows[i].isPoint && rows[j].isPoint
	})

	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].target == rows[start].target &&
			rows[end].location == rows[start].location && rows[end].isPoint == rows[start].isPoint {
			end++
		}
		group := rows[start:end]
		start = end

		if group[0].isPoint {
			for _, row := range group {
				var pred PredictionData
				if row.value != nil {
					pred = PointData{Value: row.value}
				}
				forecast.Predictions = append(forecast.Predictions, PredictionElement{
					Unit:       row.location,
					Target:     row.target,
					Class:      ClassPoint,
					Prediction: pred,
				})
			}
			continue
		}

		// canonical form keeps each group sorted by ascending quantile
		sort.SliceStable(group, func(i, j int) bool {
			qi, _ := asFloat(group[i].quantile)
			qj, _ := asFloat(group[j].quantile)
			return qi < qj
		})
		quantiles := make([]float64, 0, len(group))
		values := make([]any, 0, len(group))
		retracted := 0
		for _, row := range group {
			q, _ := asFloat(row.quantile)
			quantiles = append(quantiles, q)
			values = append(values, row.value)
			if row.value == nil {
				retracted++
			}
		}
		if retracted > 0 && retracted < len(values) {
			errs = append(errs, errorf(PriorityQuantilesAndValues,
				"Retracted quantile values must all be %q, but only some were. values=%v", RetractionValue, values))
			continue
		}
		var pred PredictionData
		if retracted == 0 {
			pred = QuantileData{Quantile: quantiles, Value: values}
		}
		forecast.Predictions = append(forecast.Predictions, PredictionElement{
			Unit:       group[0].location,
			Target:     group[0].target,
			Class:      ClassQuantile,
			Prediction: pred,
		})
	}

	errs = append(errs, ValidateForecast(forecast)...)
	return forecast, errs
}

// validatedQuantileRows streams and validates the CSV, returning parsed rows
// plus accumulated errors. A terminal error returns early with no rows.
func validatedQuantileRows(r io.Reader, validTargets []string, validator RowValidator, addlReqCols []string) ([]quantileRow, []ValidationError) {
	var errs []ValidationError

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row width is validated explicitly below
	header, err := reader.Read()
	if err != nil {
		return nil, append(errs, errorf(PriorityForecastChecks, "could not read header: %s", err))
	}

	columns, headerErr, terminal := validateQuantileHeader(header, addlReqCols)
	if headerErr != "" {
		errs = append(errs, errorf(PriorityForecastChecks, "%s", headerErr))
	}
	if terminal {
		return nil, errs
	}

	targetSet := make(map[string]bool, len(validTargets))
	for _, t := range validTargets {
		targetSet[t] = true
	}
	invalidTargets := map[string]bool{}

	var rows []quantileRow
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, errorf(PriorityForecastChecks, "could not read row: %s", err))
			return nil, errs
		}
		if len(row) != len(header) {
			// positional indices are unreliable from here on
			errs = append(errs, errorf(PriorityForecastChecks,
				"invalid number of items in row. len(header)=%d but len(row)=%d. row=%v", len(header), len(row), row))
			return nil, errs
		}

		location := row[columns["location"]]
		target := row[columns["target"]]
		rowType := row[columns["type"]]
		rawQuantile := row[columns["quantile"]]
		rawValue := row[columns["value"]]

		isValidTarget := targetSet[target]
		if !isValidTarget {
			invalidTargets[target] = true
		}

		if rowType != pointRowType && rowType != quantileRowType {
			errs = append(errs, errorf(PriorityForecastChecks,
				"entries in the `type` column must be either %q or %q: %q. row=%v", pointRowType, quantileRowType, rowType, row))
			return nil, errs // we don't know how to classify this row
		}
		isPoint := rowType == pointRowType
		isRetraction := rawValue == RetractionValue
		quantile := ParseValue(rawQuantile)
		value := ParseValue(rawValue)

		q, _ := asFloat(quantile)
		if !isPoint && (!isFiniteNumber(quantile) || q < 0 || q > 1) {
			errs = append(errs, errorf(PriorityForecastChecks,
				"entries in the `quantile` column must be an int or float in [0, 1]: %v. row=%v", quantile, row))
		} else if !isRetraction && !isFiniteNumber(value) {
			errs = append(errs, errorf(PriorityForecastChecks,
				"entries in the `value` column must be an int or float: %v. row=%v", value, row))
		}

		if validator != nil {
			errs = append(errs, validator.ValidateRow(columns, row, isValidTarget)...)
		}
		rows = append(rows, quantileRow{target: target, location: location, isPoint: isPoint, quantile: quantile, value: value})
	}

	if len(invalidTargets) > 0 {
		names := make([]string, 0, len(invalidTargets))
		for name := range invalidTargets {
			names = append(names, name)
		}
		sort.Strings(names)
		errs = append(errs, errorf(PriorityForecastChecks, "invalid target name(s): %q", names))
	}
	if len(rows) == 0 {
		errs = append(errs, errorf(PriorityForecastChecks, "no data rows in file"))
	}
	return rows, errs
}

// validateQuantileHeader builds the column-to-index map. terminal is true
// when a required column is missing or any column is duplicated, in which
// case parsing cannot safely continue. Extra columns are reported but
// tolerated.
func validateQuantileHeader(header []string, addlReqCols []string) (columns map[string]int, errMsg string, terminal bool) {
	seen := map[string]bool{}
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Sprintf("invalid header. found duplicate column(s): header=%v", header), true
		}
		seen[name] = true
	}

	required := append(append([]string{}, quantileRequiredColumns...), addlReqCols...)
	var missing []string
	columns = map[string]int{}
	for _, name := range required {
		idx := -1
		for i, h := range header {
			if h == name {
				idx = i
				break
			}
		}
		if idx == -1 {
			missing = append(missing, name)
			continue
		}
		columns[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Sprintf("invalid header. did not contain the required column(s). missing=%v, header=%v, required_columns=%v",
			missing, header, required), true
	}
	if len(header) > len(required) {
		var extra []string
		requiredSet := map[string]bool{}
		for _, name := range required {
			requiredSet[name] = true
		}
		for _, h := range header {
			if !requiredSet[h] {
				extra = append(extra, h)
			}
		}
		return columns, fmt.Sprintf("invalid header. contained extra column(s). extra=%v, header=%v, required_columns=%v",
			extra, header, required), false
	}
	return columns, "", false
}

// ParseAheadTarget splits a target name like "1 wk ahead inc death" into its
// numeric horizon and step unit. ok is false when the name is not an N-ahead
// target; err is non-nil when it is, but the leading horizon is not an
// integer.
func ParseAheadTarget(target string) (horizon int, unit HorizonUnit, ok bool, err error) {
	var prefix string
	switch {
	case strings.Contains(target, "day ahead"):
		unit = HorizonDay
		prefix = strings.SplitN(target, "day ahead", 2)[0]
	case strings.Contains(target, "wk ahead"):
		unit = HorizonWeek
		prefix = strings.SplitN(target, "wk ahead", 2)[0]
	default:
		return 0, "", false, nil
	}
	horizon, e := strconv.Atoi(strings.TrimSpace(prefix))
	if e != nil {
		return 0, unit, true, fmt.Errorf("non-integer 'ahead' number in target: %q", target)
	}
	return horizon, unit, true, nil
}
