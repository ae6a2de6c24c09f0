package domain

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CovidAddlRequiredColumns are required beyond the base quantile CSV columns
// for COVID-19 hub submissions.
var CovidAddlRequiredColumns = []string{"forecast_date", "target_end_date"}

// Target vocabulary. Case targets are valid at county level; everything else
// is state-level only.
var (
	covidTargetsNonCase = buildCovidTargetsNonCase()
	covidTargetsCase    = buildAheadTargets("wk ahead inc case", 1, 8)
)

// Quantile reference sets. The two lists are disjoint: case targets accept
// only the case set, non-case targets accept the union.
var (
	covidQuantilesNonCase = []float64{0.01, 0.05, 0.15, 0.2, 0.3, 0.35, 0.4, 0.45, 0.55, 0.6, 0.65, 0.7, 0.8, 0.85, 0.95, 0.99}
	covidQuantilesCase    = []float64{0.025, 0.1, 0.25, 0.5, 0.75, 0.9, 0.975}
)

//go:embed locations.csv
var bundledLocationsCSV []byte

func buildAheadTargets(suffix string, lo, hi int) []string {
	var targets []string
	for i := lo; i <= hi; i++ {
		targets = append(targets, fmt.Sprintf("%d %s", i, suffix))
	}
	return targets
}

func buildCovidTargetsNonCase() []string {
	targets := buildAheadTargets("day ahead inc hosp", 0, 130)
	targets = append(targets, buildAheadTargets("wk ahead inc death", 1, 20)...)
	targets = append(targets, buildAheadTargets("wk ahead cum death", 1, 20)...)
	return targets
}

// CovidTargets returns the full recognized target vocabulary for the
// COVID-19 policy.
func CovidTargets() []string {
	return append(append([]string{}, covidTargetsNonCase...), covidTargetsCase...)
}

// CovidPolicy implements the COVID-19 hub's row validation rules: FIPS
// location checks, per-target quantile whitelists, non-negative values, and
// forecast/target-end date alignment. Reference tables are immutable after
// construction.
type CovidPolicy struct {
	stateFIPS  map[string]bool
	countyFIPS map[string]bool
}

// LoadCovidPolicy builds a policy from the bundled locations table.
func LoadCovidPolicy() (*CovidPolicy, error) {
	return newCovidPolicy(strings.NewReader(string(bundledLocationsCSV)))
}

// LoadCovidPolicyFromFile builds a policy from an external locations CSV,
// for deployments that track the hub's location list out of band.
func LoadCovidPolicyFromFile(path string) (*CovidPolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locations file: %w", err)
	}
	defer f.Close()
	return newCovidPolicy(f)
}

// newCovidPolicy parses a locations CSV with columns
// abbreviation,location,location_name. Rows with an abbreviation are
// state-level codes; the rest are county-level.
func newCovidPolicy(r io.Reader) (*CovidPolicy, error) {
	reader := csv.NewReader(r)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read locations header: %w", err)
	}
	p := &CovidPolicy{stateFIPS: map[string]bool{}, countyFIPS: map[string]bool{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read locations row: %w", err)
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("locations row too short: %v", row)
		}
		if row[0] != "" {
			p.stateFIPS[row[1]] = true
		} else {
			p.countyFIPS[row[1]] = true
		}
	}
	return p, nil
}

// ValidateRow implements RowValidator with the COVID-19 hub rules. Date
// format and horizon parse failures stop further checks for that row since
// the alignment rules depend on them.
func (p *CovidPolicy) ValidateRow(columns map[string]int, row []string, targetValid bool) []ValidationError {
	var errs []ValidationError

	location := row[columns["location"]]
	target := row[columns["target"]]
	isCaseTarget := containsString(covidTargetsCase, target)
	isNonCaseTarget := containsString(covidTargetsNonCase, target)
	isState := p.stateFIPS[location]
	isCounty := p.countyFIPS[location]

	if targetValid && !((isCaseTarget && (isState || isCounty)) || (isNonCaseTarget && isState)) {
		errs = append(errs, errorf(PriorityForecastChecks,
			"invalid location for target. location=%q, target=%q. row=%v", location, target, row))
	}

	rawQuantile := row[columns["quantile"]]
	rawValue := row[columns["value"]]

	if v, err := strconv.ParseFloat(strings.TrimSpace(rawValue), 64); err == nil && v < 0 {
		// value must be non-negative regardless of row type
		errs = append(errs, errorf(PriorityForecastChecks,
			"entries in the `value` column must be non-negative. value=%q. row=%v", rawValue, row))
	}

	if row[columns["type"]] == quantileRowType {
		if q, err := strconv.ParseFloat(strings.TrimSpace(rawQuantile), 64); err == nil {
			isCaseQuantile := quantileInSet(q, covidQuantilesCase)
			isNonCaseQuantile := isCaseQuantile || quantileInSet(q, covidQuantilesNonCase)
			if targetValid && !((isCaseTarget && isCaseQuantile) || (isNonCaseTarget && isNonCaseQuantile)) {
				errs = append(errs, errorf(PriorityForecastChecks,
					"invalid quantile for target. quantile=%q, target=%q. row=%v", rawQuantile, target, row))
			}
		}
		// unparseable quantiles are reported by the format-level checks
	}

	if row[columns["type"]] == pointRowType {
		if q, err := strconv.ParseFloat(strings.TrimSpace(rawQuantile), 64); err == nil && !math.IsNaN(q) && !math.IsInf(q, 0) {
			errs = append(errs, errorf(PriorityForecastChecks,
				"entries in the `quantile` column must be empty for `point` entries. Current value is: %v. row=%v", q, row))
		}
	}

	forecastDate, okFD := ParseDate(row[columns["forecast_date"]])
	targetEndDate, okTED := ParseDate(row[columns["target_end_date"]])
	if !okFD || !okTED {
		errs = append(errs, errorf(PriorityForecastChecks,
			"invalid forecast_date or target_end_date format. forecast_date=%q, target_end_date=%q. row=%v",
			row[columns["forecast_date"]], row[columns["target_end_date"]], row))
		return errs // alignment checks need valid dates
	}

	horizon, unit, isAhead, err := ParseAheadTarget(target)
	if err != nil {
		return append(errs, errorf(PriorityForecastChecks, "%s. row=%v", err, row))
	}
	if !isAhead {
		// unrecognized targets are reported by the format-level checks
		return errs
	}

	switch unit {
	case HorizonDay:
		diff := int(targetEndDate.Sub(forecastDate).Hours() / 24)
		if diff != horizon {
			errs = append(errs, errorf(PriorityForecastChecks,
				"invalid target_end_date: was not %d day(s) after forecast_date. diff=%d, forecast_date=%s, "+
					"target_end_date=%s. row=%v", horizon, diff, forecastDate.Format(dateLayout),
				targetEndDate.Format(dateLayout), row))
		}
	case HorizonWeek:
		if !IsSaturday(targetEndDate) {
			errs = append(errs, errorf(PriorityDateAlignment,
				"target_end_date was not a Saturday: %s. row=%v", targetEndDate.Format(dateLayout), row))
			return errs // the expected-Saturday check needs a Saturday
		}
		expected, _ := ExpectedTargetEndDate(forecastDate, horizon, HorizonWeek)
		if !targetEndDate.Equal(expected) {
			errs = append(errs, errorf(PriorityDateAlignment,
				"target_end_date was not the expected Saturday. forecast_date=%s, target_end_date=%s. "+
					"exp_target_end_date=%s, row=%v", forecastDate.Format(dateLayout),
				targetEndDate.Format(dateLayout), expected.Format(dateLayout), row))
		}
	}

	return errs
}

// quantileInSet reports tolerant numeric membership of q in set.
func quantileInSet(q float64, set []float64) bool {
	for _, s := range set {
		if math.Abs(q-s) <= 1e-9 {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
