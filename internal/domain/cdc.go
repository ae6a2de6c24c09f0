package domain

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CDC CSV format constants. The header is fixed; an optional trailing empty
// eighth column is tolerated for files written with a trailing comma.
var cdcHeader = []string{"location", "target", "type", "unit", "bin_start_incl", "bin_end_notincl", "value"}

const (
	cdcPointRowType = "Point"
	cdcBinRowType   = "Bin"
	cdcNAValue      = "NA"
)

// Nominal-date targets whose bin boundaries and point values are epi week
// numbers, converted to Monday calendar dates on import.
var cdcDateTargets = []string{"Season onset", "Season peak week"}

// Percent-unit bin targets keep raw numeric bin starts.
var cdcNumericBinTargets = []string{"Season peak percentage", "1 wk ahead", "2 wk ahead", "3 wk ahead", "4 wk ahead"}

// cdcTargetUnits maps every exportable CDC target to its unit column value.
var cdcTargetUnits = map[string]string{
	"Season peak percentage": "percent",
	"1 wk ahead":             "percent",
	"2 wk ahead":             "percent",
	"3 wk ahead":             "percent",
	"4 wk ahead":             "percent",
	"Season onset":           "week",
	"Season peak week":       "week",
}

// cdcRow is the intermediate form of one CDC CSV data row. Cells stay raw
// strings because the nominal-date targets need the original text ("none")
// when a cell is not numeric.
type cdcRow struct {
	location string
	target   string
	isPoint  bool
	binStart string
	value    string
}

// FromCDCCSV converts a legacy CDC CSV stream into a canonical forecast.
// Point rows become point elements and bin rows are grouped into one bin
// element per (location, target). For the nominal-date targets the epi week
// numbers in bin boundaries and point values are converted to Monday dates
// within the season starting in seasonStartYear.
//
// Unlike the quantile format, structural problems here fail hard with a
// single error: the fixed-column format has no partial-recovery story.
func FromCDCCSV(seasonStartYear int, r io.Reader) (*Forecast, error) {
	rows, err := cleanedCDCRows(r)
	if err != nil {
		return nil, err
	}

	forecast := NewForecast()
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].location != rows[j].location {
			return rows[i].location < rows[j].location
		}
		if rows[i].target != rows[j].target {
			return rows[i].target < rows[j].target
		}
		return !rows[i].isPoint && rows[j].isPoint
	})

	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].location == rows[start].location &&
			rows[end].target == rows[start].target && rows[end].isPoint == rows[start].isPoint {
			end++
		}
		group := rows[start:end]
		start = end

		location, target := group[0].location, group[0].target
		isDateTarget := containsString(cdcDateTargets, target)

		if group[0].isPoint {
			if len(group) > 1 {
				return nil, fmt.Errorf("more than one point row for location=%q, target=%q", location, target)
			}
			value, err := cdcPointValue(group[0].value, target, isDateTarget, seasonStartYear)
			if err != nil {
				return nil, err
			}
			forecast.Predictions = append(forecast.Predictions, PredictionElement{
				Unit:       location,
				Target:     target,
				Class:      ClassPoint,
				Prediction: PointData{Value: value},
			})
			continue
		}

		if !isDateTarget && !containsString(cdcNumericBinTargets, target) {
			return nil, fmt.Errorf("unexpected bin target name: %q", target)
		}
		cats := make([]any, 0, len(group))
		probs := make([]float64, 0, len(group))
		for _, row := range group {
			cat, err := cdcBinCat(row.binStart, target, isDateTarget, seasonStartYear)
			if err != nil {
				return nil, err
			}
			prob, ok := asFloat(ParseValue(row.value))
			if !ok {
				return nil, fmt.Errorf("could not coerce bin value to float. value=%v, location=%q, target=%q",
					row.value, location, target)
			}
			cats = append(cats, cat)
			probs = append(probs, prob)
		}
		forecast.Predictions = append(forecast.Predictions, PredictionElement{
			Unit:       location,
			Target:     target,
			Class:      ClassBin,
			Prediction: BinData{Cat: cats, Prob: probs},
		})
	}
	return forecast, nil
}

// cleanedCDCRows validates the header and normalizes the data rows. Empty
// cells become the NA sentinel before value parsing.
func cleanedCDCRows(r io.Reader) ([]cdcRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cleaned := header
	if len(cleaned) == 8 && cleaned[7] == "" {
		cleaned = cleaned[:7]
	}
	for i, h := range cleaned {
		cleaned[i] = strings.ToLower(strings.ReplaceAll(h, `"`, ""))
	}
	if len(cleaned) != len(cdcHeader) {
		return nil, fmt.Errorf("invalid header: %s", strings.Join(header, ", "))
	}
	for i, h := range cleaned {
		if h != cdcHeader[i] {
			return nil, fmt.Errorf("invalid header: %s", strings.Join(header, ", "))
		}
	}

	var rows []cdcRow
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) == 8 && row[7] == "" {
			row = row[:7]
		}
		if len(row) != 7 {
			return nil, fmt.Errorf("invalid row (wasn't 7 columns): %v", row)
		}

		rowType := strings.ToLower(row[2])
		if rowType != strings.ToLower(cdcPointRowType) && rowType != strings.ToLower(cdcBinRowType) {
			return nil, fmt.Errorf("row type was neither %q nor %q: %q", cdcPointRowType, cdcBinRowType, row[2])
		}

		rows = append(rows, cdcRow{
			location: row[0],
			target:   row[1],
			isPoint:  rowType == strings.ToLower(cdcPointRowType),
			binStart: emptyToNA(row[4]),
			value:    emptyToNA(row[6]),
		})
	}
	return rows, nil
}

func emptyToNA(cell string) string {
	if cell == "" {
		return cdcNAValue
	}
	return cell
}

// cdcPointValue interprets a point cell. For date targets a numeric epi week
// is rounded and converted to a Monday date string; the literal "none" is
// preserved for the onset target.
func cdcPointValue(raw, target string, isDateTarget bool, seasonStartYear int) (any, error) {
	value := ParseValue(raw)
	if !isDateTarget {
		if value == nil {
			return nil, fmt.Errorf("non-numeric point value for target=%q", target)
		}
		return value, nil
	}
	f, ok := asFloat(value)
	if !ok {
		// 'none' and other nominal values pass through lowercased
		return strings.ToLower(raw), nil
	}
	week := int(math.Round(f))
	return MondayOfEpiWeek(week, seasonStartYear).Format(dateLayout), nil
}

// cdcBinCat interprets a bin_start_incl cell into a bin category. Date
// targets convert epi weeks to Monday date strings with season wraparound
// handled by MondayOfEpiWeek; other targets require numeric bin starts.
func cdcBinCat(raw, target string, isDateTarget bool, seasonStartYear int) (any, error) {
	f, ok := asFloat(ParseValue(raw))
	if !isDateTarget {
		if !ok {
			return nil, fmt.Errorf("could not coerce bin_start_incl to float. bin_start_incl=%v, target=%q", raw, target)
		}
		return f, nil
	}
	if !ok {
		return strings.ToLower(raw), nil
	}
	week := int(math.Round(f))
	return MondayOfEpiWeek(week, seasonStartYear).Format(dateLayout), nil
}

// ToCDCCSV renders a forecast of point and bin elements back into CDC CSV
// rows, header included. Bin categories for the week-unit targets must be
// epi week labels (or "none"); their exclusive upper bounds come from a
// fixed successor table. Percent-unit bins get bin_end_notincl = lwr + 0.1,
// except the terminal 13 bin which closes at 100.
func ToCDCCSV(f *Forecast) ([][]string, error) {
	rows := [][]string{append([]string{}, cdcHeader...)}
	for _, el := range f.Predictions {
		unit, ok := cdcTargetUnits[el.Target]
		if !ok {
			return nil, fmt.Errorf("target not recognized: %q", el.Target)
		}

		switch pred := el.Prediction.(type) {
		case PointData:
			rows = append(rows, []string{el.Unit, el.Target, cdcPointRowType, unit,
				cdcNAValue, cdcNAValue, formatCell(pred.Value)})
		case BinData:
			for i := range pred.Cat {
				cat := formatCell(pred.Cat[i])
				var binEnd string
				if unit == "week" {
					end, err := weekBinEnd(cat)
					if err != nil {
						return nil, err
					}
					binEnd = end
				} else {
					lwr, ok := asFloat(pred.Cat[i])
					if !ok {
						return nil, fmt.Errorf("non-numeric bin start for target=%q: %v", el.Target, pred.Cat[i])
					}
					if lwr == 13 {
						binEnd = "100"
					} else {
						binEnd = formatCell(lwr + 0.1)
					}
				}
				rows = append(rows, []string{el.Unit, el.Target, cdcBinRowType, unit,
					cat, binEnd, formatCell(pred.Prob[i])})
			}
		default:
			return nil, fmt.Errorf("invalid prediction class for CDC export: %v", el.Class)
		}
	}
	return rows, nil
}

// weekBinEnd returns the exclusive upper bound for a season-week bin label:
// the following week, wrapping 52 to 53 at the year boundary, with "none"
// mapped to itself.
func weekBinEnd(cat string) (string, error) {
	cat = strings.ToLower(cat)
	if cat == "none" {
		return "none", nil
	}
	week, err := strconv.Atoi(cat)
	if err != nil {
		return "", fmt.Errorf("unrecognized week bin label: %q", cat)
	}
	if (week < 1 || week > 20) && (week < 40 || week > 52) {
		return "", fmt.Errorf("week bin label out of range: %q", cat)
	}
	return strconv.Itoa(week + 1), nil
}

// formatCell renders a parsed value back into a CSV cell.
func formatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(n)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", n)
	}
}
