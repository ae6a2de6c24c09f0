package domain

import "fmt"

// CSVHeader is the fixed header of the generic export CSV. Rows are sparse:
// columns a class does not use are empty strings.
var CSVHeader = []string{"unit", "target", "class", "value", "cat", "prob", "sample", "quantile",
	"family", "param1", "param2", "param3"}

// ToCSVRows renders a forecast into generic export CSV rows, header
// included. Point elements emit one row, bin/sample/quantile elements one
// row per entry. A retraction emits a single row with every payload column
// empty.
func ToCSVRows(f *Forecast) ([][]string, error) {
	rows := [][]string{append([]string{}, CSVHeader...)}
	for _, el := range f.Predictions {
		base := func() []string {
			row := make([]string, len(CSVHeader))
			row[0], row[1], row[2] = el.Unit, el.Target, string(el.Class)
			return row
		}

		if el.IsRetraction() {
			if !el.Class.Valid() {
				return nil, fmt.Errorf("invalid prediction class: %q", el.Class)
			}
			rows = append(rows, base())
			continue
		}

		switch pred := el.Prediction.(type) {
		case PointData:
			row := base()
			row[3] = formatCell(pred.Value)
			rows = append(rows, row)
		case BinData:
			for i := range pred.Cat {
				row := base()
				row[4] = formatCell(pred.Cat[i])
				row[5] = formatCell(pred.Prob[i])
				rows = append(rows, row)
			}
		case SampleData:
			for _, sample := range pred.Sample {
				row := base()
				row[6] = formatCell(sample)
				rows = append(rows, row)
			}
		case QuantileData:
			for i := range pred.Quantile {
				row := base()
				row[3] = formatCell(pred.Value[i])
				row[7] = formatCell(pred.Quantile[i])
				rows = append(rows, row)
			}
		case NamedData:
			row := base()
			row[8] = pred.Family
			row[9] = formatCell(pred.Param1)
			row[10] = formatCell(pred.Param2)
			row[11] = formatCell(pred.Param3)
			rows = append(rows, row)
		default:
			return nil, fmt.Errorf("invalid prediction class: %q", el.Class)
		}
	}
	return rows, nil
}

// ToQuantileCSV projects a forecast onto the five-column quantile CSV
// format, keeping only point and quantile elements.
func ToQuantileCSV(f *Forecast) ([][]string, error) {
	full, err := ToCSVRows(f)
	if err != nil {
		return nil, err
	}
	rows := [][]string{append([]string{}, quantileRequiredColumns...)}
	for _, row := range full[1:] {
		class := row[2]
		if class != string(ClassPoint) && class != string(ClassQuantile) {
			continue
		}
		rows = append(rows, []string{row[0], row[1], class, row[7], row[3]})
	}
	return rows, nil
}
