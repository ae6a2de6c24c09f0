// Command convert translates forecast files between the supported
// representations: quantile CSV, legacy CDC CSV, canonical JSON, and the flat
// export CSV. It uses the actual ETL domain package so converted output
// matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/convert -from quantile -to json submission.csv -o forecast.json
//	go run ./cmd/convert -from cdc -season-start-year 2016 -to json flu.csv -o flu.json
//	go run ./cmd/convert -from json -to csv forecast.json -o export.csv
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	from := flag.String("from", "", "input representation: quantile, cdc, or json")
	to := flag.String("to", "json", "output representation: json, csv, quantile, or cdc")
	out := flag.String("o", "", "output path (default stdout)")
	seasonStartYear := flag.Int("season-start-year", time.Now().Year(), "season start year for cdc epi week conversion")
	flag.Parse()

	if *from == "" || flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("missing required flag -from or input file")
	}

	forecast, err := readForecast(*from, flag.Arg(0), *seasonStartYear)
	if err != nil {
		return err
	}

	return writeForecast(forecast, *to, *out)
}

// readForecast loads a forecast from any of the input representations. CSV
// inputs are validated on the way in; a file that fails validation is not
// converted.
func readForecast(from, path string, seasonStartYear int) (*domain.Forecast, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	switch from {
	case "quantile":
		forecast, errs := domain.FromQuantileCSV(f, domain.CovidTargets(), nil, nil)
		if len(errs) > 0 {
			return nil, fmt.Errorf("input failed validation:\n  %s", joinErrors(domain.SummarizeDefault(errs)))
		}
		return forecast, nil
	case "cdc":
		return domain.FromCDCCSV(seasonStartYear, f)
	case "json":
		var forecast domain.Forecast
		if err := json.NewDecoder(f).Decode(&forecast); err != nil {
			return nil, fmt.Errorf("decode forecast JSON: %w", err)
		}
		return &forecast, nil
	default:
		return nil, fmt.Errorf("unknown input representation %q", from)
	}
}

func writeForecast(forecast *domain.Forecast, to, out string) error {
	switch to {
	case "json":
		return writeJSON(out, forecast)
	case "csv":
		rows, err := domain.ToCSVRows(forecast)
		if err != nil {
			return err
		}
		return writeCSV(out, rows)
	case "quantile":
		rows, err := domain.ToQuantileCSV(forecast)
		if err != nil {
			return err
		}
		return writeCSV(out, rows)
	case "cdc":
		rows, err := domain.ToCDCCSV(forecast)
		if err != nil {
			return err
		}
		return writeCSV(out, rows)
	default:
		return fmt.Errorf("unknown output representation %q", to)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeOutput(path, data)
}

func writeCSV(path string, rows [][]string) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()

	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func joinErrors(errs []string) string {
	s := ""
	for i, e := range errs {
		if i > 0 {
			s += "\n  "
		}
		s += e
	}
	return s
}
