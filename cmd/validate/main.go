// Command validate checks forecast CSV files offline, running the same
// conversion and validation path the pipeline applies to Kafka submissions.
//
// Usage:
//
//	go run ./cmd/validate -format quantile forecasts/*.csv
//	go run ./cmd/validate -format cdc -season-start-year 2016 flu-submission.csv
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
)

func main() {
	format := flag.String("format", "", "submission format: quantile or cdc")
	seasonStartYear := flag.Int("season-start-year", time.Now().Year(), "season start year for cdc epi week conversion")
	locations := flag.String("locations", "", "path to a locations CSV overriding the bundled table")
	targetsFile := flag.String("targets", "", "path to a newline-separated target vocabulary overriding the bundled one")
	noPolicy := flag.Bool("no-policy", false, "skip location and quantile policy rules (quantile format only)")
	flag.Parse()

	if *format == "" || flag.NArg() == 0 {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "usage: validate -format {quantile|cdc} [flags] file...")
		os.Exit(1)
	}

	if code := run(*format, *seasonStartYear, *locations, *targetsFile, *noPolicy, flag.Args()); code != 0 {
		os.Exit(code)
	}
}

func run(format string, seasonStartYear int, locations, targetsFile string, noPolicy bool, files []string) int {
	parsedFormat, err := domain.ParseFormat(format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	validTargets, policy, err := buildValidationSetup(parsedFormat, locations, targetsFile, noPolicy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Printf("=== Forecast Validation (%s format) ===\n\n", parsedFormat)

	failed := 0
	for _, path := range files {
		errs := validateFile(path, parsedFormat, validTargets, policy, seasonStartYear)

		status := "\033[32mPASS\033[0m"
		if len(errs) > 0 {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(errs))
			failed++
		}
		fmt.Printf("  %-48s %s\n", path, status)
		for i, e := range errs {
			fmt.Printf("    [%d] %s\n", i+1, e)
		}
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d file(s) FAILED validation.\n", failed, len(files))
		return 1
	}
	fmt.Printf("All %d file(s) passed validation.\n", len(files))
	return 0
}

// buildValidationSetup resolves the target vocabulary and row policy for the
// chosen format. The CDC format brings its own fixed vocabulary and needs
// neither.
func buildValidationSetup(format domain.Format, locations, targetsFile string, noPolicy bool) ([]string, domain.RowValidator, error) {
	if format != domain.FormatQuantile {
		return nil, nil, nil
	}

	validTargets := domain.CovidTargets()
	if targetsFile != "" {
		custom, err := loadTargetsFile(targetsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load targets: %w", err)
		}
		validTargets = custom
	}

	if noPolicy {
		return validTargets, nil, nil
	}

	var policy *domain.CovidPolicy
	var err error
	if locations != "" {
		policy, err = domain.LoadCovidPolicyFromFile(locations)
	} else {
		policy, err = domain.LoadCovidPolicy()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load locations: %w", err)
	}
	return validTargets, policy, nil
}

func validateFile(path string, format domain.Format, validTargets []string, policy domain.RowValidator, seasonStartYear int) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	switch format {
	case domain.FormatQuantile:
		var addlReqCols []string
		if policy != nil {
			addlReqCols = domain.CovidAddlRequiredColumns
		}
		_, errs := domain.FromQuantileCSV(f, validTargets, policy, addlReqCols)
		return domain.SummarizeDefault(errs)
	case domain.FormatCDC:
		forecast, err := domain.FromCDCCSV(seasonStartYear, f)
		if err != nil {
			return []string{err.Error()}
		}
		return domain.SummarizeDefault(domain.ValidateForecast(forecast))
	}
	return nil
}

// loadTargetsFile reads a newline-separated target vocabulary. Blank lines
// and #-comments are skipped.
func loadTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets in %s", path)
	}
	return targets, nil
}
