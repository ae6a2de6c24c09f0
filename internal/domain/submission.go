package domain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format identifies the CSV dialect of an incoming submission.
type Format string

const (
	FormatQuantile Format = "quantile"
	FormatCDC      Format = "cdc"
)

// ParseFormat maps a raw format header to a known Format.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatQuantile:
		return FormatQuantile, nil
	case FormatCDC:
		return FormatCDC, nil
	default:
		return "", fmt.Errorf("unknown submission format %q", raw)
	}
}

// RawSubmission is an unprocessed message from the source topic: one CSV
// forecast file plus transport metadata.
type RawSubmission struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SubmissionResult is the canonical outcome of processing one submission:
// the assembled forecast plus the summarized validation report. A forecast
// with a non-empty Errors list was parsed but failed validation; a terminal
// parse failure leaves whatever was assembled before the failure.
type SubmissionResult struct {
	ID          string    `json:"id"`
	Source      string    `json:"source,omitempty"`
	Format      Format    `json:"format"`
	Forecast    *Forecast `json:"forecast"`
	Errors      []string  `json:"errors,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Valid reports whether the submission passed all checks.
func (r SubmissionResult) Valid() bool { return len(r.Errors) == 0 }

// ProcessSubmission converts and validates one raw submission. The format is
// taken from the "format" message header; quantile submissions run through
// the given policy and target vocabulary, CDC submissions use
// seasonStartYear for epi week date conversion.
//
// A result is always produced, even for terminal parse failures, so the
// error report reaches the sink topic. The returned error covers only
// failures to classify the message at all.
func ProcessSubmission(raw RawSubmission, validTargets []string, policy RowValidator, seasonStartYear int) (SubmissionResult, error) {
	format, err := ParseFormat(raw.Headers["format"])
	if err != nil {
		return SubmissionResult{}, err
	}

	result := SubmissionResult{
		ID:          submissionID(raw),
		Source:      raw.Headers["source"],
		Format:      format,
		ProcessedAt: clock.Now().UTC(),
	}

	switch format {
	case FormatQuantile:
		// the policy brings its own extra required columns
		var addlReqCols []string
		if policy != nil {
			addlReqCols = CovidAddlRequiredColumns
		}
		forecast, errs := FromQuantileCSV(bytes.NewReader(raw.Value), validTargets, policy, addlReqCols)
		result.Forecast = forecast
		result.Errors = SummarizeDefault(errs)
	case FormatCDC:
		forecast, err := FromCDCCSV(seasonStartYear, bytes.NewReader(raw.Value))
		if err != nil {
			result.Forecast = NewForecast()
			result.Errors = []string{err.Error()}
			break
		}
		result.Forecast = forecast
		result.Errors = SummarizeDefault(ValidateForecast(forecast))
	}
	return result, nil
}

// submissionID derives a stable ID from the message key, or from a content
// hash when the producer did not set one. Reprocessing the same file yields
// the same ID, which lets the sink deduplicate.
func submissionID(raw RawSubmission) string {
	if len(raw.Key) > 0 {
		return string(raw.Key)
	}
	sum := sha256.Sum256(raw.Value)
	return hex.EncodeToString(sum[:8])
}

// SerializeResult marshals a result into its sink topic representation.
func SerializeResult(result SubmissionResult) (OutputEvent, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize submission result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(result.ID),
		Value: data,
		Headers: map[string]string{
			"format":       string(result.Format),
			"valid":        fmt.Sprintf("%t", result.Valid()),
			"processed_at": result.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
