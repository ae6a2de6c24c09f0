package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
	"github.com/couchcryptid/forecast-hub-etl/internal/observability"
)

// SubmissionTransformer implements Transformer by running the domain
// converters and validators over each submission. Invalid submissions are
// not errors: their results carry the validation report to the sink topic.
type SubmissionTransformer struct {
	validTargets    []string
	policy          domain.RowValidator
	seasonStartYear int
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewTransformer creates a SubmissionTransformer. Pass a nil policy to skip
// domain-specific row validation.
func NewTransformer(validTargets []string, policy domain.RowValidator, seasonStartYear int, logger *slog.Logger, metrics *observability.Metrics) *SubmissionTransformer {
	return &SubmissionTransformer{
		validTargets:    validTargets,
		policy:          policy,
		seasonStartYear: seasonStartYear,
		logger:          logger,
		metrics:         metrics,
	}
}

func (t *SubmissionTransformer) Transform(_ context.Context, raw domain.RawSubmission) (domain.OutputEvent, error) {
	result, err := domain.ProcessSubmission(raw, t.validTargets, t.policy, t.seasonStartYear)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	if !result.Valid() {
		t.metrics.SubmissionsInvalid.Inc()
		t.metrics.ValidationErrors.Add(float64(len(result.Errors)))
		t.logger.Debug("submission failed validation",
			"id", result.ID, "format", result.Format, "errors", len(result.Errors))
	}

	return domain.SerializeResult(result)
}

// Validate runs one submission through conversion and validation without
// serializing it. The HTTP validation endpoint uses this path.
func (t *SubmissionTransformer) Validate(_ context.Context, raw domain.RawSubmission) (domain.SubmissionResult, error) {
	return domain.ProcessSubmission(raw, t.validTargets, t.policy, t.seasonStartYear)
}
