package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
	"github.com/couchcryptid/forecast-hub-etl/internal/observability"
	"github.com/couchcryptid/forecast-hub-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawSubmission
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawSubmission, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawSubmission) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	loaded []domain.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.loaded = append(m.loaded, events...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	batch := []domain.RawSubmission{
		makeRawSubmission("sub-1"),
		makeRawSubmission("sub-2"),
	}

	ext := &mockExtractor{batches: [][]domain.RawSubmission{batch}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, batch[0].Value, ldr.loaded[0].Value)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrorSkipsSubmission(t *testing.T) {
	commitCalled := false
	raw := makeRawSubmission("sub-3")
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawSubmission{{raw}}}
	tfm := &mockTransformer{err: errors.New("bad data")}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.True(t, commitCalled, "unprocessable submissions should still be committed")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false

	raw := makeRawSubmission("sub-4")
	raw.Topic = "forecast-submissions"
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawSubmission{{raw}}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, commitCalled)
}

// --- transformer tests ---

const validQuantileCSV = "location,target,type,quantile,value\n" +
	"US,1 wk ahead inc death,point,NA,55\n" +
	"US,1 wk ahead inc death,quantile,0.25,40\n" +
	"US,1 wk ahead inc death,quantile,0.75,70\n"

var testTargets = []string{"1 wk ahead inc death"}

func TestSubmissionTransformer_Transform(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2020, time.April, 26, 15, 10, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	tfm := pipeline.NewTransformer(testTargets, nil, 2020, slog.Default(), newTestMetrics())

	out, err := tfm.Transform(context.Background(), makeRawSubmission("sub-5"))
	require.NoError(t, err)
	assert.Equal(t, []byte("sub-5"), out.Key)
	assert.Equal(t, "quantile", out.Headers["format"])
	assert.Equal(t, "true", out.Headers["valid"])
	assert.Equal(t, "2020-04-26T15:10:00Z", out.Headers["processed_at"])

	var result domain.SubmissionResult
	require.NoError(t, json.Unmarshal(out.Value, &result))

	type resultSummary struct {
		ID          string
		Format      domain.Format
		Errors      []string
		Predictions int
	}
	expected := resultSummary{ID: "sub-5", Format: domain.FormatQuantile, Predictions: 2}
	actual := resultSummary{
		ID:          result.ID,
		Format:      result.Format,
		Errors:      result.Errors,
		Predictions: len(result.Forecast.Predictions),
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmissionTransformer_Transform_InvalidSubmission(t *testing.T) {
	tfm := pipeline.NewTransformer(testTargets, nil, 2020, slog.Default(), newTestMetrics())

	raw := makeRawSubmission("sub-6")
	raw.Value = []byte("location,target,type,quantile,value\n" +
		"US,1 wk ahead inc bogus,point,NA,55\n")

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err, "validation failures are results, not errors")
	assert.Equal(t, "false", out.Headers["valid"])

	var result domain.SubmissionResult
	require.NoError(t, json.Unmarshal(out.Value, &result))
	assert.False(t, result.Valid())
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "invalid target name")
}

func TestSubmissionTransformer_Transform_UnknownFormat(t *testing.T) {
	tfm := pipeline.NewTransformer(testTargets, nil, 2020, slog.Default(), newTestMetrics())

	raw := makeRawSubmission("sub-7")
	raw.Headers["format"] = "yaml"

	_, err := tfm.Transform(context.Background(), raw)
	assert.Error(t, err)
}

func TestSubmissionTransformer_Validate(t *testing.T) {
	tfm := pipeline.NewTransformer(testTargets, nil, 2020, slog.Default(), newTestMetrics())

	result, err := tfm.Validate(context.Background(), makeRawSubmission("sub-8"))
	require.NoError(t, err)
	assert.Equal(t, "sub-8", result.ID)
	assert.True(t, result.Valid())
	require.NotNil(t, result.Forecast)
	assert.Len(t, result.Forecast.Predictions, 2)
}

// --- helpers ---

func makeRawSubmission(id string) domain.RawSubmission {
	return domain.RawSubmission{
		Key:     []byte(id),
		Value:   []byte(validQuantileCSV),
		Headers: map[string]string{"format": "quantile"},
	}
}
