package domain

import (
	"fmt"
	"sort"
)

// Priority orders validation error messages for display. Lower values sort
// first, matching the hub's published check ordering.
type Priority int

const (
	// PriorityForecastChecks covers general format and content errors.
	PriorityForecastChecks Priority = iota
	// PriorityDateAlignment covers forecast_date / target_end_date alignment errors.
	PriorityDateAlignment
	// PriorityQuantilesAndValues covers quantile/value-pair errors at the
	// prediction level.
	PriorityQuantilesAndValues
	// PriorityQuantilesAsAGroup covers errors about quantiles as a group.
	PriorityQuantilesAsAGroup
)

// ValidationError is one collected validation problem. The domain core
// accumulates these instead of failing fast so a single submission yields a
// complete report.
type ValidationError struct {
	Priority Priority
	Message  string
}

func (e ValidationError) Error() string { return e.Message }

// errorf builds a ValidationError with fmt-style arguments.
func errorf(p Priority, format string, args ...any) ValidationError {
	return ValidationError{Priority: p, Message: fmt.Sprintf(format, args...)}
}

// summaryKeyLen is the prefix length used to decide whether two messages are
// duplicates of the same kind.
const summaryKeyLen = 20

// Summarize shortens and orders a collected error list for human-readable
// output. Messages are sorted by (priority, message); messages sharing the
// same first 20 characters count as one kind and are capped at maxDups full
// copies, with an ellipsis-suffixed short form appended when copies were
// dropped. Summarizing an already-summarized list with the same cap returns
// it unchanged.
func Summarize(errs []ValidationError, maxDups int) []string {
	sorted := make([]ValidationError, len(errs))
	copy(sorted, errs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Message < sorted[j].Message
	})

	// Group by prefix, preserving first-seen order of kinds.
	var keys []string
	kindMessages := map[string][]string{}
	kindTruncated := map[string]bool{}
	for _, e := range sorted {
		key := e.Message
		if len(key) > summaryKeyLen {
			key = key[:summaryKeyLen]
		}
		if _, seen := kindMessages[key]; !seen {
			keys = append(keys, key)
			kindMessages[key] = nil
		}
		if e.Message == key+"..." {
			// Ellipsis marker from a previous summarization pass.
			kindTruncated[key] = true
			continue
		}
		if len(kindMessages[key]) < maxDups {
			kindMessages[key] = append(kindMessages[key], e.Message)
		} else {
			kindTruncated[key] = true
		}
	}

	var out []string
	for _, key := range keys {
		out = append(out, kindMessages[key]...)
		if kindTruncated[key] {
			out = append(out, key+"...")
		}
	}
	return out
}

// SummarizeDefault is Summarize with the standard cap of 10 duplicates.
func SummarizeDefault(errs []ValidationError) []string {
	return Summarize(errs, 10)
}
