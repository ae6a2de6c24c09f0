// Package domain implements the forecast-file validation and conversion core.
//
// # Data Source
//
// Forecast submissions arrive as semi-structured CSV files in one of two
// shapes. The legacy CDC flu-challenge format is a fixed 7-column file
// (location, target, type, unit, bin_start_incl, bin_end_notincl, value)
// whose rows are either Point or Bin rows. The quantile format is the
// actively evolving hub submission format with five required logical columns
// (location, target, type, quantile, value) that may appear in any order,
// alongside optional extra columns and policy-mandated additional columns
// such as forecast_date and target_end_date.
//
// Both formats convert to a canonical nested representation, the
// [Forecast]: an ordered list of [PredictionElement]
// values, each carrying a unit (the entity the prediction is about), a
// target name, a prediction class, and a class-specific payload.
//
// # Epi Week Conventions
//
// Weekly targets use MMWR epidemiological week numbering: weeks start on
// Sunday, and week 1 of a year is the week containing January 4th. Flu
// seasons are anchored at week 30: week numbers below 30 belong to the
// calendar year after the season start year. CDC files encode "Season
// onset" and "Season peak week" values as epi-week numbers, which this
// package resolves to the Monday of the named week.
//
// Week-ahead targets end on Saturdays. A forecast made on a Sunday or
// Monday counts the coming Saturday as 1 week ahead; a forecast made
// Tuesday through Saturday counts the Saturday after next.
//
// # Validation
//
// Validation accumulates: content problems (bad FIPS codes, out-of-range
// quantiles, misaligned dates) are collected as [ValidationError] values so
// a submitter sees the complete report in one pass. Only structural
// problems that make further positional parsing unsafe (a malformed
// header, a row of the wrong width, an unrecognized row type) terminate
// processing early.
//
// # Retractions
//
// A retraction withdraws a previously submitted value. In the quantile CSV
// format it is encoded as the literal value "NULL"; in the canonical tree
// it is a PredictionElement whose Prediction payload is nil. Retractions
// are exempt from numeric invariants, but a quantile group must be
// retracted all-or-nothing.
package domain
