package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{name: "int", raw: "3", want: 3},
		{name: "negative int", raw: "-12", want: -12},
		{name: "float", raw: "3.5", want: 3.5},
		{name: "float with exponent", raw: "1e3", want: 1000.0},
		{name: "bool", raw: "true", want: true},
		{name: "surrounding whitespace", raw: " 7 ", want: 7},
		{name: "empty", raw: "", want: nil},
		{name: "NA sentinel", raw: "NA", want: nil},
		{name: "NULL sentinel", raw: "NULL", want: nil},
		{name: "date string", raw: "2020-01-01", want: nil},
		{name: "free text", raw: "mild", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseValue(tt.raw))
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, ok := ParseDate("2020-04-18")
		assert.True(t, ok)
		assert.Equal(t, time.Date(2020, time.April, 18, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("whitespace tolerated", func(t *testing.T) {
		_, ok := ParseDate(" 2020-04-18 ")
		assert.True(t, ok)
	})

	t.Run("wrong layout", func(t *testing.T) {
		_, ok := ParseDate("04/18/2020")
		assert.False(t, ok)
	})

	t.Run("not a date", func(t *testing.T) {
		_, ok := ParseDate("55")
		assert.False(t, ok)
	})
}

func TestAsFloat(t *testing.T) {
	f, ok := asFloat(3)
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	f, ok = asFloat(2.5)
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = asFloat(nil)
	assert.False(t, ok)

	_, ok = asFloat("3")
	assert.False(t, ok)

	_, ok = asFloat(true)
	assert.False(t, ok)
}

func TestIsFiniteNumber(t *testing.T) {
	assert.True(t, isFiniteNumber(0))
	assert.True(t, isFiniteNumber(-1.5))
	assert.False(t, isFiniteNumber(nil))
	assert.False(t, isFiniteNumber("x"))
	assert.False(t, isFiniteNumber(true))
}
