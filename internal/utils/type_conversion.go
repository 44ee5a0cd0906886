// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Error codes for numeric conversion
const (
	ErrCodeEmptyInput   = "NUM_001"
	ErrCodeNotNumeric   = "NUM_002"
	ErrCodeNotFinite    = "NUM_003"
	ErrCodeZeroDivision = "NUM_004"
	ErrCodeOutOfRange   = "NUM_005"
)

// millisecondsPerMinute is the divisor used for duration conversion
const millisecondsPerMinute = 60000

// ConversionError represents a numeric conversion error with the offending input
type ConversionError struct {
	Code    string
	Message string
	Input   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("[%s] %s (input: %q)", e.Code, e.Message, e.Input)
}

// ParseNumber parses a server-reported numeric attribute.
// Integers and decimals are accepted, surrounding whitespace is ignored.
//
// Parameters:
//   - input: The attribute value to parse
//
// Returns:
//   - float64: The parsed value or 0 if parsing fails
//   - error: ConversionError if the input is empty, not numeric or not finite
func ParseNumber(input string) (float64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, &ConversionError{Code: ErrCodeEmptyInput, Message: "input is empty", Input: input}
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &ConversionError{Code: ErrCodeNotNumeric, Message: "input is not numeric", Input: input}
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ConversionError{Code: ErrCodeNotFinite, Message: "input is not finite", Input: input}
	}

	return value, nil
}

// GetPercent returns the integer percentage of value relative to total,
// floored and clamped to [0, 100].
// A zero, absent or non-numeric total yields 0, as does a non-numeric value.
//
// Parameters:
//   - value: Elapsed amount, e.g. the viewOffset in milliseconds
//   - total: Total amount, e.g. the duration in milliseconds
//
// Returns:
//   - int: The percentage in [0, 100]
func GetPercent(value, total string) int {
	t, err := ParseNumber(total)
	if err != nil {
		logConversionFallback(err, 0)
		return 0
	}
	if t == 0 {
		logConversionFallback(&ConversionError{Code: ErrCodeZeroDivision, Message: "total is zero", Input: total}, 0)
		return 0
	}

	v, err := ParseNumber(value)
	if err != nil {
		logConversionFallback(err, 0)
		return 0
	}

	percent := math.Floor(100 * v / t)
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	}

	return int(percent)
}

// ConvertMillisecondsToMinutes converts a millisecond duration into whole minutes,
// dropping the remainder. Non-numeric input, or input outside the int64 range, yields 0.
//
// Parameters:
//   - ms: Duration in milliseconds
//
// Returns:
//   - int: Whole minutes
func ConvertMillisecondsToMinutes(ms string) int {
	value, err := ParseNumber(ms)
	if err != nil {
		logConversionFallback(err, 0)
		return 0
	}
	if value < math.MinInt64 || value >= math.MaxInt64 {
		logConversionFallback(&ConversionError{Code: ErrCodeOutOfRange, Message: "input is out of range", Input: ms}, 0)
		return 0
	}

	return int(int64(value) / millisecondsPerMinute)
}

func logConversionFallback(err error, fallback int) {
	convErr, ok := err.(*ConversionError)
	if !ok {
		return
	}

	log.Trace().
		Str("error_code", convErr.Code).
		Str("input", convErr.Input).
		Int("fallback", fallback).
		Msg("Numeric conversion failed, using fallback value")
}
