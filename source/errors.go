package source

import "errors"

var (
	// ErrInputMissing is returned when an input file does not exist.
	ErrInputMissing = errors.New("input file missing")

	// ErrMissingColumn is returned when a required CSV column is absent from
	// the header row.
	ErrMissingColumn = errors.New("required column missing")

	// ErrEmptyInput is returned when a CSV file has no header row.
	ErrEmptyInput = errors.New("input file is empty")
)
