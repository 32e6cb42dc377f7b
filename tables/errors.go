package tables

import "errors"

var (
	// ErrMissingDate indicates a row without a parseable date.
	ErrMissingDate = errors.New("row has no parseable date")

	// ErrMissingAmount indicates a row without a parseable amount.
	ErrMissingAmount = errors.New("row has no parseable amount")

	// ErrRowPanic wraps a panic recovered while extracting a row.
	ErrRowPanic = errors.New("row extraction panicked")

	// ErrEmptyAmount indicates a blank amount cell.
	ErrEmptyAmount = errors.New("amount is empty")

	// ErrAbbreviatedAmount indicates a magnitude suffix such as 5.5M.
	ErrAbbreviatedAmount = errors.New("abbreviated amounts are not accepted")

	// ErrNotAmount indicates a cell that is not a plain number.
	ErrNotAmount = errors.New("not a numeric amount")

	// ErrInvalidKeywords indicates unusable keyword configuration.
	ErrInvalidKeywords = errors.New("invalid keyword configuration")
)
