package core

import (
	"fmt"
	"time"
)

// DateLayout is the normalized ledger date format.
const DateLayout = "2006-01-02"

// ValidateTransaction validates a ledger record before it is persisted.
//
// Validation rules:
//   - record must be one of the three record variants
//   - Date must be a valid ISO-8601 calendar date
//
// Amount sign is not validated: adjustments and reversals may be negative.
func ValidateTransaction(record TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidTransaction)
	}

	switch record.(type) {
	case CapitalCallRecord, *CapitalCallRecord,
		DistributionRecord, *DistributionRecord,
		AdjustmentRecord, *AdjustmentRecord:
	default:
		return fmt.Errorf("%w: %w: %T", ErrInvalidTransaction, ErrInvalidTableType, record)
	}

	if _, err := time.Parse(DateLayout, record.Base().Date); err != nil {
		return fmt.Errorf("%w: %w: %q", ErrInvalidTransaction, ErrInvalidDate, record.Base().Date)
	}

	return nil
}

// ValidateDocument validates a Document before it is created.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.FundID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingFund)
	}
	if doc.FileName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFileName)
	}
	if err := ValidateStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// ValidateStatus checks that a DocumentStatus has a known value.
func ValidateStatus(status DocumentStatus) error {
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}
