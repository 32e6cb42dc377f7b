// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidTransaction indicates a ledger record failed validation.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidTableType indicates an unrecognized TableType value.
	ErrInvalidTableType = errors.New("invalid table type")

	// ErrInvalidStatus indicates an unrecognized DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidDate indicates a date that is not ISO-8601 (YYYY-MM-DD).
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

	// ErrMissingFund indicates a record without a fund.
	ErrMissingFund = errors.New("fund id is required")

	// ErrEmptyFileName indicates a document without a file name.
	ErrEmptyFileName = errors.New("file name cannot be empty")
)
