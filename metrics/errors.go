package metrics

import "errors"

var (
	// ErrRepositoryRequired is returned when a transaction repository is not provided.
	ErrRepositoryRequired = errors.New("transaction repository required")

	// ErrNoConvergence is returned when an IRR search cannot bracket a root.
	ErrNoConvergence = errors.New("irr does not converge")
)
