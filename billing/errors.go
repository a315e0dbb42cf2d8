package billing

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateReconciliation is returned when a reconciliation with the
	// same ID is saved twice. Reconciliations are append-only; a retry of a
	// successful save must not produce a second record.
	ErrDuplicateReconciliation = errors.New("reconciliation already exists")

	// ErrJobNotFound is returned by operations that require an existing job.
	ErrJobNotFound = errors.New("job not found")
)
