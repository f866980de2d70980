package engine

import (
	"errors"
	"fmt"
)

// CommitErrorCode categorizes schedule commit rejections.
type CommitErrorCode string

const (
	// ErrCodeDuplicateTrade flags a trade appearing in more than one
	// vessel's schedule of the same staged batch. Rejects the whole batch.
	ErrCodeDuplicateTrade CommitErrorCode = "DUPLICATE_TRADE"

	// ErrCodeInfeasibleTime flags a schedule whose constraint network has
	// no consistent task times. Rejects that vessel's schedule.
	ErrCodeInfeasibleTime CommitErrorCode = "INFEASIBLE_TIME"

	// ErrCodeInfeasibleCargo flags a schedule that over- or underruns the
	// vessel's hold. Rejects that vessel's schedule.
	ErrCodeInfeasibleCargo CommitErrorCode = "INFEASIBLE_CARGO"

	// ErrCodeUnawardedTrade flags a schedule carrying a trade the company
	// holds no contract for. Rejects that vessel's schedule.
	ErrCodeUnawardedTrade CommitErrorCode = "UNAWARDED_TRADE"

	// ErrCodeForeignVessel flags a schedule staged for a vessel the
	// company does not own. Rejects that vessel's schedule.
	ErrCodeForeignVessel CommitErrorCode = "FOREIGN_VESSEL"
)

// CommitError is a rejected schedule commit. A rejection never touches the
// live schedules; the vessel keeps executing what was committed before.
type CommitError struct {
	Code    CommitErrorCode
	Company string
	Vessel  string
	Message string
}

func (e *CommitError) Error() string {
	if e.Vessel != "" {
		return fmt.Sprintf("%s: %s (company=%s, vessel=%s)", e.Code, e.Message, e.Company, e.Vessel)
	}
	return fmt.Sprintf("%s: %s (company=%s)", e.Code, e.Message, e.Company)
}

// AsCommitError unwraps err into a CommitError.
func AsCommitError(err error) (*CommitError, bool) {
	var ce *CommitError
	ok := errors.As(err, &ce)
	return ce, ok
}

// IsBatchRejection reports whether the error rejected a whole staged batch
// rather than a single vessel's schedule.
func IsBatchRejection(err error) bool {
	ce, ok := AsCommitError(err)
	return ok && ce.Code == ErrCodeDuplicateTrade
}
