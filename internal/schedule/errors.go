package schedule

import (
	"errors"
	"fmt"
)

// InvalidInsertionError reports an Insert call whose pickup/drop-off indices
// do not fit the current schedule. It is fatal to the calling proposal
// attempt only; the schedule is unchanged when it is returned.
type InvalidInsertionError struct {
	Pickup  int
	Dropoff int
	Tasks   int
	Reason  string
}

func (e *InvalidInsertionError) Error() string {
	return fmt.Sprintf("invalid insertion (pickup=%d, dropoff=%d, tasks=%d): %s",
		e.Pickup, e.Dropoff, e.Tasks, e.Reason)
}

// IsInvalidInsertion reports whether err is an InvalidInsertionError.
// Uses errors.As to handle wrapped errors.
func IsInvalidInsertion(err error) bool {
	var ie *InvalidInsertionError
	return errors.As(err, &ie)
}
