package balance

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupNotFound is returned when a group id is unknown to the state.
	ErrGroupNotFound = errors.New("match group not found")

	// ErrUnbalanced is returned when a group is required to balance and does not.
	ErrUnbalanced = errors.New("match group does not balance")
)

// ConflictError reports an attempt to claim a transaction that already
// belongs to a group. The caller either skips it or overrides.
type ConflictError struct {
	TransactionID int
	GroupID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction %d is already claimed by group %s", e.TransactionID, e.GroupID)
}

// SearchBoundedError reports that a candidate pool was larger than the cap
// and was truncated before the combination search ran. Results returned
// alongside it are best-effort.
type SearchBoundedError struct {
	PoolSize int
	Cap      int
}

func (e *SearchBoundedError) Error() string {
	return fmt.Sprintf("candidate pool of %d truncated to %d before combination search", e.PoolSize, e.Cap)
}

// InvalidGroupError reports a member list that can never form a group.
type InvalidGroupError struct {
	Reason string
}

func (e *InvalidGroupError) Error() string {
	return "invalid match group: " + e.Reason
}
