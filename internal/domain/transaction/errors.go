package transaction

import "fmt"

// InputError reports a malformed transaction row. Rows carrying one are
// rejected before they reach the matcher.
type InputError struct {
	Row    int
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %s", e.Row, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
