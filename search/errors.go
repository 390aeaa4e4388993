package search

import "fmt"

// StateNameUnparseable is returned when event reconstruction needs a
// non-insert HMM state name to carry an embedded germline position
// (spec.md §4.6, "<family><gene>_<position>") and it doesn't.
type StateNameUnparseable struct {
	StateName string
	Gene      string
}

func (e *StateNameUnparseable) Error() string {
	return fmt.Sprintf("search: state name %q (gene %s) does not match <family><gene>_<position>", e.StateName, e.Gene)
}
