package criteria

import "fmt"

// ValidationError reports a criterion that breaks a structural rule: an
// unknown enumeration value, an out-of-range count, a missing depth, or an
// exclusion nested inside an exclusion.
type ValidationError struct {
	Path   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	var loc string
	switch {
	case e.Path != "" && e.Field != "":
		loc = e.Path + "." + e.Field
	case e.Path != "":
		loc = e.Path
	default:
		loc = e.Field
	}
	if loc == "" {
		return "invalid criterion: " + e.Reason
	}
	return fmt.Sprintf("invalid criterion at %s: %s", loc, e.Reason)
}

// DepthExceededError reports a criterion tree nested deeper than the
// configured limit.
type DepthExceededError struct {
	Path  string
	Depth int
	Max   int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("criterion at %s nests %d levels deep, limit is %d", e.Path, e.Depth, e.Max)
}

// withPath fills in the location of a ValidationError raised without one.
func withPath(err error, p Path) error {
	if ve, ok := err.(*ValidationError); ok && ve.Path == "" {
		ve.Path = p.String()
	}
	return err
}
