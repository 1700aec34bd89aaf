package criteria

import (
	"fmt"
	"strings"
)

// Path locates a criterion inside the tree being authored. It is passed down
// explicitly through recursive construction and replaces any keyed global
// form state.
type Path struct {
	segments []string
	exclude  bool
}

// Root returns the path of a selector definition's top-level criterion.
func Root() Path {
	return Path{}
}

// Item returns the path of the i-th sub-criterion of a composite at p.
func (p Path) Item(op Operator, i int) Path {
	return p.child(fmt.Sprintf("%s[%d]", op, i), false)
}

// Exclusion returns the path of the i-th exclusion attached at p.
func (p Path) Exclusion(i int) Path {
	return p.child(fmt.Sprintf("exclude[%d]", i), true)
}

func (p Path) child(seg string, exclude bool) Path {
	segs := make([]string, len(p.segments), len(p.segments)+1)
	copy(segs, p.segments)
	return Path{segments: append(segs, seg), exclude: exclude}
}

// InExclude reports whether the criterion at p was reached through an
// exclude edge. Such criteria cannot carry exclusions.
func (p Path) InExclude() bool {
	return p.exclude
}

// Level is the nesting level of p; the root is level 0.
func (p Path) Level() int {
	return len(p.segments)
}

// String renders p as "root", "root.union[0]", "root.union[1].exclude[0]", ...
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "root"
	}
	return "root." + strings.Join(p.segments, ".")
}
