package catalog

import (
	"sort"
	"strings"
)

// Selection is the set of tasks requested for a run.
// All selects every task.
type Selection struct {
	All   bool
	Tasks map[Name]bool
}

// Select returns a selection of the named tasks.
func Select(names ...Name) Selection {
	s := Selection{Tasks: make(map[Name]bool, len(names))}
	for _, n := range names {
		s.Tasks[n] = true
	}
	return s
}

// Has reports whether name is selected, either directly or through All.
func (s Selection) Has(name Name) bool {
	return s.All || s.Tasks[name]
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	if s.All {
		return false
	}
	for _, on := range s.Tasks {
		if on {
			return false
		}
	}
	return true
}

// String lists the selection for display.
func (s Selection) String() string {
	if s.All {
		return "all"
	}
	var names []string
	for n, on := range s.Tasks {
		if on {
			names = append(names, string(n))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
