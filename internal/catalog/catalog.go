// Package catalog declares the derived-data tasks of the pipeline, their
// prerequisites and the order they run in.
package catalog

import (
	"fmt"

	"github.com/leapstack-labs/roadsync/internal/dag"
)

// Name identifies a task.
type Name string

// Task names.
const (
	Import           Name = "import"
	Roadways         Name = "roadways"
	Width            Name = "width"
	TransverseSlopes Name = "transverse_slopes"
	Latprofile       Name = "latprofile"
	Curves           Name = "curves"
	Defects          Name = "defects"
	Rut              Name = "rut"
	IRI              Name = "iri"
)

// Descriptor declares one task.
type Descriptor struct {
	Name  Name
	Title string
	// Flag is the single-letter command line switch.
	Flag string
	// Kernel is the stored function computing the task. Empty for import.
	Kernel string
	// UsesZone passes the UTM zone SRID after the road code.
	UsesZone bool
	// After lists tasks that must run before this one when both are selected.
	After []Name
	// Requires lists object tables that must hold rows for the road.
	Requires []string
}

// Catalog is an ordered, validated set of task descriptors.
type Catalog struct {
	byName  map[Name]*Descriptor
	ordered []*Descriptor
	graph   *dag.Graph[Name, *Descriptor]
}

// Default returns the standard task catalog.
func Default() *Catalog {
	c, err := New(defaultDescriptors())
	if err != nil {
		panic(fmt.Sprintf("default catalog is invalid: %v", err))
	}
	return c
}

func defaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: Import, Title: "Import staged objects", Flag: "i"},
		{
			Name: Roadways, Title: "Roadway polygons", Flag: "r",
			Kernel: "calc_roadways", UsesZone: true,
			After: []Name{Import}, Requires: []string{"tbl_roadways_line"},
		},
		{
			Name: Width, Title: "Roadway and shoulder width", Flag: "w",
			Kernel: "calc_width", UsesZone: true,
			After: []Name{Roadways}, Requires: []string{"tbl_roadways"},
		},
		{
			Name: TransverseSlopes, Title: "Transverse slopes", Flag: "t",
			Kernel: "calc_transverse_slopes", UsesZone: true,
			After: []Name{Width}, Requires: []string{"tbl_roadways"},
		},
		{
			Name: Latprofile, Title: "Longitudinal profile", Flag: "p",
			Kernel: "calc_latprofile",
			After:  []Name{TransverseSlopes},
		},
		{
			Name: Curves, Title: "Curves in plan", Flag: "c",
			Kernel: "calc_curves_in_plane", UsesZone: true,
			After: []Name{Latprofile},
		},
		{
			Name: Defects, Title: "Pavement defects", Flag: "f",
			Kernel: "calc_defects", UsesZone: true,
			After: []Name{Curves},
		},
		{
			Name: Rut, Title: "Rut depth", Flag: "u",
			Kernel: "calc_rut", UsesZone: true,
			After: []Name{Defects},
		},
		{
			Name: IRI, Title: "Ride quality (IRI)", Flag: "o",
			Kernel: "calc_iri", UsesZone: true,
			After: []Name{Rut},
		},
	}
}

// New builds a catalog from descriptors. Descriptors are ordered by their
// After edges; independent tasks keep declaration order.
func New(descs []Descriptor) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[Name]*Descriptor, len(descs)),
		graph:  dag.New[Name, *Descriptor](),
	}

	for i := range descs {
		d := descs[i]
		if d.Name == "" {
			return nil, fmt.Errorf("task %d has no name", i)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate task %q", d.Name)
		}
		c.byName[d.Name] = &d
		if err := c.graph.Add(d.Name, &d); err != nil {
			return nil, err
		}
	}

	for _, d := range descs {
		for _, dep := range d.After {
			if err := c.graph.Link(dep, d.Name); err != nil {
				return nil, fmt.Errorf("task %q: %w", d.Name, err)
			}
		}
	}

	ordered, err := c.graph.SortedValues()
	if err != nil {
		return nil, err
	}
	c.ordered = ordered
	return c, nil
}

// Ordered returns every task in execution order.
func (c *Catalog) Ordered() []*Descriptor {
	return c.ordered
}

// Get returns a task by name.
func (c *Catalog) Get(name Name) (*Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Prerequisites returns every task that runs before name, in execution order.
func (c *Catalog) Prerequisites(name Name) []Name {
	return c.graph.Ancestors(name)
}

// Plan returns the selected derived tasks in execution order.
// Import is handled by its own phase and is never part of the plan.
func (c *Catalog) Plan(sel Selection) []*Descriptor {
	var plan []*Descriptor
	for _, d := range c.ordered {
		if d.Name == Import {
			continue
		}
		if sel.Has(d.Name) {
			plan = append(plan, d)
		}
	}
	return plan
}
