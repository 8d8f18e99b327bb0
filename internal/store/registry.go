package store

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Logical names of the tables the pipeline addresses directly.
const (
	Roads        = "roads"
	Panoramas    = "panoramas"
	Surfaces     = "las_tin"
	SurfaceLinks = "fname_road_code"
	Dictionary   = "dict_roads"
	Staging      = "staging"
	StructDB     = "struct_db"
)

// Default schemas.
const (
	DefaultObjectSchema  = "dorgis"
	DefaultSurfaceSchema = "public"
	DefaultStagingSchema = "editor"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name is an acceptable table, schema or function name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Ident is a schema-qualified table name.
type Ident struct {
	Schema string
	Name   string
}

// String returns the quoted, schema-qualified form.
func (i Ident) String() string {
	if i.Schema == "" {
		return pgx.Identifier{i.Name}.Sanitize()
	}
	return pgx.Identifier{i.Schema, i.Name}.Sanitize()
}

// Registry resolves logical table names, object tables and stored functions
// to identifiers that are safe to splice into SQL text.
type Registry struct {
	mu           sync.RWMutex
	objectSchema string
	tables       map[string]Ident
	functions    map[string]struct{}
}

// NewRegistry creates a registry whose object tables live in objectSchema.
// An empty objectSchema selects DefaultObjectSchema.
func NewRegistry(objectSchema string) (*Registry, error) {
	if objectSchema == "" {
		objectSchema = DefaultObjectSchema
	}
	if !ValidIdentifier(objectSchema) {
		return nil, fmt.Errorf("invalid schema name %q", objectSchema)
	}
	return &Registry{
		objectSchema: objectSchema,
		tables:       make(map[string]Ident),
		functions:    make(map[string]struct{}),
	}, nil
}

// DefaultRegistry returns a registry with the standard road network layout.
func DefaultRegistry(objectSchema string) (*Registry, error) {
	r, err := NewRegistry(objectSchema)
	if err != nil {
		return nil, err
	}

	tables := []struct {
		logical string
		ident   Ident
	}{
		{Roads, Ident{r.objectSchema, "tbl_roads"}},
		{Panoramas, Ident{r.objectSchema, "tbl_panoram_road"}},
		{Surfaces, Ident{DefaultSurfaceSchema, "tbl_las_tin"}},
		{SurfaceLinks, Ident{DefaultSurfaceSchema, "tbl_fname_road_code"}},
		{Dictionary, Ident{"dorgis", "dict_roads"}},
		{Staging, Ident{DefaultStagingSchema, "tbl_acad_objects"}},
		{StructDB, Ident{"dorgis", "struct_db"}},
	}
	for _, t := range tables {
		if err := r.RegisterTable(t.logical, t.ident); err != nil {
			return nil, err
		}
	}

	for _, fn := range []string{
		"calc_roadways",
		"calc_width",
		"calc_transverse_slopes",
		"calc_latprofile",
		"calc_curves_in_plane",
		"calc_defects",
		"calc_rut",
		"calc_iri",
	} {
		if err := r.RegisterFunction(fn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterTable binds a logical name to a table.
func (r *Registry) RegisterTable(logical string, ident Ident) error {
	if ident.Schema != "" && !ValidIdentifier(ident.Schema) {
		return fmt.Errorf("invalid schema name %q", ident.Schema)
	}
	if !ValidIdentifier(ident.Name) {
		return fmt.Errorf("invalid table name %q", ident.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[logical] = ident
	return nil
}

// RegisterFunction allows a stored function to be called by name.
func (r *Registry) RegisterFunction(name string) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("invalid function name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = struct{}{}
	return nil
}

// Table resolves a registered logical table name.
func (r *Registry) Table(logical string) (Ident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.tables[logical]
	if !ok {
		return Ident{}, fmt.Errorf("unknown table %q", logical)
	}
	return ident, nil
}

// MustTable is like Table but panics on an unknown name.
// Only for names registered by DefaultRegistry.
func (r *Registry) MustTable(logical string) Ident {
	ident, err := r.Table(logical)
	if err != nil {
		panic(err)
	}
	return ident
}

// Object validates an object table name (as found in staging or the layer
// catalog) and qualifies it with the object schema.
func (r *Registry) Object(table string) (Ident, error) {
	if !ValidIdentifier(table) {
		return Ident{}, fmt.Errorf("invalid table name %q", table)
	}
	return Ident{Schema: r.objectSchema, Name: table}, nil
}

// Function resolves a registered stored function.
func (r *Registry) Function(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.functions[name]; !ok {
		return "", fmt.Errorf("unknown function %q", name)
	}
	return name, nil
}

// ObjectSchema returns the schema object tables live in.
func (r *Registry) ObjectSchema() string {
	return r.objectSchema
}
