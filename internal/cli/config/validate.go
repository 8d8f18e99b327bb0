package config

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/roadsync/internal/catalog"
	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Validate checks the settings every database command needs.
func (c *Config) Validate() error {
	if c.Database.Name == "" {
		return core.Configuration("database name is required: set project or database.name")
	}
	if !store.ValidIdentifier(c.Database.Schema) {
		return core.Configuration("database.schema %q is not a valid identifier", c.Database.Schema)
	}
	if c.SRID < 0 {
		return core.Configuration("srid must be positive, got %d", c.SRID)
	}
	_, err := c.Roads()
	return err
}

// Roads returns the requested road codes in order, without duplicates.
func (c *Config) Roads() ([]core.RoadCode, error) {
	return core.ParseRoadCodes(c.RoadCodes)
}

// Selection returns the tasks selected for the run command.
func (c *Config) Selection() (catalog.Selection, error) {
	t := c.Tasks
	flags := map[catalog.Name]bool{
		catalog.Import:           t.Import,
		catalog.Roadways:         t.Roadways,
		catalog.Width:            t.Width,
		catalog.TransverseSlopes: t.TransverseSlopes,
		catalog.Latprofile:       t.Latprofile,
		catalog.Curves:           t.Curves,
		catalog.Defects:          t.Defects,
		catalog.Rut:              t.Rut,
		catalog.IRI:              t.IRI,
	}
	var names []catalog.Name
	for name, on := range flags {
		if on {
			names = append(names, name)
		}
	}
	sel := catalog.Select(names...)
	sel.All = t.All
	if sel.Empty() {
		return sel, core.Configuration("no tasks selected: use -a or at least one task flag")
	}
	return sel, nil
}

// ShiftDelta returns km_beg in kilometres. An unset value is 0, which leaves
// the chainage origin in place.
func (c *Config) ShiftDelta() (float64, error) {
	raw := strings.TrimSpace(c.KmBeg)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, core.Configuration("km_beg must be a number, got %q", c.KmBeg)
	}
	return v, nil
}

// StoreConfig returns the connection settings for the store.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		SSLMode:  c.Database.SSLMode,
	}
}

// Masked returns a copy safe to print.
func (c *Config) Masked() Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = "********"
	}
	return out
}
