package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ds []*Descriptor) []Name {
	out := make([]Name, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func TestDefault_Order(t *testing.T) {
	c := Default()

	want := []Name{Import, Roadways, Width, TransverseSlopes, Latprofile, Curves, Defects, Rut, IRI}
	assert.Equal(t, want, names(c.Ordered()))
}

func TestDefault_Descriptors(t *testing.T) {
	c := Default()

	roadways, ok := c.Get(Roadways)
	require.True(t, ok)
	assert.Equal(t, []string{"tbl_roadways_line"}, roadways.Requires)
	assert.True(t, roadways.UsesZone)

	latprofile, ok := c.Get(Latprofile)
	require.True(t, ok)
	assert.False(t, latprofile.UsesZone)
	assert.Equal(t, "calc_latprofile", latprofile.Kernel)

	for _, n := range []Name{Width, TransverseSlopes} {
		d, ok := c.Get(n)
		require.True(t, ok)
		assert.Equal(t, []string{"tbl_roadways"}, d.Requires, n)
	}

	flags := map[string]bool{}
	for _, d := range c.Ordered() {
		assert.False(t, flags[d.Flag], "flag %s reused", d.Flag)
		flags[d.Flag] = true
	}
}

func TestPlan(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		sel  Selection
		want []Name
	}{
		{
			name: "all",
			sel:  Selection{All: true},
			want: []Name{Roadways, Width, TransverseSlopes, Latprofile, Curves, Defects, Rut, IRI},
		},
		{
			name: "flags keep fixed order",
			sel:  Select(IRI, Width, Roadways),
			want: []Name{Roadways, Width, IRI},
		},
		{
			name: "import only",
			sel:  Select(Import),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(c.Plan(tt.sel)))
		})
	}
}

func TestPrerequisites(t *testing.T) {
	c := Default()
	assert.Equal(t, []Name{Import, Roadways}, c.Prerequisites(Width))
	assert.Empty(t, c.Prerequisites(Import))
}

func TestNew_Errors(t *testing.T) {
	_, err := New([]Descriptor{{Name: "a", After: []Name{"missing"}}})
	assert.Error(t, err)

	_, err = New([]Descriptor{
		{Name: "a", After: []Name{"b"}},
		{Name: "b", After: []Name{"a"}},
	})
	assert.ErrorContains(t, err, "cycle")

	_, err = New([]Descriptor{{Name: "a"}, {Name: "a"}})
	assert.ErrorContains(t, err, "duplicate")
}

func TestNew_DeclarationOrder(t *testing.T) {
	c, err := New([]Descriptor{{Name: "z"}, {Name: "m", After: []Name{"y"}}, {Name: "y"}})
	require.NoError(t, err)
	assert.Equal(t, []Name{"z", "y", "m"}, names(c.Ordered()))
}

func TestSelection(t *testing.T) {
	assert.True(t, Selection{}.Empty())
	assert.True(t, Select().Empty())
	assert.False(t, Select(Width).Empty())
	assert.True(t, Selection{All: true}.Has(Rut))
	assert.False(t, Select(Width).Has(Rut))
	assert.Equal(t, "iri,width", Select(Width, IRI).String())
	assert.Equal(t, "all", Selection{All: true}.String())
}
