package rules

import (
	"os"
	"path/filepath"
	"testing"

	"checkdelta/internal/core/ports"
	"checkdelta/internal/engine/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.RuleMetadataProvider = (*Catalog)(nil)

func TestCatalog_Lookup(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	r := c.Rule("MagicNumber")
	assert.Equal(t, "coding", r.Category)
	assert.Contains(t, r.Description, "magic numbers")

	assert.Equal(t, r, c.Rule("MagicNumberCheck"))
	assert.Equal(t, Rule{Name: "NoSuchRule"}, c.Rule("NoSuchRule"))
	assert.Equal(t, "", c.Description("NoSuchRule"))
}

func TestCatalog_CoversScopeTable(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	table := scope.NewTable()

	for _, kind := range scope.Kinds {
		for _, name := range table.Rules(kind) {
			assert.NotEmpty(t, c.Description(name), name)
		}
	}
}

func TestLoad_OverridesDescriptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[rules.MagicNumberCheck]
description = "Use named constants."

[rules.HouseStyle]
category = "custom"
description = "Team specific rule."
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Use named constants.", c.Description("MagicNumber"))
	assert.Equal(t, "coding", c.Rule("MagicNumber").Category)
	assert.Equal(t, "custom", c.Rule("HouseStyleCheck").Category)
	assert.Contains(t, c.Names(), "HouseStyle")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[rules\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	c, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Names())
}
