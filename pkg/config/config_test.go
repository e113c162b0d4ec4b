package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "plain", cfg.Page.ValueEncoding)
	assert.Equal(t, "snappy", cfg.Compression.Codec)
	assert.True(t, cfg.Dictionary.Enabled)
	assert.True(t, cfg.Checksum.Enabled)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max values", func(c *Config) { c.Page.MaxValues = 0 }},
		{"negative max bytes", func(c *Config) { c.Page.MaxBytes = -1 }},
		{"unknown value encoding", func(c *Config) { c.Page.ValueEncoding = "rle" }},
		{"zero max distinct", func(c *Config) { c.Dictionary.MaxDistinct = 0 }},
		{"zero max rows", func(c *Config) { c.RowGroup.MaxRows = 0 }},
		{"zero concurrency", func(c *Config) { c.RowGroup.WriteConcurrency = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, errors.IsKind(err, errors.KindConfig))
		})
	}

	// max_distinct only matters while the dictionary is enabled
	cfg := DefaultConfig()
	cfg.Dictionary.Enabled = false
	cfg.Dictionary.MaxDistinct = 0
	assert.NoError(t, cfg.Validate())
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
page:
  max_values: 500
  value_encoding: delta_binary_packed
compression:
  codec: zstd
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	// overridden values
	assert.Equal(t, 500, cfg.Page.MaxValues)
	assert.Equal(t, "delta_binary_packed", cfg.Page.ValueEncoding)
	assert.Equal(t, "zstd", cfg.Compression.Codec)
	// untouched values keep their defaults
	assert.Equal(t, 1<<20, cfg.Page.MaxBytes)
	assert.True(t, cfg.Dictionary.Enabled)
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("STRATA_TEST_CODEC", "lz4")
	path := writeFile(t, "compression:\n  codec: ${STRATA_TEST_CODEC}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lz4", cfg.Compression.Codec)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	_, err = Load(writeFile(t, "page: [not, a, mapping]"))
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	_, err = Load(writeFile(t, "page:\n  max_values: -5\n"))
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
