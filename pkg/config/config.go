// Package config holds the tunable writer settings and a YAML loader
// with ${VAR} environment substitution.
package config

import (
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datalith/strata/pkg/errors"
)

// Config collects the writer-side knobs. The zero value is not usable;
// start from DefaultConfig and override.
type Config struct {
	Page        PageConfig        `yaml:"page"`
	Dictionary  DictionaryConfig  `yaml:"dictionary"`
	Compression CompressionConfig `yaml:"compression"`
	Checksum    ChecksumConfig    `yaml:"checksum"`
	RowGroup    RowGroupConfig    `yaml:"row_group"`
}

// PageConfig bounds the size of a single data page
type PageConfig struct {
	// MaxValues flushes a page once it holds this many entries
	MaxValues int `yaml:"max_values"`
	// MaxBytes flushes a page once its raw value bytes reach this size
	MaxBytes int `yaml:"max_bytes"`
	// ValueEncoding names the non-dictionary value encoding: "plain",
	// "delta_binary_packed", "delta_length_byte_array" or "delta_byte_array".
	// Columns the named encoding does not support fall back to plain.
	ValueEncoding string `yaml:"value_encoding"`
}

// DictionaryConfig controls dictionary encoding per column chunk
type DictionaryConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxDistinct is the distinct-value count above which a chunk
	// abandons dictionary encoding for the rest of its pages
	MaxDistinct int `yaml:"max_distinct"`
}

// CompressionConfig names the page payload codec
type CompressionConfig struct {
	Codec string `yaml:"codec"`
}

// ChecksumConfig toggles page checksums
type ChecksumConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RowGroupConfig bounds a row group and its close-time parallelism
type RowGroupConfig struct {
	MaxRows int `yaml:"max_rows"`
	// WriteConcurrency is the number of column chunks closed in parallel
	WriteConcurrency int `yaml:"write_concurrency"`
}

// DefaultConfig returns settings suitable for most workloads
func DefaultConfig() *Config {
	return &Config{
		Page: PageConfig{
			MaxValues:     20_000,
			MaxBytes:      1 << 20,
			ValueEncoding: "plain",
		},
		Dictionary: DictionaryConfig{
			Enabled:     true,
			MaxDistinct: 64 * 1024,
		},
		Compression: CompressionConfig{
			Codec: "snappy",
		},
		Checksum: ChecksumConfig{
			Enabled: true,
		},
		RowGroup: RowGroupConfig{
			MaxRows:          1 << 20,
			WriteConcurrency: runtime.NumCPU(),
		},
	}
}

var validValueEncodings = map[string]struct{}{
	"plain":                   {},
	"delta_binary_packed":     {},
	"delta_length_byte_array": {},
	"delta_byte_array":        {},
}

// Validate checks the configuration for internally inconsistent values
func (c *Config) Validate() error {
	if c.Page.MaxValues <= 0 {
		return errors.New(errors.KindConfig, "page.max_values must be positive")
	}
	if c.Page.MaxBytes <= 0 {
		return errors.New(errors.KindConfig, "page.max_bytes must be positive")
	}
	if _, ok := validValueEncodings[c.Page.ValueEncoding]; !ok {
		return errors.Newf(errors.KindConfig, "unknown page.value_encoding %q", c.Page.ValueEncoding)
	}
	if c.Dictionary.Enabled && c.Dictionary.MaxDistinct <= 0 {
		return errors.New(errors.KindConfig, "dictionary.max_distinct must be positive when enabled")
	}
	if c.RowGroup.MaxRows <= 0 {
		return errors.New(errors.KindConfig, "row_group.max_rows must be positive")
	}
	if c.RowGroup.WriteConcurrency <= 0 {
		return errors.New(errors.KindConfig, "row_group.write_concurrency must be positive")
	}
	return nil
}

// Load reads a YAML file over the defaults, substituting ${VAR}
// references from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is caller controlled
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "reading config file")
	}

	content := substituteEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "parsing config YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}
