// Package config loads the grnconv configuration: a YAML file, optionally
// overridden by GRNCONV_* environment variables, which may themselves come
// from a .env file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/opal-lang/grnconv/runtime/converter"
	"github.com/opal-lang/grnconv/runtime/emitter"
	"github.com/opal-lang/grnconv/runtime/reconciler"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "grnconv.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRNCONV_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the grnconv configuration.
type Config struct {
	// Source is the groonga test root, the directory holding suite/.
	Source string `yaml:"source"`
	// Out is where generated tests and fixtures are written.
	Out          string `yaml:"out"`
	ClientImport string `yaml:"client_import"`
	Dialect      string `yaml:"dialect"`
	Concurrency  int    `yaml:"concurrency"`
	KeepGoing    bool   `yaml:"keep_going"`
	// Tests restricts conversion to test paths matching these patterns.
	Tests []string `yaml:"tests,omitempty"`
	// Report is the YAML report file. Empty disables the report.
	Report string `yaml:"report"`
	// Metrics is a Prometheus textfile. Empty disables metrics.
	Metrics string       `yaml:"metrics,omitempty"`
	Tables  TablesConfig `yaml:"tables"`
	Log     LogConfig    `yaml:"log"`
	Watch   WatchConfig  `yaml:"watch"`
}

// TablesConfig extends the built-in conversion exceptions.
type TablesConfig struct {
	Omit   map[string]string           `yaml:"omit,omitempty"`
	Skip   map[string]string           `yaml:"skip,omitempty"`
	Fixups map[string]reconciler.Fixup `yaml:"fixups,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Source:       ".",
		Out:          "generated",
		ClientImport: converter.DefaultClientImport,
		Dialect:      emitter.Testify{}.Name(),
		Report:       "grnconv-report.yaml",
		Log:          LogConfig{Level: "info"},
		Watch:        WatchConfig{Debounce: suiteDebounce.String()},
	}
}

// suiteDebounce mirrors the suite watcher default.
const suiteDebounce = 300 * time.Millisecond

// Load reads the configuration file at path over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error when path is DefaultFile. A .env file in the working directory is
// loaded first without overriding variables that are already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultFile:
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// applyEnv overlays GRNCONV_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("SOURCE", &c.Source)
	str("OUT", &c.Out)
	str("CLIENT_IMPORT", &c.ClientImport)
	str("DIALECT", &c.Dialect)
	str("REPORT", &c.Report)
	str("METRICS", &c.Metrics)
	str("LOG_LEVEL", &c.Log.Level)
	str("WATCH_DEBOUNCE", &c.Watch.Debounce)

	if v, ok := lookup(EnvPrefix + "CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sCONCURRENCY: %v", ErrInvalid, EnvPrefix, err)
		}
		c.Concurrency = n
	}
	for key, dst := range map[string]*bool{"KEEP_GOING": &c.KeepGoing, "LOG_JSON": &c.Log.JSON} {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err)
		}
		*dst = b
	}
	if v, ok := lookup(EnvPrefix + "TESTS"); ok && v != "" {
		c.Tests = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if c.Out == "" {
		errs = append(errs, errors.New("out is required"))
	}
	if c.ClientImport == "" {
		errs = append(errs, errors.New("client_import is required"))
	}
	if _, err := emitter.DialectByName(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	for _, p := range c.Tests {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid test pattern %q", p))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if _, err := c.Debounce(); err != nil {
		errs = append(errs, err)
	}
	for testPath, fix := range c.Tables.Fixups {
		for _, seq := range fix.Drop {
			if seq < 1 {
				errs = append(errs, fmt.Errorf("fixup %s: sequence %d is not positive", testPath, seq))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Debounce returns the watch debounce delay.
func (c *Config) Debounce() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return suiteDebounce, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid watch debounce %q", c.Watch.Debounce)
	}
	return d, nil
}

// ConverterOptions returns the converter options the configuration selects.
func (c *Config) ConverterOptions() []converter.Option {
	dialect, err := emitter.DialectByName(c.Dialect)
	if err != nil {
		dialect = emitter.Testify{}
	}
	tables := converter.DefaultTables().Merge(converter.Tables{
		Omit:   c.Tables.Omit,
		Skip:   c.Tables.Skip,
		Fixups: c.Tables.Fixups,
	})
	return []converter.Option{
		converter.WithDialect(dialect),
		converter.WithClientImport(c.ClientImport),
		converter.WithTables(tables),
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
