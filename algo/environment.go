// SPDX-License-Identifier: MIT

package algo

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables read by NewEnvironment.
const (
	// EnvCPU caps the dispatch tier by name ("avx2", "sse42", ...).
	EnvCPU = "ALGOKIT_CPU"
	// EnvNoSIMD forces TierBaseline when set to any non-empty value.
	EnvNoSIMD = "ALGOKIT_NO_SIMD"
	// EnvThreads sets the partition runner concurrency.
	EnvThreads = "ALGOKIT_THREADS"
	// EnvLogLevel sets the logrus level ("debug", "info", ...).
	EnvLogLevel = "ALGOKIT_LOG_LEVEL"
)

// DefaultLogLevel is the level of the logger created when none is supplied.
const DefaultLogLevel = logrus.WarnLevel

// Environment carries the process-wide execution settings an algorithm is
// constructed against: the CPU tier, thread budget, allocator and logger.
// It is created explicitly and passed by reference; there is no global
// instance.
type Environment struct {
	detected CPUTier
	tier     CPUTier
	threads  int
	logger   *logrus.Logger
	alloc    *Allocator
}

// Config is the file form of the environment settings.
type Config struct {
	CPU         string `yaml:"cpu"`
	NoSIMD      bool   `yaml:"no_simd"`
	Threads     int    `yaml:"threads"`
	MemoryLimit int64  `yaml:"memory_limit"`
	LogLevel    string `yaml:"log_level"`
}

// LoadConfig reads a YAML Config from path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("algo: open config: %w", err)
	}
	defer f.Close()

	return ReadConfig(f)
}

// ReadConfig decodes a YAML Config from r. Unknown keys are rejected.
func ReadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("algo: decode config: %w", err)
	}

	return cfg, nil
}

type envOptions struct {
	tier        *CPUTier
	threads     int
	memoryLimit int64
	logger      *logrus.Logger
	level       *logrus.Level
	cfg         *Config
	ignoreEnv   bool
}

// EnvOption configures NewEnvironment.
type EnvOption func(*envOptions)

// WithTier caps dispatch at t. The effective tier never exceeds the detected one.
func WithTier(t CPUTier) EnvOption { return func(o *envOptions) { o.tier = &t } }

// WithThreads sets the partition runner concurrency. Panics on n <= 0.
func WithThreads(n int) EnvOption {
	if n <= 0 {
		panic(fmt.Sprintf("algo: WithThreads requires n > 0 (got %d)", n))
	}

	return func(o *envOptions) { o.threads = n }
}

// WithMemoryLimit caps the number of bytes a single allocation may request.
// Zero disables the cap.
func WithMemoryLimit(bytes int64) EnvOption {
	if bytes < 0 {
		panic(fmt.Sprintf("algo: WithMemoryLimit requires bytes >= 0 (got %d)", bytes))
	}

	return func(o *envOptions) { o.memoryLimit = bytes }
}

// WithLogger installs l as the environment logger.
func WithLogger(l *logrus.Logger) EnvOption { return func(o *envOptions) { o.logger = l } }

// WithLogLevel sets the logger level.
func WithLogLevel(lvl logrus.Level) EnvOption { return func(o *envOptions) { o.level = &lvl } }

// WithConfig applies a file-level Config. Explicit options given after it win.
func WithConfig(cfg Config) EnvOption { return func(o *envOptions) { o.cfg = &cfg } }

// WithoutEnvVars ignores the ALGOKIT_* environment variables. Tests use it to
// stay independent of the host shell.
func WithoutEnvVars() EnvOption { return func(o *envOptions) { o.ignoreEnv = true } }

// NewEnvironment probes the CPU and resolves settings in the order
// defaults → Config → environment variables → explicit options.
func NewEnvironment(opts ...EnvOption) (*Environment, error) {
	o := envOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	detected := DetectTier()
	env := &Environment{
		detected: detected,
		tier:     detected,
		threads:  runtime.GOMAXPROCS(0),
	}
	var memoryLimit int64
	level := DefaultLogLevel

	// Stage 1 (Config)
	if o.cfg != nil {
		if o.cfg.CPU != "" {
			t, err := ParseTier(o.cfg.CPU)
			if err != nil {
				return nil, err
			}
			env.tier = minTier(t, detected)
		}
		if o.cfg.NoSIMD {
			env.tier = TierBaseline
		}
		if o.cfg.Threads > 0 {
			env.threads = o.cfg.Threads
		}
		memoryLimit = o.cfg.MemoryLimit
		if o.cfg.LogLevel != "" {
			lvl, err := logrus.ParseLevel(o.cfg.LogLevel)
			if err != nil {
				return nil, fmt.Errorf("algo: config log_level: %w", err)
			}
			level = lvl
		}
	}

	// Stage 2 (Environment variables)
	if !o.ignoreEnv {
		if v := os.Getenv(EnvCPU); v != "" {
			t, err := ParseTier(v)
			if err != nil {
				return nil, fmt.Errorf("algo: %s: %w", EnvCPU, err)
			}
			env.tier = minTier(t, detected)
		}
		if os.Getenv(EnvNoSIMD) != "" {
			env.tier = TierBaseline
		}
		if v := os.Getenv(EnvThreads); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("algo: %s must be a positive integer, got %q", EnvThreads, v)
			}
			env.threads = n
		}
		if v := os.Getenv(EnvLogLevel); v != "" {
			lvl, err := logrus.ParseLevel(v)
			if err != nil {
				return nil, fmt.Errorf("algo: %s: %w", EnvLogLevel, err)
			}
			level = lvl
		}
	}

	// Stage 3 (Explicit options)
	if o.tier != nil {
		env.tier = minTier(*o.tier, detected)
	}
	if o.threads > 0 {
		env.threads = o.threads
	}
	if o.memoryLimit > 0 {
		memoryLimit = o.memoryLimit
	}
	if o.level != nil {
		level = *o.level
	}
	if o.logger != nil {
		env.logger = o.logger
		if o.level != nil {
			env.logger.SetLevel(level)
		}
	} else {
		env.logger = logrus.New()
		env.logger.SetLevel(level)
	}
	env.alloc = NewAllocator(memoryLimit)

	env.logger.WithFields(logrus.Fields{
		"detected": detected,
		"tier":     env.tier,
		"threads":  env.threads,
	}).Debug("algo: environment ready")

	return env, nil
}

// MustEnvironment is NewEnvironment that panics on error. Intended for tests
// and examples.
func MustEnvironment(opts ...EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

func minTier(a, b CPUTier) CPUTier {
	if a < b {
		return a
	}

	return b
}

// Tier returns the dispatch tier.
func (e *Environment) Tier() CPUTier { return e.tier }

// DetectedTier returns the tier the CPU probe reported.
func (e *Environment) DetectedTier() CPUTier { return e.detected }

// Threads returns the partition runner concurrency.
func (e *Environment) Threads() int { return e.threads }

// Logger returns the environment logger.
func (e *Environment) Logger() *logrus.Logger { return e.logger }

// Allocator returns the environment allocator.
func (e *Environment) Allocator() *Allocator { return e.alloc }
