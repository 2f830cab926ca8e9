package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/nrtkbb/forensic/digest"
	"github.com/nrtkbb/forensic/eventlog"
)

// LogEnvName names the environment variable holding the event log path.
const LogEnvName = "LOGFILENAME"

const DefaultGrace = time.Second

// ConfigError is returned for invalid flags or targets.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Options are the raw command line values.
type Options struct {
	Recursive       bool
	Hashes          string
	Output          string
	Verbose         bool
	Debug           bool
	ExternalDigests bool
	Workers         int
	Grace           time.Duration
	StatusAddr      string
	Target          string
}

// RunConfig is built once per run and never modified afterwards.
type RunConfig struct {
	Recursive       bool          `json:"recursive"`
	Algorithms      digest.Set    `json:"algorithms"`
	OutputPath      string        `json:"output_path,omitempty"`
	LogEnabled      bool          `json:"log_enabled"`
	LogFile         string        `json:"log_file,omitempty"`
	Debug           bool          `json:"debug"`
	ExternalDigests bool          `json:"external_digests"`
	Workers         int           `json:"workers"`
	Grace           time.Duration `json:"grace_ns"`
	StatusAddr      string        `json:"status_addr,omitempty"`
	Target          string        `json:"target"`
}

// LogFileFromEnv returns $LOGFILENAME, or log.txt when it is unset or empty.
func LogFileFromEnv() string {
	if name := os.Getenv(LogEnvName); name != "" {
		return name
	}
	return eventlog.DefaultFileName
}

func DefaultWorkers() int {
	return runtime.NumCPU() * 4
}

func New(opts Options) (*RunConfig, error) {
	cfg := &RunConfig{
		Recursive:       opts.Recursive,
		OutputPath:      opts.Output,
		LogEnabled:      opts.Verbose,
		Debug:           opts.Debug,
		ExternalDigests: opts.ExternalDigests,
		Workers:         opts.Workers,
		Grace:           opts.Grace,
		StatusAddr:      opts.StatusAddr,
	}

	if opts.Hashes != "" {
		set, err := digest.ParseSet(opts.Hashes)
		if err != nil {
			return nil, &ConfigError{Field: "hash algorithms", Err: err}
		}
		cfg.Algorithms = set
	}

	if cfg.LogEnabled {
		cfg.LogFile = LogFileFromEnv()
	}

	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.Workers < 0 {
		return nil, &ConfigError{Field: "workers", Err: fmt.Errorf("must be positive, got %d", cfg.Workers)}
	}
	if cfg.Grace < 0 {
		return nil, &ConfigError{Field: "grace", Err: fmt.Errorf("must not be negative, got %v", cfg.Grace)}
	}

	if opts.Target == "" {
		return nil, &ConfigError{Field: "target", Err: errors.New("no file/directory given")}
	}
	cfg.Target = filepath.Clean(opts.Target)

	info, err := os.Lstat(cfg.Target)
	if err != nil {
		return nil, &ConfigError{Field: "target", Err: err}
	}
	if !info.Mode().IsRegular() && !info.IsDir() {
		return nil, &ConfigError{Field: "target", Err: fmt.Errorf("'%s' is not a file/directory", opts.Target)}
	}

	return cfg, nil
}

// Print writes the resolved configuration, one setting per line.
func (c *RunConfig) Print(w io.Writer) {
	fmt.Fprintf(w, "recursive = %t\n", c.Recursive)
	fmt.Fprintf(w, "algorithms = %s\n", c.Algorithms)
	fmt.Fprintf(w, "output = %s\n", c.OutputPath)
	fmt.Fprintf(w, "log = %t\n", c.LogEnabled)
	fmt.Fprintf(w, "%s = %s\n", LogEnvName, c.LogFile)
	fmt.Fprintf(w, "external digests = %t\n", c.ExternalDigests)
	fmt.Fprintf(w, "workers = %d\n", c.Workers)
	fmt.Fprintf(w, "grace = %v\n", c.Grace)
	fmt.Fprintf(w, "target = %s\n", c.Target)
}
