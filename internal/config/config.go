package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the latmon binaries.
type Config struct {
	// AlarmConfig is the path to the XML alarm configuration.
	AlarmConfig string `yaml:"alarm_config"`
	// ExceptionsFile is the path to the XML exception document.
	ExceptionsFile string `yaml:"exceptions_file,omitempty"`
	// InputFile is the path to the YAML histogram file to monitor.
	InputFile string `yaml:"input_file"`
	// SummaryFile is where the XML alarm summary is written.
	SummaryFile string `yaml:"summary_file,omitempty"`
	// ReportDir is where the text and HTML reports and plots are written.
	ReportDir string `yaml:"report_dir,omitempty"`
	// ResultsFile is the path to the latest results snapshot.
	ResultsFile string `yaml:"results_file" validate:"required"`
	// TrendDB is the path to the SQLite trend database.
	TrendDB string `yaml:"trend_db,omitempty"`
	// ServerAddress is the gRPC report server address.
	ServerAddress string `yaml:"server_addr" validate:"required"`
	// MetricsAddress is the HTTP address of the Prometheus endpoint.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn warning error dpanic panic fatal"`
	// Strict makes misconfigured alarms fatal.
	Strict bool `yaml:"strict"`
	// Schedule is an optional cron expression re-running the handler.
	Schedule string `yaml:"schedule,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "latmon-settings.yaml"

	// DefaultResultsFilename is the default filename for the results snapshot.
	DefaultResultsFilename = "latmon-results.json"

	// DefaultServerAddress is the default gRPC listen and dial address.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultLogLevel is the default zap level.
	DefaultLogLevel = "info"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default permission for written files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions = 0o750
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrMissingSetting is returned when a setting a binary needs is empty.
	ErrMissingSetting = errors.New("missing setting")

	validate = validator.New()
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = DefaultServerAddress
	}

	if cfg.ResultsFile == "" {
		cfg.ResultsFile = DefaultResultsFilename
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if cfg.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics socket: %w", err)
		}
	}

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
	}

	return nil
}

// RequireHandler checks the settings the alarm handler cannot run without.
func (c *Config) RequireHandler() error {
	switch {
	case c.AlarmConfig == "":
		return fmt.Errorf("%w: alarm_config", ErrMissingSetting)
	case c.InputFile == "":
		return fmt.Errorf("%w: input_file", ErrMissingSetting)
	default:
		return nil
	}
}
