// internal/config/config.go
//
// This package handles configuration and the .journey directory structure.
// Every directory the simulator runs in gets a .journey/ folder holding the
// config file, rotated logs, the session journal, and exported reports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// JourneyDir is the name of the directory we create in the working directory
	JourneyDir = ".journey"

	defaultReplyDelay      = 2 * time.Second
	defaultAssessmentDelay = 4 * time.Second
	defaultScratchTTL      = time.Minute
	defaultMinQuestions    = 8
	defaultMinStatements   = 4
	defaultRequiredReviews = 5
	defaultLogLevel        = "info"
	defaultLogFile         = "journey.log"
	defaultMaxSizeMB       = 10
	defaultMaxBackups      = 5
	defaultMaxAgeDays      = 30
)

const defaultProjectConfigYAML = `# selection journey configuration
version: 1

# How long simulated replies take to arrive.
timing:
  reply_delay: 2s
  assessment_delay: 4s
  # Unconsumed navigation scratch entries expire after this long.
  scratch_ttl: 1m

# Exit criteria for each stage.
thresholds:
  min_questions: 8
  min_pitch_statements: 4
  required_reviews: 5

logging:
  level: info
  file: journey.log
  max_size_mb: 10
  max_backups: 5
  max_age_days: 30
  compress: true

# Optional path to a scenario file replacing the built-in case.
# scenario: ./my-case.yaml

# Where exported session reports are written (relative to this directory's parent).
reports_dir: .journey/reports
`

// TimingConfig controls simulated delays.
type TimingConfig struct {
	ReplyDelay      time.Duration `yaml:"reply_delay"`
	AssessmentDelay time.Duration `yaml:"assessment_delay"`
	ScratchTTL      time.Duration `yaml:"scratch_ttl"`
}

// ThresholdConfig holds the stage exit criteria.
type ThresholdConfig struct {
	MinQuestions    int `yaml:"min_questions"`
	MinStatements   int `yaml:"min_pitch_statements"`
	RequiredReviews int `yaml:"required_reviews"`
}

// LoggingConfig controls the rotated structured log.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ProjectConfig models .journey/config.yaml.
type ProjectConfig struct {
	Version    int             `yaml:"version"`
	Timing     TimingConfig    `yaml:"timing"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Logging    LoggingConfig   `yaml:"logging"`
	Scenario   string          `yaml:"scenario,omitempty"`
	ReportsDir string          `yaml:"reports_dir"`
}

// Config holds the runtime configuration for the simulator.
type Config struct {
	// ProjectDir is the directory where the user ran `journey` from
	ProjectDir string

	// JourneyProjectDir is ProjectDir/.journey
	JourneyProjectDir string

	Project ProjectConfig
}

// InitJourneyDir creates the .journey directory structure in the given directory.
//
// Structure created:
// .journey/
// ├── config.yaml
// ├── logs/     <- structured log and the session journal
// └── reports/  <- exported session reports
func InitJourneyDir(projectDir string) error {
	journeyDir := filepath.Join(projectDir, JourneyDir)
	dirs := []string{
		filepath.Join(journeyDir, "logs"),
		filepath.Join(journeyDir, "reports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(journeyDir, "config.yaml"))
}

// NewConfig creates a Config populated from .journey/config.yaml, falling
// back to defaults when the file does not exist.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		JourneyProjectDir: filepath.Join(projectDir, JourneyDir),
		Project:           defaultProjectConfig(),
	}
	cfg.Project.normalize(projectDir)
	if err := cfg.loadProjectConfig(cfg.ProjectConfigPath()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads an explicit config file instead of .journey/config.yaml.
func (c *Config) LoadFile(path string) error {
	return c.loadProjectConfig(path)
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.JourneyProjectDir, "logs")
}

// LogFilePath returns the structured log location.
func (c *Config) LogFilePath() string {
	if filepath.IsAbs(c.Project.Logging.File) {
		return c.Project.Logging.File
	}
	return filepath.Join(c.LogsDir(), c.Project.Logging.File)
}

// JournalPath returns the trainee-facing session journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "session.log")
}

// ReportsDir returns where session reports are exported.
func (c *Config) ReportsDir() string {
	return c.Project.ReportsDir
}

// ScenarioPath returns the configured scenario override, or "".
func (c *Config) ScenarioPath() string {
	return c.Project.Scenario
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.JourneyProjectDir, "config.yaml")
}

// Timing returns the simulated delay settings.
func (c *Config) Timing() TimingConfig {
	return c.Project.Timing
}

// Thresholds returns the stage exit criteria.
func (c *Config) Thresholds() ThresholdConfig {
	return c.Project.Thresholds
}

// Instant zeroes every simulated delay, used by headless runs.
func (c *Config) Instant() {
	c.Project.Timing.ReplyDelay = 0
	c.Project.Timing.AssessmentDelay = 0
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return "", fmt.Errorf("config: encode config: %w", err)
	}
	return string(data), nil
}

func (c *Config) loadProjectConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	pc.Logging.Compress = true
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Timing.ReplyDelay == 0 {
		pc.Timing.ReplyDelay = defaultReplyDelay
	}
	if pc.Timing.AssessmentDelay == 0 {
		pc.Timing.AssessmentDelay = defaultAssessmentDelay
	}
	if pc.Timing.ScratchTTL == 0 {
		pc.Timing.ScratchTTL = defaultScratchTTL
	}
	if pc.Thresholds.MinQuestions == 0 {
		pc.Thresholds.MinQuestions = defaultMinQuestions
	}
	if pc.Thresholds.MinStatements == 0 {
		pc.Thresholds.MinStatements = defaultMinStatements
	}
	if pc.Thresholds.RequiredReviews == 0 {
		pc.Thresholds.RequiredReviews = defaultRequiredReviews
	}
	if pc.Logging.Level == "" {
		pc.Logging.Level = defaultLogLevel
	}
	if pc.Logging.File == "" {
		pc.Logging.File = defaultLogFile
	}
	if pc.Logging.MaxSizeMB == 0 {
		pc.Logging.MaxSizeMB = defaultMaxSizeMB
	}
	if pc.Logging.MaxBackups == 0 {
		pc.Logging.MaxBackups = defaultMaxBackups
	}
	if pc.Logging.MaxAgeDays == 0 {
		pc.Logging.MaxAgeDays = defaultMaxAgeDays
	}
	if pc.ReportsDir == "" {
		pc.ReportsDir = filepath.Join(JourneyDir, "reports")
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Logging.File = strings.TrimSpace(pc.Logging.File)
	pc.Scenario = resolvePath(base, pc.Scenario)
	pc.ReportsDir = resolvePath(base, pc.ReportsDir)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Timing.ReplyDelay < 0 || pc.Timing.AssessmentDelay < 0 {
		return fmt.Errorf("timing delays must not be negative")
	}
	if pc.Timing.ScratchTTL < 0 {
		return fmt.Errorf("timing.scratch_ttl must not be negative")
	}
	if pc.Thresholds.MinQuestions < 1 {
		return fmt.Errorf("thresholds.min_questions must be >= 1")
	}
	if pc.Thresholds.MinStatements < 1 {
		return fmt.Errorf("thresholds.min_pitch_statements must be >= 1")
	}
	if pc.Thresholds.RequiredReviews < 1 {
		return fmt.Errorf("thresholds.required_reviews must be >= 1")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if pc.Logging.MaxSizeMB < 0 || pc.Logging.MaxBackups < 0 || pc.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must not be negative")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
