package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config represents the recovery configuration
type Config struct {
	// Search settings
	Mode             string        `mapstructure:"mode"`              // quick, normal, exhaustive
	Threshold        int           `mapstructure:"threshold"`         // plausibility pass threshold, 0 = format variant or default
	Workers          int           `mapstructure:"workers"`           // number of worker goroutines
	OffsetCap        int           `mapstructure:"offset_cap"`        // highest start offset scanned in exhaustive mode
	MaxAttempts      int64         `mapstructure:"max_attempts"`      // decompression attempt bound
	Timeout          time.Duration `mapstructure:"timeout"`           // wall clock bound for one search
	MaxOutput        string        `mapstructure:"max_output"`        // per-attempt decompressed size cap
	ExtendedFramings bool          `mapstructure:"extended_framings"` // also try zstd and lz4 framings

	// Input settings
	RequireHeader bool     `mapstructure:"require_header"` // abort when no format pattern matches
	FormatsPath   string   `mapstructure:"formats_path"`   // directory with extra format variant files
	MaxSize       string   `mapstructure:"max_size"`       // maximum input file size
	Extensions    []string `mapstructure:"extensions"`     // file extensions considered in batch mode
	Exclude       []string `mapstructure:"exclude"`        // directories to exclude in batch mode

	// Output settings
	WriteOutput  bool   `mapstructure:"write_output"`  // write recovered text next to the input
	OutputDir    string `mapstructure:"output_dir"`    // alternative directory for recovered text
	ReportFormat string `mapstructure:"report_format"` // json, yaml, txt, md
	OutputFile   string `mapstructure:"output_file"`   // report file path

	// Collaborator settings
	Oracle OracleConfig `mapstructure:"oracle"`
	AI     AIConfig     `mapstructure:"ai"`
}

// OracleConfig holds settings for the external interpreter fallback
type OracleConfig struct {
	Enabled    bool          `mapstructure:"enabled"`     // run the interpreter after the search
	PHPBinary  string        `mapstructure:"php_binary"`  // interpreter executable
	LoaderPath string        `mapstructure:"loader_path"` // loader extension passed with -d extension=
	Timeout    time.Duration `mapstructure:"timeout"`     // subprocess time limit
}

// AIConfig holds AI review configuration
type AIConfig struct {
	Enabled   bool   `mapstructure:"ai_enabled"`    // Review recovered text with a model
	Model     string `mapstructure:"ai_model"`      // Model: haiku, sonnet, opus
	APIToken  string `mapstructure:"ai_token"`      // Anthropic API token
	Timeout   int    `mapstructure:"ai_timeout"`    // Seconds per request
	MaxSource int    `mapstructure:"ai_max_source"` // Bytes of recovered text sent for review
}

// SearchMode represents how much of the search space is explored
type SearchMode int

const (
	ModeQuick SearchMode = iota
	ModeNormal
	ModeExhaustive
)

// DefaultThreshold is the single calibrated plausibility pass mark
const DefaultThreshold = 10

// ResolveThreshold picks the pass mark for one file. An explicitly set
// global threshold wins over a format variant's own, which wins over
// DefaultThreshold.
func ResolveThreshold(global, variant int) int {
	switch {
	case global > 0:
		return global
	case variant > 0:
		return variant
	default:
		return DefaultThreshold
	}
}

// LoadConfig loads configuration from an optional file, environment
// variables and defaults
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("mode", "normal")
	v.SetDefault("threshold", 0)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("offset_cap", 512)
	v.SetDefault("max_attempts", 4000000)
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("max_output", "16M")
	v.SetDefault("extended_framings", true)
	v.SetDefault("require_header", true)
	v.SetDefault("formats_path", "")
	v.SetDefault("max_size", "32M")
	v.SetDefault("exclude", []string{".git", "node_modules", "vendor", ".svn", ".hg"})
	v.SetDefault("write_output", true)
	v.SetDefault("report_format", "")

	// Oracle defaults
	v.SetDefault("oracle.enabled", false)
	v.SetDefault("oracle.php_binary", "php")
	v.SetDefault("oracle.loader_path", "")
	v.SetDefault("oracle.timeout", 30*time.Second)

	// AI defaults
	v.SetDefault("ai.ai_enabled", false)
	v.SetDefault("ai.ai_model", "sonnet")
	v.SetDefault("ai.ai_timeout", 30)
	v.SetDefault("ai.ai_max_source", 24000)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Read environment variables
	v.SetEnvPrefix("ION")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GetSearchMode returns the search mode enum value
func (c *Config) GetSearchMode() SearchMode {
	switch c.Mode {
	case "quick":
		return ModeQuick
	case "exhaustive":
		return ModeExhaustive
	default:
		return ModeNormal
	}
}

// ShouldScanFile determines if a file should be considered in batch mode
func (c *Config) ShouldScanFile(extension string) bool {
	if len(c.Extensions) > 0 {
		for _, ext := range c.Extensions {
			if ext == extension {
				return true
			}
		}
		return false
	}
	return isPHPExtension(extension)
}

// isPHPExtension checks if extension is one the encoder produces
func isPHPExtension(ext string) bool {
	php := []string{"php", "php3", "php4", "php5", "php7", "phtml", "inc"}
	for _, e := range php {
		if e == ext {
			return true
		}
	}
	return false
}
