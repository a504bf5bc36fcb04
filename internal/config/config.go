// =============================================================================
// Changesheet Preview - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration file (config.yaml).
//
// CONFIGURATION FILE:
//   input_dir: ./input
//   output_dir: ./output
//   log_level: info
//   collection_placeholder: TODO_set
//   parser:
//     header: true
//     delimiter: auto
//
// Every setting has a default, so the file itself is optional.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
	"github.com/ginjaninja78/changesheet-preview/internal/payload"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by the process command for changesheets.
	// Default: "./input"
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives the draft payload files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// InputArchiveDir receives changesheets after a successful conversion.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" validate:"required"`

	// OutputArchiveDir receives a copy of every draft payload file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the draft payload file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {original}  - Input file name without extension
	// Default: "{original}_{uuid}.json"
	OutputNameFormat string `yaml:"output_name_format" validate:"required"`

	// CollectionPlaceholder is the collection named in every payload.
	// Default: "TODO_set"
	CollectionPlaceholder string `yaml:"collection_placeholder" validate:"required"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of changesheets converted at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1,max=64"`

	// ContinueOnError keeps converting other files after one fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves converted changesheets to the input archive.
	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`

	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	// ListenAddr is the address the preview server listens on.
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr" validate:"required,hostname_port"`

	// Parser holds the changesheet parser settings.
	Parser ParserSettings `yaml:"parser"`
}

// =============================================================================
// PARSER SETTINGS STRUCTURE
// =============================================================================

// ParserSettings contains settings for reading changesheet text.
type ParserSettings struct {
	// Header treats the first non-blank line as column names.
	// Default: true
	Header *bool `yaml:"header"`

	// Delimiter is the field separator.
	// Valid values: "auto", ",", "comma", "\t", "tab", "|", "pipe", ";", "semicolon"
	// Default: "auto"
	Delimiter string `yaml:"delimiter"`

	// Sheet is the worksheet read from .xlsx changesheets. Empty reads the first sheet.
	Sheet string `yaml:"sheet"`
}

// Options converts the settings to parser options.
func (p ParserSettings) Options() (changesheet.ParseOptions, error) {
	delimiter, err := ParseDelimiter(p.Delimiter)
	if err != nil {
		return changesheet.ParseOptions{}, err
	}
	header := true
	if p.Header != nil {
		header = *p.Header
	}
	return changesheet.ParseOptions{Header: header, Delimiter: delimiter}, nil
}

// ParseDelimiter maps a delimiter name to its rune. "" and "auto" return 0.
// Names are case-insensitive. Any other single character is used as is,
// except the ones a csv.Reader cannot split on.
func ParseDelimiter(name string) (rune, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return 0, nil
	case "comma":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	case "pipe":
		return '|', nil
	case "semicolon":
		return ';', nil
	}

	r, size := utf8.DecodeRuneInString(name)
	if size != len(name) || !validDelimiter(r) {
		return 0, fmt.Errorf("unsupported delimiter %q", name)
	}
	return r, nil
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// validate is shared; validator caches struct metadata.
var validate = validator.New()

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file cannot be read, parsed, or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads the configuration file, or returns the defaults when
// the file does not exist.
func LoadOrDefault(configPath string) (*MainConfig, error) {
	config, err := LoadMainConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// Validate checks a configuration against its constraints.
func Validate(config *MainConfig) error {
	if err := validate.Struct(config); err != nil {
		return err
	}
	if _, err := config.Parser.Options(); err != nil {
		return err
	}
	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{original}_{uuid}.json"
	}
	if config.CollectionPlaceholder == "" {
		config.CollectionPlaceholder = payload.DefaultCollectionPlaceholder
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.ContinueOnError == nil {
		config.ContinueOnError = boolPtr(true)
	}
	if config.ArchiveOnSuccess == nil {
		config.ArchiveOnSuccess = boolPtr(true)
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.Parser.Header == nil {
		config.Parser.Header = boolPtr(true)
	}
	if config.Parser.Delimiter == "" {
		config.Parser.Delimiter = "auto"
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Translator returns a payload translator naming the configured collection.
func (c *MainConfig) Translator() *payload.Translator {
	return payload.NewTranslator(payload.PlaceholderResolver{Name: c.CollectionPlaceholder})
}

// ShouldContinueOnError reports the continue_on_error setting.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// ShouldArchive reports the archive_on_success setting.
func (c *MainConfig) ShouldArchive() bool {
	return c.ArchiveOnSuccess == nil || *c.ArchiveOnSuccess
}
