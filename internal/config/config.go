// =============================================================================
// Deliberation List Generator - Configuration Module
// =============================================================================
//
// This module loads the YAML configuration shared by the CLI and the HTTP
// surface. A single file holds:
//   - Directories (input, output, archive)
//   - Logging
//   - Output naming and format
//   - CSV reading settings
//   - Submission type detection from file names
//   - Identification rules and column synonyms for the engine
//   - Output transformation rules
//   - Server settings
//
// Every setting has a default, so a missing config file is not an error
// unless it was named explicitly.
//
// =============================================================================

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/deliberation"
	"github.com/boundou-sig/deliblist/internal/export"
	"github.com/boundou-sig/deliblist/internal/logging"
	"github.com/boundou-sig/deliblist/internal/types"
)

// DefaultConfigPath is read when no --config flag is given.
const DefaultConfigPath = "./config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for submission spreadsheets.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives deliberation lists, rejection logs and summaries.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives processed inputs. Files are only moved here
	// after their list has been written.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveByDate files archives under year/month/day.
	ArchiveByDate bool `yaml:"archive_by_date"`

	// ArchiveRetentionDays prunes archives older than this many days after
	// each batch. 0 keeps everything.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path of the log file. Empty logs to stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFileFormat defines the output file name.
	// Placeholders:
	//   {mode}      - individual or collective
	//   {original}  - input file name without extension
	//   {date}      - YYYYMMDD
	//   {timestamp} - YYYYMMDD_HHMMSS
	//   {uuid}      - a random UUID
	//
	// The mode and a date are always part of the final name.
	// Default: "liste_deliberation_{mode}_{date}"
	OutputFileFormat string `yaml:"output_file_format"`

	// OutputFormat is "xlsx" or "csv".
	// Default: "xlsx"
	OutputFormat string `yaml:"output_format"`

	// SkipRejectionLog disables the per-file rejection log.
	SkipRejectionLog bool `yaml:"skip_rejection_log"`

	// StopOnError stops a batch at the first file that fails.
	StopOnError bool `yaml:"stop_on_error"`

	// MaxConcurrency is the maximum number of files processed at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// CSVSettings are used for .csv inputs and outputs.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Sheet is the worksheet read from workbooks. Empty reads the first one.
	Sheet string `yaml:"sheet"`

	// XLSX controls how workbook cells are read.
	XLSX XLSXSettings `yaml:"xlsx"`

	// SubmissionPatterns pick the submission type from the file name when
	// the type is not given on the command line. The first match wins.
	SubmissionPatterns []SubmissionPattern `yaml:"submission_patterns"`

	// =========================================================================
	// ENGINE SETTINGS
	// =========================================================================

	Identification IdentificationSettings `yaml:"identification"`

	Columns ColumnSettings `yaml:"columns"`

	// TransformationRules are applied to output columns before writing.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	Server ServerSettings `yaml:"server"`
}

// CSVSettings contains settings for reading and writing CSV files.
type CSVSettings struct {
	// Delimiter of input files: ",", ";", "tab", "|" or "auto".
	// Default: "auto"
	Delimiter string `yaml:"delimiter"`

	// Encoding of input files.
	// Valid values: "UTF-8", "Windows-1252", "ISO-8859-1", "ISO-8859-15"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// OutputDelimiter is used when writing CSV lists.
	// Default: ","
	OutputDelimiter string `yaml:"output_delimiter"`

	// OutputBOM prefixes written CSV lists with a UTF-8 byte order mark.
	OutputBOM bool `yaml:"output_bom"`
}

// XLSXSettings contains settings for reading workbooks.
type XLSXSettings struct {
	// RawValues reads the stored cell values instead of the displayed ones,
	// so dates arrive as serial numbers and number formats are ignored.
	// Default: false
	RawValues bool `yaml:"raw_values"`

	// Password opens encrypted workbooks.
	Password string `yaml:"password"`
}

// SubmissionPattern maps a file name glob to a submission type.
type SubmissionPattern struct {
	// Pattern is matched against the lower-cased base name.
	// Example: "*collectif*"
	Pattern string `yaml:"pattern"`

	// Type is "individual" or "collective" (French labels accepted).
	Type string `yaml:"type"`
}

// IdentificationSettings choose which identifiers a row needs to be kept.
type IdentificationSettings struct {
	// Individual default: "title"
	Individual string `yaml:"individual"`

	// Collective default: "title_or_parcel"
	Collective string `yaml:"collective"`
}

// ColumnSettings extend the header synonyms of the column resolver.
type ColumnSettings struct {
	// Synonyms maps a canonical field name to extra header names, tried
	// after the built-in ones.
	// Example:
	//   synonyms:
	//     land_title_id: ["NICAD_PARCELLE"]
	Synonyms map[string][]string `yaml:"synonyms"`
}

// ServerSettings configure the local HTTP surface.
type ServerSettings struct {
	// Addr is the listen address.
	// Default: "127.0.0.1:8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB bounds the size of an uploaded file.
	// Default: 32
	MaxUploadMB int64 `yaml:"max_upload_mb"`

	// UploadsPerMinute bounds the rate of upload requests.
	// Default: 30
	UploadsPerMinute float64 `yaml:"uploads_per_minute"`

	// UploadBurst is the number of uploads allowed at once.
	// Default: 5
	UploadBurst int `yaml:"upload_burst"`

	// PreviewRows is the default preview size.
	// Default: 3
	PreviewRows int `yaml:"preview_rows"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines the transformations of one output column.
type TransformationRule struct {
	// Column is the output header ("Telephone") or the canonical field
	// name ("phone") of the column to transform.
	Column string `yaml:"column"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply. See ActionTypes.
	Type string `yaml:"type"`

	// Value is the parameter for the transformation:
	//   - "replace", "regex_replace" : The replacement string
	//   - "pad_zeros_to_length"      : The target length (e.g. "9")
	//   - "format_date"              : "input_layout|output_layout"
	//   - "if_empty_use_default"     : The default value
	//   - "prepend_string"           : The string to prepend
	//   - "append_string"            : The string to append
	Value string `yaml:"value"`

	// Find is used for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// ActionTypes are the transformation types the converter implements.
var ActionTypes = []string{
	"trim",
	"uppercase",
	"lowercase",
	"title_case",
	"replace",
	"regex_replace",
	"pad_zeros_to_length",
	"format_date",
	"lookup",
	"if_empty_use_default",
	"prepend_string",
	"append_string",
	"normalize_whitespace",
	"extract_digits",
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	config := &MainConfig{}
	applyDefaults(config)
	return config
}

// Load loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//
// RETURNS:
//   - The configuration with defaults applied.
//   - An error if the file cannot be read, contains unknown keys or fails
//     validation.
func Load(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return config, nil
}

// LoadOrDefault loads configPath. When the path was not given explicitly
// and the file does not exist, the defaults are returned.
func LoadOrDefault(configPath string, explicit bool) (*MainConfig, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if !explicit {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
	}
	return Load(configPath)
}

// Parse decodes YAML configuration data. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func Parse(data []byte) (*MainConfig, error) {
	var config MainConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = export.DefaultFileNameFormat
	}
	if config.OutputFormat == "" {
		config.OutputFormat = string(export.FormatXLSX)
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}

	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = "auto"
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.CSVSettings.OutputDelimiter == "" {
		config.CSVSettings.OutputDelimiter = ","
	}

	if config.Identification.Individual == "" {
		config.Identification.Individual = string(deliberation.RequireTitle)
	}
	if config.Identification.Collective == "" {
		config.Identification.Collective = string(deliberation.RequireTitleOrParcel)
	}

	if config.Server.Addr == "" {
		config.Server.Addr = "127.0.0.1:8080"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 32
	}
	if config.Server.UploadsPerMinute == 0 {
		config.Server.UploadsPerMinute = 30
	}
	if config.Server.UploadBurst == 0 {
		config.Server.UploadBurst = 5
	}
	if config.Server.PreviewRows == 0 {
		config.Server.PreviewRows = 3
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks every setting and reports all problems at once.
func (c *MainConfig) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		add("log_level: %v", err)
	}
	if _, err := export.ParseFormat(c.OutputFormat); err != nil {
		add("output_format: %v", err)
	}
	if c.MaxConcurrency < 0 {
		add("max_concurrency: must be positive")
	}
	if c.ArchiveRetentionDays < 0 {
		add("archive_retention_days: must not be negative")
	}
	if len([]rune(c.CSVSettings.OutputDelimiter)) != 1 {
		add("csv_settings.output_delimiter: must be a single character")
	}

	for i, p := range c.SubmissionPatterns {
		if _, err := filepath.Match(p.Pattern, ""); err != nil || p.Pattern == "" {
			add("submission_patterns[%d]: invalid pattern %q", i, p.Pattern)
		}
		if _, err := types.ParseSubmissionType(p.Type); err != nil {
			add("submission_patterns[%d]: %v", i, err)
		}
	}

	if _, err := deliberation.ParseIdentificationRule(c.Identification.Individual); err != nil {
		add("identification.individual: %v", err)
	}
	if _, err := deliberation.ParseIdentificationRule(c.Identification.Collective); err != nil {
		add("identification.collective: %v", err)
	}

	if _, err := columns.DefaultSynonyms().Extend(c.Columns.Synonyms); err != nil {
		add("columns.synonyms: %v", err)
	}

	for i, rule := range c.TransformationRules {
		if strings.TrimSpace(rule.Column) == "" {
			add("transformation_rules[%d]: column is required", i)
		}
		for j, action := range rule.Actions {
			if !IsActionType(action.Type) {
				add("transformation_rules[%d].actions[%d]: unknown transformation type %q", i, j, action.Type)
			}
		}
	}

	if c.Server.MaxUploadMB < 0 {
		add("server.max_upload_mb: must be positive")
	}
	if c.Server.UploadsPerMinute < 0 || c.Server.UploadBurst < 0 {
		add("server: upload rate and burst must be positive")
	}
	if c.Server.PreviewRows < 0 {
		add("server.preview_rows: must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(problems, "\n  - "))
	}
	return nil
}

// IsActionType reports whether t is a known transformation type.
func IsActionType(t string) bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// EngineOptions builds the options handed to the deliberation engine.
func (c *MainConfig) EngineOptions() (deliberation.Options, error) {
	var opts deliberation.Options

	synonyms, err := columns.DefaultSynonyms().Extend(c.Columns.Synonyms)
	if err != nil {
		return opts, err
	}
	opts.Synonyms = synonyms

	if opts.Individual, err = deliberation.ParseIdentificationRule(c.Identification.Individual); err != nil {
		return opts, err
	}
	if opts.Collective, err = deliberation.ParseIdentificationRule(c.Identification.Collective); err != nil {
		return opts, err
	}
	return opts, nil
}

// SubmissionTypeFor detects the submission type of a file from its name.
func (c *MainConfig) SubmissionTypeFor(path string) (types.SubmissionType, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, p := range c.SubmissionPatterns {
		if ok, _ := filepath.Match(strings.ToLower(p.Pattern), name); ok {
			t, err := types.ParseSubmissionType(p.Type)
			return t, err == nil
		}
	}
	return "", false
}

// Format returns the parsed output format.
func (c *MainConfig) Format() export.Format {
	format, err := export.ParseFormat(c.OutputFormat)
	if err != nil {
		return export.FormatXLSX
	}
	return format
}

// CSVOutput returns the CSV writer options.
func (c *MainConfig) CSVOutput() export.CSVOptions {
	opts := export.CSVOptions{BOM: c.CSVSettings.OutputBOM}
	if r := []rune(c.CSVSettings.OutputDelimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	return opts
}

// MaxUploadBytes is the upload limit in bytes.
func (c *MainConfig) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
