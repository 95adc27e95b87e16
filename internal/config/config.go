// =============================================================================
// Rebate Reconciler - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-group
// configurations that name each commercial group to reconcile.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Paths, CSV conventions, column positions
//   2. Group Configs (configs/groups/*.yaml): One file per group (name + id)
//
// Groups may also be listed inline in the main config under "groups". Inline
// groups come first, followed by group files in lexical file name order.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// DataDir is the root of the data tree. It is available to the path
	// templates below as {data_dir}.
	// Default: "./data"
	DataDir string `yaml:"data_dir"`

	// GroupsDir is the directory containing one YAML file per group.
	// A missing directory is not an error; inline groups may be used instead.
	// Default: "./configs/groups"
	GroupsDir string `yaml:"groups_dir"`

	// Groups is an inline list of groups to reconcile.
	Groups []GroupConfig `yaml:"groups"`

	// =========================================================================
	// PATH TEMPLATES
	// =========================================================================
	// Placeholders: {data_dir}, {id}, {name}

	// GuessPath locates the guess file of a group.
	// Default: "{data_dir}/rebates/{id}/{name}.csv"
	GuessPath string `yaml:"guess_path"`

	// TruthPath locates the truth file of a group.
	// Default: "{data_dir}/truth/{id}/full.csv"
	TruthPath string `yaml:"truth_path"`

	// CustomerOutput is the customer mapping output file.
	// Default: "{data_dir}/customer_mini.csv"
	CustomerOutput string `yaml:"customer_output"`

	// DistributorOutput is the distributor mapping output file.
	// Default: "{data_dir}/distributor_mini.csv"
	DistributorOutput string `yaml:"distributor_output"`

	// =========================================================================
	// TABLE SETTINGS
	// =========================================================================

	// CSVSettings contains settings shared by the inputs and the outputs.
	CSVSettings CSVSettings `yaml:"csv"`

	// Columns holds the positional layout of guess and truth rows.
	Columns ColumnSettings `yaml:"columns"`

	// Strict additionally requires the join-key, primary and secondary
	// fields of every row to be non-empty.
	// Default: false
	Strict bool `yaml:"strict"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// LogFile, when set, receives a JSON copy of every log line.
	LogFile string `yaml:"log_file"`

	// SummaryDir, when set, receives a text summary of every run.
	SummaryDir string `yaml:"summary_dir"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of groups whose inputs are read
	// concurrently. Matching and writing are unaffected.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`
}

// =============================================================================
// GROUP CONFIGURATION STRUCTURE
// =============================================================================

// GroupConfig names one commercial group whose rebate data is reconciled.
type GroupConfig struct {
	// Name is the group display name. It is used as the guess file name and,
	// unless Label is set, as the group column of every output row.
	Name string `yaml:"name"`

	// ID is the numeric identifier used to build input paths.
	ID string `yaml:"id"`

	// Label overrides the group column value written to the outputs.
	Label string `yaml:"label,omitempty"`

	// GuessFile overrides the guess path template for this group.
	GuessFile string `yaml:"guess_file,omitempty"`

	// TruthFile overrides the truth path template for this group.
	TruthFile string `yaml:"truth_file,omitempty"`

	// Enabled toggles the group. Default: true
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the group takes part in a run.
func (g GroupConfig) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// GroupLabel returns the value written to the "group" output column.
func (g GroupConfig) GroupLabel() string {
	if g.Label != "" {
		return g.Label
	}
	return g.Name
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for reading and writing delimited files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// QuoteChar is the character used to quote fields.
	// Only the double quote is supported by encoding/csv.
	// Default: '"'
	QuoteChar string `yaml:"quote_char"`

	// HeaderRows is the number of leading rows discarded from every input.
	// 0 reads every row as data.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// Encoding is the character encoding of the input files.
	// Valid values: "UTF-8", "Windows-1252", "ISO-8859-1"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// LineEnding is the record terminator used when writing outputs.
	// Valid values: "crlf", "lf"
	// Default: "crlf"
	LineEnding string `yaml:"line_ending"`

	// Sheet selects the worksheet of .xlsx inputs. Empty means the first.
	Sheet string `yaml:"sheet"`
}

// Comma returns the delimiter as a rune.
func (s CSVSettings) Comma() rune {
	switch s.Delimiter {
	case "\\t", "tab", "TAB":
		return '\t'
	case "pipe", "PIPE":
		return '|'
	case "semicolon":
		return ';'
	case "":
		return ','
	default:
		return []rune(s.Delimiter)[0]
	}
}

// UseCRLF reports whether outputs are terminated with \r\n.
func (s CSVSettings) UseCRLF() bool {
	return !strings.EqualFold(s.LineEnding, "lf")
}

// =============================================================================
// COLUMN SETTINGS STRUCTURE
// =============================================================================

// ColumnSettings holds the 0-indexed positions read from every row. The same
// layout applies to guess and truth files.
type ColumnSettings struct {
	// JoinKey lists the positions concatenated into the join key.
	// Default: [1, 5, 7]
	JoinKey []int `yaml:"join_key"`

	// Primary is the customer name (guess) or fuse id (truth) position.
	// Default: 3
	Primary int `yaml:"primary"`

	// Secondary is the distributor name position on both sides.
	// Default: 4
	Secondary int `yaml:"secondary"`

	// KeySeparator is inserted between join key fields. Leaving it empty
	// keeps plain concatenation, where "ab"+"c" and "a"+"bc" collide.
	KeySeparator string `yaml:"key_separator"`
}

// MinColumns returns the number of fields a row needs for every configured
// position to be addressable.
func (c ColumnSettings) MinColumns() int {
	highest := c.Primary
	if c.Secondary > highest {
		highest = c.Secondary
	}
	for _, pos := range c.JoinKey {
		if pos > highest {
			highest = pos
		}
	}
	return highest + 1
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultMainConfig returns a configuration equivalent to an empty
// config.yaml.
func DefaultMainConfig() *MainConfig {
	config := newMainConfig()
	applyMainConfigDefaults(config)
	return config
}

// newMainConfig returns the starting point that config.yaml is decoded onto.
// Settings whose zero value is meaningful are preset here instead of in
// applyMainConfigDefaults, so an explicit zero in the file survives.
func newMainConfig() *MainConfig {
	return &MainConfig{
		CSVSettings: CSVSettings{HeaderRows: 1},
	}
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML. Keys absent from the file keep their preset value.
	config := newMainConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply default values.
	applyMainConfigDefaults(config)

	// Validate the configuration.
	if err := ValidateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.DataDir == "" {
		config.DataDir = "./data"
	}
	if config.GroupsDir == "" {
		config.GroupsDir = "./configs/groups"
	}
	if config.GuessPath == "" {
		config.GuessPath = "{data_dir}/rebates/{id}/{name}.csv"
	}
	if config.TruthPath == "" {
		config.TruthPath = "{data_dir}/truth/{id}/full.csv"
	}
	if config.CustomerOutput == "" {
		config.CustomerOutput = "{data_dir}/customer_mini.csv"
	}
	if config.DistributorOutput == "" {
		config.DistributorOutput = "{data_dir}/distributor_mini.csv"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.QuoteChar == "" {
		config.CSVSettings.QuoteChar = "\""
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.CSVSettings.LineEnding == "" {
		config.CSVSettings.LineEnding = "crlf"
	}

	// Column defaults only apply when the columns block is omitted entirely,
	// since position 0 is a legitimate value.
	cols := &config.Columns
	if len(cols.JoinKey) == 0 && cols.Primary == 0 && cols.Secondary == 0 {
		cols.JoinKey = []int{1, 5, 7}
		cols.Primary = 3
		cols.Secondary = 4
	}
}

// ValidateMainConfig validates the main configuration.
func ValidateMainConfig(config *MainConfig) error {
	var errs []error

	switch strings.ToLower(strings.ReplaceAll(config.CSVSettings.Encoding, "_", "-")) {
	case "utf-8", "utf8", "windows-1252", "cp1252", "iso-8859-1", "latin1":
	default:
		errs = append(errs, fmt.Errorf("unsupported encoding %q", config.CSVSettings.Encoding))
	}

	switch strings.ToLower(config.CSVSettings.LineEnding) {
	case "crlf", "lf":
	default:
		errs = append(errs, fmt.Errorf("unsupported line ending %q", config.CSVSettings.LineEnding))
	}

	if config.CSVSettings.QuoteChar != "\"" {
		errs = append(errs, fmt.Errorf("unsupported quote character %q: only '\"' is supported", config.CSVSettings.QuoteChar))
	}

	switch comma := config.CSVSettings.Comma(); comma {
	case '"', '\r', '\n':
		errs = append(errs, fmt.Errorf("invalid delimiter %q", config.CSVSettings.Delimiter))
	}

	if config.CSVSettings.HeaderRows < 0 {
		errs = append(errs, fmt.Errorf("header_rows must not be negative"))
	}

	if len(config.Columns.JoinKey) == 0 {
		errs = append(errs, fmt.Errorf("columns.join_key must list at least one position"))
	}
	positions := append([]int{config.Columns.Primary, config.Columns.Secondary}, config.Columns.JoinKey...)
	for _, pos := range positions {
		if pos < 0 {
			errs = append(errs, fmt.Errorf("column position %d is negative", pos))
		}
	}

	switch strings.ToLower(config.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", config.LogFormat))
	}

	if config.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1"))
	}

	return errors.Join(errs...)
}

// =============================================================================
// GROUP CONFIGURATION LOADING
// =============================================================================

// LoadGroupConfigs loads all group configurations from a directory.
//
// PARAMETERS:
//   - groupsDir: The directory containing group configuration files.
//
// RETURNS:
//   - The groups, ordered by file name.
//   - An error if any file cannot be read or parsed.
func LoadGroupConfigs(groupsDir string) ([]GroupConfig, error) {
	if _, err := os.Stat(groupsDir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	// Find all YAML files in the groups directory.
	files, err := filepath.Glob(filepath.Join(groupsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list group files: %w", err)
	}

	// Also check for .yml extension.
	ymlFiles, err := filepath.Glob(filepath.Join(groupsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list group files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	groups := make([]GroupConfig, 0, len(files))
	for _, file := range files {
		group, err := loadGroupConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		groups = append(groups, *group)
	}

	return groups, nil
}

// loadGroupConfig loads a single group configuration file.
func loadGroupConfig(filePath string) (*GroupConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var group GroupConfig
	if err := yaml.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	// Use the file name when the group has no explicit name.
	if group.Name == "" {
		base := filepath.Base(filePath)
		group.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &group, nil
}

// ResolveGroups merges inline and file-based groups, checks them and drops
// disabled ones. The returned order is the processing and output order.
func ResolveGroups(config *MainConfig) ([]GroupConfig, error) {
	fromDir, err := LoadGroupConfigs(config.GroupsDir)
	if err != nil {
		return nil, err
	}

	all := append(append([]GroupConfig{}, config.Groups...), fromDir...)

	var errs []error
	seen := make(map[string]bool, len(all))
	resolved := make([]GroupConfig, 0, len(all))
	for i, group := range all {
		if group.Name == "" {
			errs = append(errs, fmt.Errorf("group #%d has no name", i+1))
			continue
		}
		if seen[group.Name] {
			errs = append(errs, fmt.Errorf("group %q is defined more than once", group.Name))
			continue
		}
		seen[group.Name] = true

		if group.ID == "" && (group.GuessFile == "" || group.TruthFile == "") {
			errs = append(errs, fmt.Errorf("group %q has no id", group.Name))
			continue
		}
		if group.IsEnabled() {
			resolved = append(resolved, group)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return resolved, nil
}

// =============================================================================
// PATH TEMPLATES
// =============================================================================

// ExpandPath substitutes {placeholder} values in a path template. Values are
// inserted verbatim: a group named "Tile {id}" keeps its braces.
func ExpandPath(template string, params map[string]string) string {
	pairs := make([]string, 0, 2*len(params))
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return filepath.Clean(strings.NewReplacer(pairs...).Replace(template))
}

// GuessFilePath returns the guess file location of a group.
func (c *MainConfig) GuessFilePath(group GroupConfig) string {
	if group.GuessFile != "" {
		return c.expand(group.GuessFile, group)
	}
	return c.expand(c.GuessPath, group)
}

// TruthFilePath returns the truth file location of a group.
func (c *MainConfig) TruthFilePath(group GroupConfig) string {
	if group.TruthFile != "" {
		return c.expand(group.TruthFile, group)
	}
	return c.expand(c.TruthPath, group)
}

// CustomerOutputPath returns the customer mapping output file.
func (c *MainConfig) CustomerOutputPath() string {
	return c.expand(c.CustomerOutput, GroupConfig{})
}

// DistributorOutputPath returns the distributor mapping output file.
func (c *MainConfig) DistributorOutputPath() string {
	return c.expand(c.DistributorOutput, GroupConfig{})
}

func (c *MainConfig) expand(template string, group GroupConfig) string {
	return ExpandPath(template, map[string]string{
		"data_dir": c.DataDir,
		"id":       group.ID,
		"name":     group.Name,
	})
}
