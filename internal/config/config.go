package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rollcall/internal/textnorm"
	"rollcall/internal/tmpl"
)

// Source kinds for SpreadsheetConfig.Source.
const (
	SourceGoogleSheets = "gsheets"
	SourceXLSX         = "xlsx"
	SourceCSV          = "csv"
)

// ValidSources lists the accepted spreadsheet.source values.
var ValidSources = []string{SourceGoogleSheets, SourceXLSX, SourceCSV}

// Config holds all rollcall configuration. It is loaded once per run and
// treated as read-only afterwards.
type Config struct {
	Auth        AuthConfig          `yaml:"auth" json:"auth"`
	Spreadsheet SpreadsheetConfig   `yaml:"spreadsheet" json:"spreadsheet"`
	Contacts    map[string][]string `yaml:"contacts" json:"contacts"`
	Messages    MessagesConfig      `yaml:"messages" json:"messages"`
	DataMapping DataMappingConfig   `yaml:"data_mapping" json:"data_mapping"`
	Patterns    PatternsConfig      `yaml:"patterns" json:"patterns"`
	Browser     BrowserConfig       `yaml:"browser" json:"browser"`
	Logging     LoggingConfig       `yaml:"logging" json:"logging"`
}

// AuthConfig holds the service account used for the Google APIs.
type AuthConfig struct {
	CredentialsFile string   `yaml:"credentials_file" json:"credentials_file"`
	Scopes          []string `yaml:"scopes" json:"scopes"`
}

// SpreadsheetConfig selects the attendance sheet.
type SpreadsheetConfig struct {
	Source    string `yaml:"source" json:"source"`         // gsheets, xlsx, csv
	Name      string `yaml:"name" json:"name"`             // spreadsheet title (gsheets)
	ID        string `yaml:"id" json:"id,omitempty"`       // skips the title lookup when set
	SheetName string `yaml:"sheet_name" json:"sheet_name"` // worksheet, also the default period label
	File      string `yaml:"file" json:"file,omitempty"`   // local export (xlsx, csv)
}

// MessagesConfig holds the outbound message templates.
type MessagesConfig struct {
	HeaderWithAbsences string `yaml:"header_with_absences" json:"header_with_absences"`
	FooterWithAbsences string `yaml:"footer_with_absences" json:"footer_with_absences"`
	NoAbsences         string `yaml:"no_absences" json:"no_absences"`
	UnjustifiedLabel   string `yaml:"unjustified_label" json:"unjustified_label,omitempty"`
	JustifiedLabel     string `yaml:"justified_label" json:"justified_label,omitempty"`
	Bullet             string `yaml:"bullet" json:"bullet,omitempty"`
	PeriodLabel        string `yaml:"period_label" json:"period_label,omitempty"`
}

// DataMappingConfig maps sheet columns and cell values to meaning.
type DataMappingConfig struct {
	IDColumn       string `yaml:"id_column" json:"id_column"`
	NegativeValue  string `yaml:"negative_value" json:"negative_value"`
	JustifiedValue string `yaml:"justified_value" json:"justified_value"`
}

// PatternsConfig holds column matching patterns.
type PatternsConfig struct {
	DateRegex string `yaml:"date_regex" json:"date_regex"`
}

// BrowserConfig configures the WhatsApp Web session.
type BrowserConfig struct {
	UserDataDir   string `yaml:"user_data_dir" json:"user_data_dir"`
	Headless      bool   `yaml:"headless" json:"headless"`
	Bin           string `yaml:"bin" json:"bin,omitempty"`
	DebuggerURL   string `yaml:"debugger_url" json:"debugger_url,omitempty"`
	BaseURL       string `yaml:"base_url" json:"base_url"`
	ReadySelector string `yaml:"ready_selector" json:"ready_selector"`
	LoginTimeout  string `yaml:"login_timeout" json:"login_timeout"`
	ReadyTimeout  string `yaml:"ready_timeout" json:"ready_timeout"`
	SettleDelay   string `yaml:"settle_delay" json:"settle_delay"`
	SendDelay     string `yaml:"send_delay" json:"send_delay"`
}

// Default values.
const (
	DefaultUnjustifiedLabel = "*Unjustified Absence:*"
	DefaultJustifiedLabel   = "*Justified Absence:*"
	DefaultBullet           = "• "
	DefaultBaseURL          = "https://web.whatsapp.com"
	DefaultReadySelector    = `div[contenteditable="true"]`
)

// DefaultConfig returns a configuration with every optional field set.
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			CredentialsFile: "config/credentials.json",
			Scopes: []string{
				"https://www.googleapis.com/auth/spreadsheets.readonly",
				"https://www.googleapis.com/auth/drive.readonly",
			},
		},
		Spreadsheet: SpreadsheetConfig{
			Source: SourceGoogleSheets,
		},
		Contacts: map[string][]string{},
		Messages: MessagesConfig{
			UnjustifiedLabel: DefaultUnjustifiedLabel,
			JustifiedLabel:   DefaultJustifiedLabel,
			Bullet:           DefaultBullet,
		},
		Browser: BrowserConfig{
			UserDataDir:   "./user_session",
			BaseURL:       DefaultBaseURL,
			ReadySelector: DefaultReadySelector,
			LoginTimeout:  "60s",
			ReadyTimeout:  "30s",
			SettleDelay:   "2s",
			SendDelay:     "4s",
		},
		Logging: LoggingConfig{
			File:    "data/logs.txt",
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads the configuration at path and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes the configuration at path over the defaults, then applies a
// sibling .env file and environment overrides. Files ending in .json are
// decoded as JSON, everything else as YAML. The result is not validated.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "file", Message: fmt.Sprintf("cannot read %s", path), Err: err}
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, &ConfigError{Field: "file", Message: fmt.Sprintf("cannot parse %s", path), Err: err}
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, &ConfigError{Field: "env", Message: fmt.Sprintf("cannot load %s", envFile), Err: err}
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROLLCALL_CREDENTIALS_FILE"); v != "" {
		c.Auth.CredentialsFile = v
	}
	if v := os.Getenv("ROLLCALL_SPREADSHEET_NAME"); v != "" {
		c.Spreadsheet.Name = v
	}
	if v := os.Getenv("ROLLCALL_SPREADSHEET_ID"); v != "" {
		c.Spreadsheet.ID = v
	}
	if v := os.Getenv("ROLLCALL_SHEET_NAME"); v != "" {
		c.Spreadsheet.SheetName = v
	}
	if v := os.Getenv("ROLLCALL_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
	if v := os.Getenv("ROLLCALL_HEADLESS"); v != "" {
		c.Browser.Headless = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ROLLCALL_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks that every required field is present and well formed.
func (c *Config) Validate() error {
	source := strings.ToLower(strings.TrimSpace(c.Spreadsheet.Source))
	if source == "" {
		source = SourceGoogleSheets
	}
	c.Spreadsheet.Source = source

	switch source {
	case SourceGoogleSheets:
		if isBlank(c.Auth.CredentialsFile) {
			return missing("auth.credentials_file")
		}
		if len(c.Auth.Scopes) == 0 {
			return missing("auth.scopes")
		}
		if isBlank(c.Spreadsheet.Name) && isBlank(c.Spreadsheet.ID) {
			return missing("spreadsheet.name")
		}
	case SourceXLSX, SourceCSV:
		if isBlank(c.Spreadsheet.File) {
			return missing("spreadsheet.file")
		}
	default:
		return &ConfigError{
			Field:   "spreadsheet.source",
			Message: fmt.Sprintf("unknown source %q (valid: %s)", c.Spreadsheet.Source, strings.Join(ValidSources, ", ")),
		}
	}
	if isBlank(c.Spreadsheet.SheetName) && source != SourceCSV {
		return missing("spreadsheet.sheet_name")
	}

	if len(c.Contacts) == 0 {
		return missing("contacts")
	}

	templates := []struct {
		field   string
		src     string
		allowed []string
	}{
		{"messages.header_with_absences", c.Messages.HeaderWithAbsences, []string{"name"}},
		{"messages.footer_with_absences", c.Messages.FooterWithAbsences, []string{"name"}},
		{"messages.no_absences", c.Messages.NoAbsences, []string{"name", "month"}},
	}
	for _, t := range templates {
		if isBlank(t.src) {
			return missing(t.field)
		}
		if _, err := tmpl.Parse(t.src, t.allowed...); err != nil {
			return &ConfigError{Field: t.field, Message: "invalid template", Err: err}
		}
	}

	if isBlank(c.DataMapping.IDColumn) {
		return missing("data_mapping.id_column")
	}
	if isBlank(c.DataMapping.NegativeValue) {
		return missing("data_mapping.negative_value")
	}
	if isBlank(c.DataMapping.JustifiedValue) {
		return missing("data_mapping.justified_value")
	}
	if strings.EqualFold(strings.TrimSpace(c.DataMapping.NegativeValue), strings.TrimSpace(c.DataMapping.JustifiedValue)) {
		return &ConfigError{Field: "data_mapping.justified_value", Message: "must differ from negative_value"}
	}

	if isBlank(c.Patterns.DateRegex) {
		return missing("patterns.date_regex")
	}
	if _, err := regexp.Compile(c.Patterns.DateRegex); err != nil {
		return &ConfigError{Field: "patterns.date_regex", Message: "invalid regular expression", Err: err}
	}

	durations := []struct {
		field    string
		value    string
		positive bool // a zero wait expires immediately
	}{
		{"browser.login_timeout", c.Browser.LoginTimeout, true},
		{"browser.ready_timeout", c.Browser.ReadyTimeout, true},
		{"browser.settle_delay", c.Browser.SettleDelay, false},
		{"browser.send_delay", c.Browser.SendDelay, false},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return &ConfigError{Field: d.field, Message: "invalid duration", Err: err}
		}
		if parsed < 0 {
			return &ConfigError{Field: d.field, Message: "must not be negative"}
		}
		if parsed == 0 && d.positive {
			return &ConfigError{Field: d.field, Message: "must be positive"}
		}
	}

	if _, err := c.Logging.ZapLevel(); err != nil {
		return &ConfigError{Field: "logging.level", Message: "invalid level", Err: err}
	}
	return nil
}

// DateRegexp returns the compiled date column pattern. Call after Validate.
func (c *Config) DateRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.Patterns.DateRegex)
}

// PeriodLabel is the reporting period rendered as {month}.
func (c *Config) PeriodLabel() string {
	if !isBlank(c.Messages.PeriodLabel) {
		return c.Messages.PeriodLabel
	}
	return c.Spreadsheet.SheetName
}

// ContactBook maps normalised names to phone numbers. Raw keys that normalise
// to the same name are merged, in sorted key order, and returned as
// collisions. Keys that normalise to "" cannot match any row; they are left
// out of the book and returned as unnamed.
func (c *Config) ContactBook() (book map[string][]string, collisions map[string][]string, unnamed []string) {
	raw := make([]string, 0, len(c.Contacts))
	for k := range c.Contacts {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	book = make(map[string][]string, len(raw))
	origin := make(map[string][]string, len(raw))
	for _, k := range raw {
		key := textnorm.Name(k)
		if key == "" {
			unnamed = append(unnamed, k)
			continue
		}
		origin[key] = append(origin[key], k)
		book[key] = append(book[key], c.Contacts[k]...)
	}

	for key, names := range origin {
		if len(names) > 1 {
			if collisions == nil {
				collisions = make(map[string][]string)
			}
			collisions[key] = names
		}
	}
	return book, collisions, unnamed
}

// LoginTimeout is the wait for the operator to authenticate.
func (c *Config) LoginTimeout() time.Duration {
	return durationOr(c.Browser.LoginTimeout, 60*time.Second)
}

// ReadyTimeout is the per-message wait for the chat composer.
func (c *Config) ReadyTimeout() time.Duration {
	return durationOr(c.Browser.ReadyTimeout, 30*time.Second)
}

// SettleDelay is the pause between the composer appearing and pressing Enter.
func (c *Config) SettleDelay() time.Duration {
	return durationOr(c.Browser.SettleDelay, 2*time.Second)
}

// SendDelay is the pause after each submitted message.
func (c *Config) SendDelay() time.Duration {
	return durationOr(c.Browser.SendDelay, 4*time.Second)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func missing(field string) error {
	return &ConfigError{Field: field, Message: "is required"}
}
