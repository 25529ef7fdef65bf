// Package config provides configuration loading and validation for the
// extraction engine: batch settings, per-field selector lists, ranking
// context selectors, and acceptance thresholds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration structure
type Config struct {
	General    GeneralConfig       `toml:"general"`
	Ranking    RankingConfig       `toml:"ranking"`
	Selectors  map[string][]string `toml:"selectors"`
	Thresholds ThresholdConfig     `toml:"thresholds"`
}

// GeneralConfig contains batch execution settings
type GeneralConfig struct {
	Concurrency int    `toml:"concurrency"`
	Timeout     string `toml:"timeout"`
	OutputDir   string `toml:"output_dir"`
	SourceYear  int    `toml:"source_year"`
}

// RankingConfig holds the selectors the ranking subsystem depends on.
// ContextSelectors are ordered most-authoritative first; the first entry
// is the authoritative inline rank element.
type RankingConfig struct {
	SectionSelector  string   `toml:"section_selector"`
	ContextSelectors []string `toml:"context_selectors"`
}

// ThresholdConfig carries the record acceptance thresholds.
type ThresholdConfig struct {
	MinOverall    float64 `toml:"min_overall"`
	MinIdentity   float64 `toml:"min_identity"`
	MinSupporting float64 `toml:"min_supporting"`
}

// TimeoutDuration parses the timeout string into a Duration
func (g GeneralConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FieldNames lists every selector-extracted field, in the order the
// assembler processes them.
func FieldNames() []string {
	return []string{
		"name", "grades", "street", "city", "state", "zip_code", "phone",
		"website", "setting", "enrollment", "student_teacher_ratio",
		"full_time_teachers", "ap_participation_rate", "ap_pass_rate",
		"math_proficiency", "reading_proficiency", "science_proficiency",
		"graduation_rate", "college_readiness_index", "white_pct",
		"asian_pct", "hispanic_pct", "black_pct", "american_indian_pct",
		"two_or_more_pct", "female_pct", "male_pct", "econ_disadvantaged_pct",
	}
}

// DefaultSelectors returns the built-in ordered selector lists, tuned for
// the two dated profile-page layouts present in the snapshot corpus. Lists
// run most-specific to least-specific; the first validating match wins.
func DefaultSelectors() map[string][]string {
	return map[string][]string{
		"name":                    {"h1.profile-school-name", "h1[data-testid='school-name']", "header h1"},
		"grades":                  {"[data-testid='grades-offered'] .value", ".school-grades", ".quick-stats .grades"},
		"street":                  {"[itemprop='streetAddress']", ".school-address .street", "address .street"},
		"city":                    {"[itemprop='addressLocality']", ".school-address .city", "address .city"},
		"state":                   {"[itemprop='addressRegion']", ".school-address .state", "address .state"},
		"zip_code":                {"[itemprop='postalCode']", ".school-address .zip", "address .zip"},
		"phone":                   {"[itemprop='telephone']", ".school-contact .phone", "a[href^='tel:']"},
		"website":                 {"a[data-testid='school-website']", ".school-contact a.website", "a.school-site"},
		"setting":                 {"[data-testid='school-setting'] .value", ".school-setting", ".quick-stats .setting"},
		"enrollment":              {"[data-testid='enrollment'] .value", ".enrollment-count", ".quick-stats .enrollment"},
		"student_teacher_ratio":   {"[data-testid='student-teacher-ratio'] .value", ".student-teacher-ratio", ".quick-stats .ratio"},
		"full_time_teachers":      {"[data-testid='full-time-teachers'] .value", ".teacher-count", ".quick-stats .teachers"},
		"ap_participation_rate":   {"[data-testid='ap-participation'] .value", ".ap-participation", ".academics .ap-participation"},
		"ap_pass_rate":            {"[data-testid='ap-pass-rate'] .value", ".ap-pass-rate", ".academics .ap-passed"},
		"math_proficiency":        {"[data-testid='math-proficiency'] .value", ".math-proficiency", ".academics .math"},
		"reading_proficiency":     {"[data-testid='reading-proficiency'] .value", ".reading-proficiency", ".academics .reading"},
		"science_proficiency":     {"[data-testid='science-proficiency'] .value", ".science-proficiency", ".academics .science"},
		"graduation_rate":         {"[data-testid='graduation-rate'] .value", ".graduation-rate", ".academics .graduation"},
		"college_readiness_index": {"[data-testid='college-readiness'] .value", ".college-readiness", ".academics .readiness"},
		"white_pct":               {"[data-testid='demo-white'] .value", ".demographics .white"},
		"asian_pct":               {"[data-testid='demo-asian'] .value", ".demographics .asian"},
		"hispanic_pct":            {"[data-testid='demo-hispanic'] .value", ".demographics .hispanic"},
		"black_pct":               {"[data-testid='demo-black'] .value", ".demographics .black"},
		"american_indian_pct":     {"[data-testid='demo-american-indian'] .value", ".demographics .american-indian"},
		"two_or_more_pct":         {"[data-testid='demo-two-or-more'] .value", ".demographics .two-or-more"},
		"female_pct":              {"[data-testid='demo-female'] .value", ".demographics .female"},
		"male_pct":                {"[data-testid='demo-male'] .value", ".demographics .male"},
		"econ_disadvantaged_pct":  {"[data-testid='econ-disadvantaged'] .value", ".demographics .econ-disadvantaged"},
	}
}

// DefaultRanking returns the built-in ranking selector configuration.
func DefaultRanking() RankingConfig {
	return RankingConfig{
		SectionSelector: "#rankings-section",
		ContextSelectors: []string{
			"#rankings-section .rank-statement",
			"#rankings-section",
			".hero-ranking",
		},
	}
}

// validatePath checks for path traversal attempts
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.HasPrefix(cleanPath, "..") || strings.Contains(cleanPath, "../") {
		return fmt.Errorf("path contains invalid traversal sequence: %s", path)
	}
	return nil
}

// Default returns a fully-populated configuration without reading a file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.Concurrency <= 0 {
		cfg.General.Concurrency = 5
	}
	if cfg.General.Timeout == "" {
		cfg.General.Timeout = "30s"
	}
	if cfg.General.OutputDir == "" {
		cfg.General.OutputDir = "./results"
	}
	if cfg.Ranking.SectionSelector == "" {
		cfg.Ranking.SectionSelector = DefaultRanking().SectionSelector
	}
	if len(cfg.Ranking.ContextSelectors) == 0 {
		cfg.Ranking.ContextSelectors = DefaultRanking().ContextSelectors
	}
	if cfg.Selectors == nil {
		cfg.Selectors = map[string][]string{}
	}
	for field, selectors := range DefaultSelectors() {
		if len(cfg.Selectors[field]) == 0 {
			cfg.Selectors[field] = selectors
		}
	}
	if cfg.Thresholds.MinOverall <= 0 {
		cfg.Thresholds.MinOverall = 60
	}
	if cfg.Thresholds.MinIdentity <= 0 {
		cfg.Thresholds.MinIdentity = 40
	}
	if cfg.Thresholds.MinSupporting <= 0 {
		cfg.Thresholds.MinSupporting = 50
	}
}

// Load reads and parses the TOML configuration file
func Load(path string) (*Config, error) {
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 - Path validated above, this is intentional file inclusion
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	known := make(map[string]struct{})
	for _, f := range FieldNames() {
		known[f] = struct{}{}
	}
	for field, selectors := range cfg.Selectors {
		if _, ok := known[field]; !ok {
			return nil, fmt.Errorf("selectors section names unknown field: %s", field)
		}
		for i, sel := range selectors {
			if strings.TrimSpace(sel) == "" {
				return nil, fmt.Errorf("field '%s' has an empty selector at index %d", field, i)
			}
		}
	}
	for i, sel := range cfg.Ranking.ContextSelectors {
		if strings.TrimSpace(sel) == "" {
			return nil, fmt.Errorf("ranking context selector at index %d is empty", i)
		}
	}
	if cfg.Thresholds.MinOverall > 100 || cfg.Thresholds.MinIdentity > 100 || cfg.Thresholds.MinSupporting > 100 {
		return nil, fmt.Errorf("thresholds must be <= 100")
	}

	return &cfg, nil
}

// Save writes the configuration to a TOML file
func (c *Config) Save(path string) error {
	if err := validatePath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 - Path validated above, this is intentional file creation
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
