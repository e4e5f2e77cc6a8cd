package gnureport

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultBaseCurrency is used when the configuration does not name one.
const DefaultBaseCurrency = "CAD"

// SectionConfig configures one aggregator: its membership rule, report
// groups, and report semantics.
type SectionConfig struct {
	Label            string  // section name, used as the column label
	AccountType      string  // category-equality membership when set
	ManagedRoot      string  // path-prefix membership otherwise
	IgnoreCategories []string
	Groups           []Group
	RunningSum       bool
	Commodity        bool // track quantities and value them in base currency
	Negate           bool // report absolute values, for income-style accounts
}

// Rule returns the membership rule of the section.
func (s SectionConfig) Rule() Rule {
	return Rule{Type: s.AccountType, Root: s.ManagedRoot}
}

// Config is the reporter configuration, loaded from an INI file.
type Config struct {
	BookPath     string
	OutputFolder string
	BaseCurrency string
	Sections     []SectionConfig
}

// DefaultConfig returns the configuration used when no config file exists:
// an income and an expense report with no group breakdown.
func DefaultConfig() *Config {
	return &Config{
		BaseCurrency: DefaultBaseCurrency,
		Sections: []SectionConfig{
			{Label: "Income", AccountType: "INCOME", Negate: true},
			{Label: "Expenses", AccountType: "EXPENSE"},
		},
	}
}

// LoadConfig reads an INI configuration file. The [Paths] and [Report]
// sections configure the book location, output folder, and base currency;
// every other section defines one aggregator.
func LoadConfig(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{BaseCurrency: DefaultBaseCurrency}
	for _, section := range file.Sections() {
		switch section.Name() {
		case ini.DefaultSection:
			continue
		case "Paths":
			cfg.BookPath = section.Key("default_gnucash_book").String()
			cfg.OutputFolder = section.Key("output_folder").String()
		case "Report":
			if cur := section.Key("base_currency").String(); cur != "" {
				cfg.BaseCurrency = cur
			}
		default:
			sc, err := loadSection(section)
			if err != nil {
				return nil, fmt.Errorf("config section [%s]: %w", section.Name(), err)
			}
			cfg.Sections = append(cfg.Sections, sc)
		}
	}
	return cfg, nil
}

func loadSection(section *ini.Section) (SectionConfig, error) {
	sc := SectionConfig{
		Label:       section.Name(),
		AccountType: section.Key("account_type").String(),
		ManagedRoot: section.Key("managed_root").String(),
		RunningSum:  section.Key("running_sum").MustBool(false),
		Commodity:   section.Key("commodity").MustBool(false),
		Negate:      section.Key("negate").MustBool(false),
	}
	if sc.AccountType == "" && sc.ManagedRoot == "" {
		return sc, fmt.Errorf("needs account_type or managed_root")
	}
	if raw := section.Key("ignore_categories").String(); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			sc.IgnoreCategories = append(sc.IgnoreCategories, strings.TrimSpace(c))
		}
	}
	if raw := section.Key("separate").String(); raw != "" {
		groups, err := ParseGroups(raw)
		if err != nil {
			return sc, err
		}
		sc.Groups = groups
	}
	return sc, nil
}

// ParseGroups parses a group list like "A, B, [C, D]": comma-separated
// account paths, with square brackets combining several paths into a single
// report column.
func ParseGroups(raw string) ([]Group, error) {
	var groups []Group
	var current strings.Builder
	inGroup := false

	flush := func() {
		path := strings.TrimSpace(current.String())
		current.Reset()
		if path == "" {
			return
		}
		if inGroup {
			groups[len(groups)-1] = append(groups[len(groups)-1], path)
		} else {
			groups = append(groups, Group{path})
		}
	}

	for _, char := range raw {
		switch {
		case char == ',':
			flush()
		case char == '[':
			if inGroup {
				return nil, fmt.Errorf("nested '[' in group list %q", raw)
			}
			groups = append(groups, Group{})
			inGroup = true
		case char == ']':
			if !inGroup {
				return nil, fmt.Errorf("unmatched ']' in group list %q", raw)
			}
			flush()
			inGroup = false
		default:
			current.WriteRune(char)
		}
	}
	if inGroup {
		return nil, fmt.Errorf("unclosed '[' in group list %q", raw)
	}
	flush()

	return groups, nil
}
