// Package qfx rewrites payee names in QFX/OFX downloads using a
// user-maintained rules file, so imported transaction names match the names
// already used in the ledger.
package qfx

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoChange is the replacement sentinel that keeps a matched name untouched.
const NoChange = "<NO_CHANGE>"

// Rule maps a substring of a transaction name to its replacement.
type Rule struct {
	Search  string
	Replace string
}

// nameRE matches the value of a <NAME> element in both the SGML flavor
// (no closing tag, value ends at line end) and the XML flavor (value ends
// at the closing tag).
var nameRE = regexp.MustCompile(`(<NAME>)([^<\r\n]*)`)

// ReadRules parses a rules CSV with a SearchText,Replacement header.
func ReadRules(r io.Reader) ([]Rule, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("rules file is empty, want a SearchText,Replacement header")
	}

	search, replace := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case "SearchText":
			search = i
		case "Replacement":
			replace = i
		}
	}
	if search < 0 || replace < 0 {
		return nil, fmt.Errorf("rules file needs SearchText and Replacement columns, got %v", records[0])
	}

	rules := make([]Rule, 0, len(records)-1)
	for _, record := range records[1:] {
		rules = append(rules, Rule{Search: record[search], Replace: record[replace]})
	}
	return rules, nil
}

// Rewrite replaces every <NAME> value according to the rules: a name
// containing exactly one rule's search text is replaced (or kept when the
// rule says NoChange); a name matching several rules is an error; a name
// matching none is title-cased and reported in missing so the user can
// extend the rules file.
func Rewrite(input string, rules []Rule) (output string, missing []string, err error) {
	titler := cases.Title(language.English)
	seen := make(map[string]struct{})

	output = nameRE.ReplaceAllStringFunc(input, func(s string) string {
		if err != nil {
			return s
		}
		parts := nameRE.FindStringSubmatch(s)
		name := parts[2]

		matched := false
		replacement := ""
		for _, rule := range rules {
			if !strings.Contains(name, rule.Search) {
				continue
			}
			if matched {
				err = fmt.Errorf("multiple rules match name %q", name)
				return s
			}
			matched = true
			replacement = rule.Replace
		}

		switch {
		case matched && replacement == NoChange:
			return s
		case matched:
			return parts[1] + replacement
		default:
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				missing = append(missing, name)
			}
			return parts[1] + titler.String(strings.ToLower(name))
		}
	})
	if err != nil {
		return "", nil, err
	}
	sort.Strings(missing)
	return output, missing, nil
}
