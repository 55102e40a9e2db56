package screenshot

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Matcher decides whether a file name is a screenshot.
type Matcher interface {
	Match(name string) bool
}

// Rule names accepted by RuleByName.
const (
	RuleStrict = "strict"
	RuleLoose  = "loose"
)

// StrictRule matches names like "Screenshot 2024-01-01 at 10.00.00.png".
// Prefix and extension are case-sensitive.
type StrictRule struct{}

// Match implements Matcher.
func (StrictRule) Match(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasPrefix(name, "Screenshot") && strings.HasSuffix(name, ".png")
}

// looseExtensions are the raster formats accepted by LooseRule.
var looseExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
}

// LooseRule matches any name containing "screenshot" in any case with a common
// raster extension.
type LooseRule struct{}

// Match implements Matcher.
func (LooseRule) Match(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "screenshot") {
		return false
	}
	_, ok := looseExtensions[filepath.Ext(lower)]
	return ok
}

// RuleByName returns the Matcher for a configured rule name. An empty name
// selects the strict rule.
func RuleByName(name string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RuleStrict:
		return StrictRule{}, nil
	case RuleLoose:
		return LooseRule{}, nil
	default:
		return nil, fmt.Errorf("unknown match rule %q (want %q or %q)", name, RuleStrict, RuleLoose)
	}
}
