package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatHeader returns a markdown header of the given level.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a bold key followed by its value.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("**%s:** %s", key, value)
}

// FormatCodeBlock wraps code in a fenced block.
func FormatCodeBlock(lang, code string) string {
	return "```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```"
}

// FormatListItem returns a markdown bullet indented by depth.
func FormatListItem(depth int, text string) string {
	return strings.Repeat("  ", depth) + "- " + text
}

// FormatLabel turns catalog identifiers such as "materialized-view" into
// display labels ("Materialized View").
func FormatLabel(s string) string {
	if s == "" {
		return s
	}
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return cases.Title(language.English).String(s)
}

// FormatSeconds renders a lag in seconds with millisecond precision.
func FormatSeconds(v float64) string {
	return fmt.Sprintf("%.3fs", v)
}

// FormatOptional returns *s or a dash when nil.
func FormatOptional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
