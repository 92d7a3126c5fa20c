package yamlfmt

import "time"

// isoLayouts are the ISO-8601 shapes accepted for spec and task dates.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate parses s leniently; an unparseable or empty date returns
// (nil, false) so the caller can emit a warning and coerce to nil rather
// than abort the parse.
func parseDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
