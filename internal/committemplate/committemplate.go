// Package committemplate renders the fixed commit-message template the
// complete-current pipeline composes from the completed task's details.
package committemplate

import "strings"

// Variables holds the data injected into the commit message template.
type Variables struct {
	SpecID string
	TaskID string
	Title  string
	Agent  string
	Notes  string
}

// DefaultTemplate is the built-in commit message template. {{notes}}
// collapses to nothing when Notes is empty.
const DefaultTemplate = `{{specId}}: {{title}}

Task: {{taskId}}
Agent: {{agent}}
{{notes}}`

// Render substitutes {{variable}} placeholders in tpl with vars' values.
func Render(tpl string, vars Variables) string {
	notes := ""
	if vars.Notes != "" {
		notes = "\n" + vars.Notes
	}
	replacements := map[string]string{
		"{{specId}}": vars.SpecID,
		"{{taskId}}": vars.TaskID,
		"{{title}}":  vars.Title,
		"{{agent}}":  vars.Agent,
		"{{notes}}":  notes,
	}
	result := tpl
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return strings.TrimRight(result, "\n") + "\n"
}
