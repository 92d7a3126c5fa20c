// Package mdfmt provides the markdown body helpers shared by the front-matter
// formats: extracting the "---" delimited front-matter block, and extracting
// checklist-style task declarations from prose body text.
package mdfmt

import (
	"bytes"
	"regexp"
	"strings"
)

const delimiter = "---"

// SplitFrontMatter splits content into the front-matter block and the body.
// ok is false if the document does not begin with a "---" delimiter line —
// callers treat that as a parse error that is reported but does not abort
// the load.
func SplitFrontMatter(content []byte) (front []byte, body []byte, ok bool) {
	text := string(content)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return nil, content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			front = []byte(strings.Join(lines[1:i], "\n"))
			body = []byte(strings.Join(lines[i+1:], "\n"))
			return front, body, true
		}
	}
	return nil, content, false
}

// JoinFrontMatter reassembles a front-matter block and body into a document.
func JoinFrontMatter(front, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteString("\n")
	buf.Write(bytes.TrimRight(front, "\n"))
	buf.WriteString("\n")
	buf.WriteString(delimiter)
	buf.WriteString("\n")
	buf.Write(body)
	return buf.Bytes()
}

// taskHeading matches a body heading declaring a task, e.g. "### TASK-001: Title".
var taskHeading = regexp.MustCompile(`(?m)^#{2,4}\s*(TASK-\d{3})\s*:?\s*(.*)$`)

// checklistItem matches a body checklist line under a task heading, e.g.
// "- [x] Wire up the handler".
var checklistItem = regexp.MustCompile(`^\s*-\s*\[([ xX])\]\s*(.+)$`)

// BodyTask is a task declared via body headings + checklist, before merging
// with any front-matter declared task of the same id.
type BodyTask struct {
	ID       string
	Title    string
	Subtasks []BodySubtask
}

// BodySubtask is one checklist line.
type BodySubtask struct {
	Description string
	Completed   bool
}

// ExtractBodyTasks scans prose body text for "### TASK-nnn: Title" headings
// followed by "- [ ]"/"- [x]" checklist lines, so tasks declared in the body
// rather than front-matter are still recognized.
func ExtractBodyTasks(body []byte) []BodyTask {
	lines := strings.Split(string(body), "\n")
	var tasks []BodyTask
	var current *BodyTask

	for _, line := range lines {
		if m := taskHeading.FindStringSubmatch(line); m != nil {
			if current != nil {
				tasks = append(tasks, *current)
			}
			current = &BodyTask{ID: m[1], Title: strings.TrimSpace(m[2])}
			continue
		}
		if current == nil {
			continue
		}
		if m := checklistItem.FindStringSubmatch(line); m != nil {
			current.Subtasks = append(current.Subtasks, BodySubtask{
				Description: strings.TrimSpace(m[2]),
				Completed:   strings.EqualFold(m[1], "x"),
			})
		}
	}
	if current != nil {
		tasks = append(tasks, *current)
	}
	return tasks
}

// RenderBodyTasks serializes tasks back into the heading+checklist shape
// that ExtractBodyTasks reads.
func RenderBodyTasks(tasks []BodyTask) []byte {
	var buf bytes.Buffer
	for _, t := range tasks {
		buf.WriteString("### ")
		buf.WriteString(t.ID)
		if t.Title != "" {
			buf.WriteString(": ")
			buf.WriteString(t.Title)
		}
		buf.WriteString("\n\n")
		for _, st := range t.Subtasks {
			mark := " "
			if st.Completed {
				mark = "x"
			}
			buf.WriteString("- [")
			buf.WriteString(mark)
			buf.WriteString("] ")
			buf.WriteString(st.Description)
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
