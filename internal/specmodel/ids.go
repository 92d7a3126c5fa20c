package specmodel

import "regexp"

// SpecIDPattern matches spec ids like "FEAT-001".
var SpecIDPattern = regexp.MustCompile(`^[A-Z]+-\d{3}$`)

// TaskIDPattern matches task ids like "TASK-001".
var TaskIDPattern = regexp.MustCompile(`^TASK-\d{3}$`)

// FilenameIDPattern extracts a spec id prefix from a filename, in the case
// it is written, e.g. "feat-001-add-login.md" -> "feat-001".
var FilenameIDPattern = regexp.MustCompile(`^([A-Za-z]+-\d{3})`)

// IsValidType reports whether t is one of the closed enumeration of types.
func IsValidType(t Type) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is one of the closed enumeration of statuses.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidPriority reports whether p is one of the closed enumeration of priorities.
func IsValidPriority(p Priority) bool {
	for _, v := range ValidPriorities {
		if v == p {
			return true
		}
	}
	return false
}
