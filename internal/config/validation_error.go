package config

import "strings"

// FieldError is one invalid field, named by a JSON pointer-style path
// ("" for file-level errors such as an unknown top-level key).
type FieldError struct {
	Path    string
	Message string
}

// ValidationError aggregates every field-level failure found while
// validating a configuration file (§4.11: "a single structured error
// listing every field with a pointer path"). The Supervisor surfaces this
// whole, rather than stopping at the first problem, so an operator fixes
// the file in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (v *ValidationError) add(path, message string) {
	v.Fields = append(v.Fields, FieldError{Path: path, Message: message})
}

func (v *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, f := range v.Fields {
		b.WriteString("\n  ")
		if f.Path != "" {
			b.WriteString(f.Path)
			b.WriteString(": ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}
