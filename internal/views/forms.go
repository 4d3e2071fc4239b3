package views

import (
	"regexp"
	"sort"
	"strings"
)

// FormErrors maps a field name to what is wrong with it.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return strings.Join(parts, "; ")
}

// err returns e as an error, or nil when there is nothing wrong.
func (e FormErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e FormErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e[field] = "required"
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
