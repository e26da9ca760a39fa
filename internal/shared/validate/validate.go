package validate

import (
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var cuitPattern = regexp.MustCompile(`^\d{2}-\d{8}-\d$`)

// Issues collects field-level validation messages.
type Issues map[string]string

// Add records msg for field unless an earlier issue exists.
func (i Issues) Add(field, msg string) {
	if _, ok := i[field]; !ok {
		i[field] = msg
	}
}

// Err returns an *Error when there is at least one issue.
func (i Issues) Err() error {
	if len(i) == 0 {
		return nil
	}
	return &Error{Issues: i}
}

// Error is returned by services when input fails validation.
type Error struct {
	Issues Issues
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Issues))
	for f := range e.Issues {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Issues[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Email reports whether s is a bare email address.
func Email(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// URL reports whether s is an absolute http(s) URL.
func URL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CUIT reports whether s has the NN-NNNNNNNN-N layout.
func CUIT(s string) bool {
	return cuitPattern.MatchString(s)
}

// Trimmed returns a trimmed copy of s, or nil when s is nil or blank.
func Trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
