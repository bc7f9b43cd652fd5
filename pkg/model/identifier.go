package model

import (
	"regexp"
	"strings"
)

// identifierSegment matches one namespace segment of an identifier.
var identifierSegment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a well-formed identifier: it starts
// with a letter or underscore, continues with letters, digits or
// underscores, and may contain "::" namespace separators between
// well-formed segments. Entity names, function references and type
// references must all satisfy this.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, "::") {
		if !identifierSegment.MatchString(seg) {
			return false
		}
	}
	return true
}
