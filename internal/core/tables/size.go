// Package tables defines the identifiers and size tiers shared by the
// Clear & Match and Compare pipelines.
package tables

import (
	"fmt"
	"regexp"
	"strings"
)

// Size is one of the four configuration scales a table carries limits for.
type Size int

const (
	Large Size = iota
	Medium
	Small
	XSmall
)

// SizeCount is the number of supported tiers.
const SizeCount = 4

// Sizes lists every tier in processing order.
var Sizes = [SizeCount]Size{Large, Medium, Small, XSmall}

var sizeLabels = [SizeCount]string{"Large", "Medium", "Small", "XSmall"}

// String returns the label used in Compare reports ("Large", "XSmall", ...).
func (s Size) String() string {
	if s < 0 || int(s) >= SizeCount {
		return fmt.Sprintf("Size(%d)", int(s))
	}
	return sizeLabels[s]
}

// Key returns the lowercase column key used in Clear & Match output.
func (s Size) Key() string {
	return strings.ToLower(s.String())
}

// idPattern matches a canonical table identifier.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9-]{16}$`)

// ValidID reports whether s is exactly 16 characters from [A-Za-z0-9-].
// The caller is expected to trim s first.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}
