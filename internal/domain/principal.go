package domain

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// PrincipalKind tells which table a principal was loaded from.
type PrincipalKind string

const (
	PrincipalAccount PrincipalKind = "account"
	PrincipalStaff   PrincipalKind = "staff"
)

// Principal is the authentication-ready view of a credential holder.
type Principal struct {
	Kind         PrincipalKind
	LoginName    string
	PasswordHash string
	Enabled      bool
	Authorities  []string
}

// HasAuthority reports whether the principal was granted the given role code.
func (p *Principal) HasAuthority(code string) bool {
	return slices.Contains(p.Authorities, code)
}

// NormalizeLoginName trims surrounding space and applies Unicode NFC so that
// visually identical names compare equal.
func NormalizeLoginName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Login name length bounds, in characters of the normalized name.
const (
	MinLoginNameLength = 3
	MaxLoginNameLength = 64
)

// ValidLoginName reports whether a normalized login name is within the length bounds.
func ValidLoginName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= MinLoginNameLength && n <= MaxLoginNameLength
}
