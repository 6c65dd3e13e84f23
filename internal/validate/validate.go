// Package validate holds the field rules shared by the admin handlers and the
// order service.
package validate

import (
	"regexp"
	"slices"
	"strings"

	"github.com/kleen-pos/api/internal/enum"
)

var (
	phonePattern = regexp.MustCompile(`^628\d{8,13}$`)
	pinPattern   = regexp.MustCompile(`^\d{4}$`)
	nonUsername  = regexp.MustCompile(`[^a-z0-9]`)
	underscores  = regexp.MustCompile(`_+`)
)

// Phone reports whether s is a 62-prefixed Indonesian mobile number.
func Phone(s string) bool {
	return phonePattern.MatchString(s)
}

// PIN reports whether s is exactly four digits.
func PIN(s string) bool {
	return pinPattern.MatchString(s)
}

func Role(s string) bool {
	return slices.Contains(enum.Roles, s)
}

func CustomerType(s string) bool {
	return slices.Contains(enum.CustomerTypes, s)
}

func BranchType(s string) bool {
	return s == enum.BranchTypeProduction || s == enum.BranchTypeDropOffOnly
}

func ServiceCategory(s string) bool {
	switch s {
	case enum.ServiceCategoryKiloan, enum.ServiceCategoryLuas,
		enum.ServiceCategoryUnit, enum.ServiceCategorySnapbridge:
		return true
	}
	return false
}

func TransactionType(s string) bool {
	return s == enum.TransactionTypeReguler || s == enum.TransactionTypeExpress
}

// Username derives a login name from a display name, e.g.
// "Ratih Pondok Labu" -> "ratih_pondok_labu".
func Username(name string) string {
	u := strings.ToLower(strings.TrimSpace(name))
	u = nonUsername.ReplaceAllString(u, "_")
	u = underscores.ReplaceAllString(u, "_")
	return strings.Trim(u, "_")
}
