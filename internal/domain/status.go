package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LeadStatus is the lifecycle state of a lead. Values are stored and
// compared in their canonical capitalized form; external input is
// normalized at the API boundary via NormalizeStatus.
type LeadStatus string

// Canonical lead statuses.
const (
	StatusNew       LeadStatus = "New"
	StatusPending   LeadStatus = "Pending"
	StatusDuplicate LeadStatus = "Duplicate"
	StatusApproved  LeadStatus = "Approved"
	StatusTrash     LeadStatus = "Trash"
)

// statusTitle produces the canonical capitalization ("duplicate" -> "Duplicate").
var statusTitle = cases.Title(language.English)

var validStatuses = map[LeadStatus]struct{}{
	StatusNew:       {},
	StatusPending:   {},
	StatusDuplicate: {},
	StatusApproved:  {},
	StatusTrash:     {},
}

// NormalizeStatus maps arbitrary-cased external input ("duplicate",
// "APPROVED") to its canonical LeadStatus. The second return value is false
// when the input is not one of the enumerated statuses.
func NormalizeStatus(s string) (LeadStatus, bool) {
	st := LeadStatus(statusTitle.String(strings.ToLower(strings.TrimSpace(s))))
	_, ok := validStatuses[st]
	return st, ok
}

// Valid reports whether s is one of the canonical enum values.
func (s LeadStatus) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}
