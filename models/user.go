package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

type RestrictionKind int

const (
	// Unrestricted: nothing assigned, fall through to the other rules.
	Unrestricted RestrictionKind = iota
	// DenyAll: an assignment exists but lists nothing.
	DenyAll
	// RestrictedTo: only the listed values.
	RestrictedTo
)

// Restriction is an assigned list of cost codes or groups.
// The zero value is Unrestricted.
type Restriction struct {
	kind   RestrictionKind
	values map[string]struct{}
}

func NoRestriction() Restriction { return Restriction{} }

func DenyAllRestriction() Restriction { return Restriction{kind: DenyAll} }

// RestrictTo builds a restriction from a list; an empty list means DenyAll.
func RestrictTo(values ...string) Restriction {
	if len(values) == 0 {
		return DenyAllRestriction()
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Restriction{kind: RestrictedTo, values: set}
}

func (r Restriction) Kind() RestrictionKind { return r.kind }

// Allows reports whether value is listed. Exact string comparison.
func (r Restriction) Allows(value string) bool {
	if r.kind != RestrictedTo {
		return false
	}
	_, ok := r.values[value]
	return ok
}

// Values returns the listed values, sorted.
func (r Restriction) Values() []string {
	out := make([]string, 0, len(r.values))
	for v := range r.values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (r Restriction) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case Unrestricted:
		return []byte("null"), nil
	case DenyAll:
		return []byte("[]"), nil
	}
	return json.Marshal(r.Values())
}

var ErrInvalidRestriction = errors.New("assigned list must be null, an array of strings or a string-encoded array")

// UnmarshalJSON accepts null, an array of strings, or a string holding an
// encoded array (some upstream stores keep the list as text).
func (r *Restriction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = NoRestriction()
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return ErrInvalidRestriction
		}
		text = strings.TrimSpace(text)
		if text == "" || text == "null" {
			*r = NoRestriction()
			return nil
		}
		if !strings.HasPrefix(text, "[") {
			return ErrInvalidRestriction
		}
		data = []byte(text)
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return ErrInvalidRestriction
	}
	*r = RestrictTo(values...)
	return nil
}

// CurrentUser is the authenticated caller as handed over by the session layer.
type CurrentUser struct {
	ID        int         `json:"id"`
	Username  string      `json:"username"`
	Role      UserRole    `json:"role"`
	Branch    BranchCode  `json:"branch"`
	CostCodes Restriction `json:"assignedCostCodes"`
	Groups    Restriction `json:"assignedGroups"`
}

func (u CurrentUser) IsAdmin() bool {
	return strings.EqualFold(string(u.Role), string(UserRoleAdmin))
}

// BranchScope returns the branch the user is limited to, or BranchAll.
// Only an explicit "all" widens the scope; blank or unknown values match no branch.
func (u CurrentUser) BranchScope() BranchCode {
	return BranchCode(strings.ToUpper(strings.TrimSpace(string(u.Branch))))
}
