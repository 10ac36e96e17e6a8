package models

// FilterRecords returns the records user may see.
//
// Branch scope applies to every role. Admins are exempt from cost code and
// group scoping only. For everyone else a record passes when its group is
// assigned OR its cost code is assigned verbatim; an explicit empty cost code
// list without group assignments denies everything.
func FilterRecords(records []PurchaseRecord, user CurrentUser) []PurchaseRecord {
	scope := user.BranchScope()
	groupRestricted := user.Groups.Kind() == RestrictedTo
	codeRestricted := user.CostCodes.Kind() != Unrestricted

	if !user.IsAdmin() && user.CostCodes.Kind() == DenyAll && !groupRestricted {
		return []PurchaseRecord{}
	}

	out := make([]PurchaseRecord, 0, len(records))
	for _, r := range records {
		if scope != BranchAll && r.Branch != scope {
			continue
		}
		if !user.IsAdmin() && (groupRestricted || codeRestricted) {
			// exact match only; fuzzy matching here could widen access
			if !user.Groups.Allows(r.Group) && !user.CostCodes.Allows(r.CostCode) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
