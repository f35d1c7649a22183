package approval

import "github.com/kaizenflow/kaizen-approvals/internal/domain/entity"

// IsComplete reports whether every department other than own has at least one APPROVED
// entry among the stage's ledger entries. It is a set-membership check, so entry order
// never changes the answer. Callers pass the full ledger for the stage on every call.
func IsComplete(all []entity.Department, own entity.Department, entries []entity.DepartmentVerdict) bool {
	return len(PendingDepartments(all, own, entries)) == 0
}

// PendingDepartments returns the cross departments still lacking an APPROVED entry,
// in the order of all.
func PendingDepartments(all []entity.Department, own entity.Department, entries []entity.DepartmentVerdict) []entity.Department {
	approved := make(map[entity.Department]bool, len(entries))
	for _, e := range entries {
		if e.Decision == entity.DecisionApproved {
			approved[e.Department] = true
		}
	}

	pending := make([]entity.Department, 0, len(all))
	for _, d := range all {
		if d == own || approved[d] {
			continue
		}
		pending = append(pending, d)
	}
	return pending
}
