package approval

import (
	"fmt"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// Catalog maps each department to its ordered evaluation questionnaire.
// It is static configuration; a department absent from the catalog has no questionnaire
// and its plain decisions skip the evaluation gate.
type Catalog map[entity.Department][]entity.Question

// Questions returns the department's questionnaire, nil when none is defined
func (c Catalog) Questions(d entity.Department) []entity.Question {
	return c[d]
}

// HasQuestionnaire reports whether the evaluation gate applies to the department
func (c Catalog) HasQuestionnaire(d entity.Department) bool {
	return len(c[d]) > 0
}

// Validate rejects unknown departments, empty keys and keys repeated within a department
func (c Catalog) Validate() error {
	for dept, questions := range c {
		if !dept.IsValid() {
			return fmt.Errorf("catalog: unknown department %q", dept)
		}
		seen := make(map[string]bool, len(questions))
		for _, q := range questions {
			if q.Key == "" {
				return fmt.Errorf("catalog: %s has a question without a key", dept)
			}
			if seen[q.Key] {
				return fmt.Errorf("catalog: %s repeats question key %q", dept, q.Key)
			}
			seen[q.Key] = true
		}
	}
	return nil
}

// DefaultCatalog returns the plant's standard questionnaires
func DefaultCatalog() Catalog {
	req := func(key, text string) entity.Question {
		return entity.Question{Key: key, Text: text, Required: true}
	}

	return Catalog{
		entity.DepartmentMaintenance: {
			req("maint.q1", "Is the PY / improvement accessible in case of breakdown?"),
			req("maint.q2", "Does the improvement require add-on mechanical / electrical accessories?"),
			req("maint.q3", "Is PLC program logic to be modified?"),
			req("maint.q4", "Is spare cost included / manageable in budget?"),
			req("maint.q5", "Will this modification affect the ongoing program?"),
			req("maint.q6", "Is the R&R of the product selected OK?"),
		},
		entity.DepartmentProduction: {
			req("prod.q1", "Is it affecting safety of the producer?"),
			req("prod.q2", "Is training for the producer required?"),
			req("prod.q3", "Is it affecting productivity?"),
			req("prod.q4", "Is it affecting ergonomics / fatigue of the producer?"),
			req("prod.q5", "Is additional manpower required?"),
		},
		entity.DepartmentAssembly: {
			req("asm.q1", "Does the change fit in the machine design?"),
			req("asm.q2", "Is new fixture / jigs / tools / chute (input & output) required?"),
			req("asm.q3", "Is cost for new fixtures / jigs / tools / chute finalized?"),
			req("asm.q4", "Is PFMEA created or modified?"),
			req("asm.q5", "Is there any change in process flow?"),
			req("asm.q6", "Is it affecting the safety of the product?"),
			req("asm.q7", "Is process validation required?"),
			req("asm.q8", "Is it affecting the cycle time?"),
		},
		entity.DepartmentAdmin: {
			req("admin.q1", "Does this change impact any company policies or compliance requirements?"),
			req("admin.q2", "Is documentation update required for administrative records?"),
		},
		entity.DepartmentAccounts: {
			req("acc.q1", "Is budget available for this change?"),
			req("acc.q2", "Is cost justification adequate?"),
			req("acc.q3", "Is financial approval required from higher management?"),
		},
	}
}
