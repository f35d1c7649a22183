package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// document is the questionnaire file layout:
//
//	departments:
//	  MAINTENANCE:
//	    - key: maint.q1
//	      text: Is the PY accessible in case of breakdown?
//	      required: true
type document struct {
	Departments map[entity.Department][]entity.Question `yaml:"departments"`
}

// Load reads a questionnaire catalog from a YAML file
func Load(path string) (approval.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a questionnaire catalog. Unknown fields are rejected.
func Parse(raw []byte) (approval.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode questionnaire file: %w", err)
	}
	if len(doc.Departments) == 0 {
		return nil, fmt.Errorf("questionnaire file defines no departments")
	}

	c := approval.Catalog(doc.Departments)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Marshal renders a catalog in the file layout Load reads
func Marshal(c approval.Catalog) ([]byte, error) {
	return yaml.Marshal(document{Departments: c})
}
