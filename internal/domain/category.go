package domain

import "strings"

// Category names one of the fixed resume facets used by the multi-vector pipeline.
type Category string

// The four extracted categories, in query order.
const (
	CategoryRoles     Category = "roles"
	CategorySkills    Category = "skills"
	CategorySeniority Category = "seniority"
	CategoryIndustry  Category = "industry"
)

// Categories lists every category in the order they are queried.
func Categories() []Category {
	return []Category{CategoryRoles, CategorySkills, CategorySeniority, CategoryIndustry}
}

// CategorySet is the structured extraction result for one text.
// JSON tags and jsonschema descriptions define the strict output schema.
type CategorySet struct {
	Roles     []string `json:"roles" jsonschema:"description=Roles held by the individual" validate:"required"`
	Skills    []string `json:"skills" jsonschema:"description=Technical skills of the individual" validate:"required"`
	Seniority []string `json:"seniority" jsonschema:"description=Seniority level" validate:"required"`
	Industry  []string `json:"industry" jsonschema:"description=Related industries" validate:"required"`
}

// Values returns the extracted values for c.
func (s CategorySet) Values(c Category) []string {
	switch c {
	case CategoryRoles:
		return s.Roles
	case CategorySkills:
		return s.Skills
	case CategorySeniority:
		return s.Seniority
	case CategoryIndustry:
		return s.Industry
	default:
		return nil
	}
}

// Text joins the values of c into the string that gets embedded.
// Returns "" when the category has no non-blank values.
func (s CategorySet) Text(c Category) string {
	vals := make([]string, 0, len(s.Values(c)))
	for _, v := range s.Values(c) {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	return strings.Join(vals, ", ")
}
