package entity

// Department is one of the fixed plant departments
type Department string

const (
	DepartmentMaintenance Department = "MAINTENANCE"
	DepartmentProduction  Department = "PRODUCTION"
	DepartmentAssembly    Department = "ASSEMBLY"
	DepartmentAdmin       Department = "ADMIN"
	DepartmentAccounts    Department = "ACCOUNTS"
)

var departmentDisplayNames = map[Department]string{
	DepartmentMaintenance: "Maintenance",
	DepartmentProduction:  "Production",
	DepartmentAssembly:    "Assembly",
	DepartmentAdmin:       "Admin",
	DepartmentAccounts:    "Accounts",
}

// AllDepartments returns the department enumeration in its canonical order
func AllDepartments() []Department {
	return []Department{
		DepartmentMaintenance,
		DepartmentProduction,
		DepartmentAssembly,
		DepartmentAdmin,
		DepartmentAccounts,
	}
}

// CrossDepartments returns every department except own, preserving canonical order
func CrossDepartments(own Department) []Department {
	all := AllDepartments()
	cross := make([]Department, 0, len(all)-1)
	for _, d := range all {
		if d != own {
			cross = append(cross, d)
		}
	}
	return cross
}

// IsValid returns true if the department is part of the enumeration
func (d Department) IsValid() bool {
	_, ok := departmentDisplayNames[d]
	return ok
}

// DisplayName returns the human readable department name
func (d Department) DisplayName() string {
	if name, ok := departmentDisplayNames[d]; ok {
		return name
	}
	return string(d)
}

func (d Department) String() string {
	return string(d)
}
