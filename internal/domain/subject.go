package domain

// SubjectType distinguishes authenticated caller kinds.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "END_USER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// StaffRole enumerates staff permissions relevant to billing commands.
type StaffRole string

const (
	StaffRoleAdmin   StaffRole = "ADMIN"
	StaffRoleAgent   StaffRole = "AGENT"
	StaffRoleFinance StaffRole = "FINANCE"
)
