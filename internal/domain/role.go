package domain

// Role is a named permission grouping.
type Role struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Seeded role codes. IDs match migrations/000001_init.up.sql.
const (
	RoleCodeMember = "member"
	RoleCodeAdmin  = "admin"
	RoleCodeStaff  = "staff"

	DefaultAccountRoleID int64 = 1
	AdminRoleID          int64 = 2
)

// RoleCodes returns the codes of roles in order.
func RoleCodes(roles []Role) []string {
	codes := make([]string, 0, len(roles))
	for _, r := range roles {
		codes = append(codes, r.Code)
	}
	return codes
}
