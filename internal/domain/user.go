package domain

// UserRole distinguishes staff responsibilities.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleAgent UserRole = "agent"
)

// User is a staff member. The rows are owned by the auth subsystem; this
// worker only ever reads id, email and role.
type User struct {
	ID    int64
	Email string
	Role  UserRole
}
