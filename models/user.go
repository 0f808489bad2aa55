package models

type Role string

const (
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
)

// User is read-only reference data supplied by the authentication
// collaborator. The engine authorizes against it but never changes it.
type User struct {
	ID    string `json:"id" bson:"_id"`
	Email string `json:"email" bson:"email"`
	Name  string `json:"name" bson:"name"`
	Role  Role   `json:"role" bson:"role"`
}
