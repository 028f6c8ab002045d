package models

import "time"

// User roles, checked by the permission middleware.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	KeycloakSubject *string   `json:"keycloak_subject,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntityType names used as the polymorphic audit discriminator.
const (
	EntityUser           = "User"
	EntityCourseCategory = "CourseCategory"
	EntityCourse         = "Course"
	EntityFile           = "File"
)
