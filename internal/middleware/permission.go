package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/models"
)

// Static permission table: which roles hold which permission. Admins
// hold everything implicitly.
var rolePermissions = map[string][]string{
	"audit-logs.view":          {models.RoleManager},
	"audit-logs.view-own":      {models.RoleManager, models.RoleUser},
	"users.view":               {models.RoleManager},
	"users.create":             {},
	"users.update":             {},
	"users.delete":             {},
	"course-categories.view":   {models.RoleManager, models.RoleUser},
	"course-categories.create": {models.RoleManager},
	"course-categories.update": {models.RoleManager},
	"course-categories.delete": {models.RoleManager},
	"courses.view":             {models.RoleManager, models.RoleUser},
	"courses.create":           {models.RoleManager},
	"courses.update":           {models.RoleManager},
	"courses.delete":           {models.RoleManager},
	"files.view":               {models.RoleManager, models.RoleUser},
	"files.upload":             {models.RoleManager, models.RoleUser},
	"files.download":           {models.RoleManager, models.RoleUser},
	"files.update":             {models.RoleManager},
	"files.delete":             {models.RoleManager},
	"reports.export":           {models.RoleManager},
}

func hasPermission(role, perm string) bool {
	if role == models.RoleAdmin {
		return true
	}
	for _, r := range rolePermissions[perm] {
		if r == role {
			return true
		}
	}
	return false
}

// RequirePermission gates a route on the actor's role.
func RequirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(CtxUserRole).(string)
		if !hasPermission(role, perm) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient permissions"})
		}
		return c.Next()
	}
}
