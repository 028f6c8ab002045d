package middleware

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/training-platform/backend/internal/models"
)

// RouteResolver derives a coarse audit classification (action, entity
// type, entity id) from a request's method, path and route parameters.
// The tables are plain data so the derivation is testable without the
// HTTP layer.
type RouteResolver struct {
	actionByMethod   map[string]string
	entityByResource map[string]string
	paramPriority    []string
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

func NewRouteResolver() *RouteResolver {
	return &RouteResolver{
		actionByMethod: map[string]string{
			"GET":    "view",
			"POST":   "create",
			"PUT":    "update",
			"PATCH":  "update",
			"DELETE": "delete",
		},
		entityByResource: map[string]string{
			"users":             models.EntityUser,
			"course-categories": models.EntityCourseCategory,
			"courses":           models.EntityCourse,
			"files":             models.EntityFile,
		},
		paramPriority: []string{"id", "user", "course", "courseCategory", "category", "fileId"},
	}
}

// Action maps the HTTP method to a CRUD verb, "unknown" for anything
// unmapped.
func (r *RouteResolver) Action(method string) string {
	if a, ok := r.actionByMethod[strings.ToUpper(method)]; ok {
		return a
	}
	return "unknown"
}

// EntityType resolves the resource segment of the path (the first
// segment after the api/version prefix) through the resource table.
// Unmapped resources yield "".
func (r *RouteResolver) EntityType(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range segments {
		if seg == "api" || versionSegment.MatchString(seg) {
			continue
		}
		if t, ok := r.entityByResource[seg]; ok {
			return t
		}
		return ""
	}
	return ""
}

// EntityID scans the known route parameter names in priority order and
// returns the first numeric value, nil when none is present. Partial
// data beats no data: a non-numeric parameter is skipped, not an error.
func (r *RouteResolver) EntityID(params map[string]string) *int64 {
	for _, name := range r.paramPriority {
		v, ok := params[name]
		if !ok || v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		return &id
	}
	return nil
}
