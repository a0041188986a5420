package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Roles
const (
	RoleStudent     = "student"
	RoleTeacher     = "teacher"
	RoleHOD         = "hod"
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator" // temporary, granted over a base role
)

var (
	BaseRoles = []string{RoleStudent, RoleTeacher, RoleHOD}
	AllRoles  = []string{RoleStudent, RoleTeacher, RoleHOD, RoleCoordinator, RoleAdmin}

	rolePriorities = map[string]int{
		RoleAdmin:       40,
		RoleHOD:         30,
		RoleCoordinator: 25,
		RoleTeacher:     20,
		RoleStudent:     10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Head of Department", Value: RoleHOD},
		{Name: "Coordinator", Value: RoleCoordinator},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsBaseRole(role string) bool {
	return inRoles(role, BaseRoles)
}

func IsRole(role string) bool {
	return inRoles(role, AllRoles)
}

func inRoles(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Branch    string    `json:"branch,omitempty"`
	Semester  int       `json:"semester,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u User) IsAdmin() bool       { return u.Role == RoleAdmin }
func (u User) IsStudent() bool     { return u.Role == RoleStudent }
func (u User) IsCoordinator() bool { return u.Role == RoleCoordinator }

// NewUser contains information needed to create a new User.
// Coordinators are not created directly, see coordinator.Service.Assign.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"required,allroles,ne=coordinator"`
	Branch   string `json:"branch" validate:"omitempty,alphanum_"`
	Semester int    `json:"semester" validate:"omitempty,min=1,max=12"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Branch = core.CleanString(nu.Branch)
	return validate.Struct(nu)
}

type QueryFilter struct {
	IDs      []string `query:"id"`
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	Branch   string   `query:"branch"`
	Semester int      `query:"semester"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.IDs == nil && qf.Search == "" && qf.Roles == nil && qf.Branch == "" && qf.Semester == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Branch = core.CleanString(qf.Branch)
}

// OrderingFields are the fields users can be ordered by.
var OrderingFields = []string{"name", "email", "role", "branch", "semester", "is_active", "created_at", "updated_at"}

// CleanOrdering drops the orderings on unknown fields.
func CleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	var cleaned []core.DBOrdering
	for _, ord := range ordering {
		for _, field := range OrderingFields {
			if ord.Field == field {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}

// ActiveStudents selects the active students of a class.
func ActiveStudents(branch string, semester int) *QueryFilter {
	active := true
	return &QueryFilter{Roles: []string{RoleStudent}, Branch: branch, Semester: semester, IsActive: &active}
}
