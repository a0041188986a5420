package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestNewUser_Validate(t *testing.T) {
	validate := newValidate()

	tests := []struct {
		name       string
		nu         NewUser
		wantFields []string
	}{
		{name: "empty", nu: NewUser{}, wantFields: []string{"name", "role"}},
		{name: "invalid email", nu: NewUser{Name: "T", Email: "lol", Role: RoleTeacher}, wantFields: []string{"email"}},
		{name: "unknown role", nu: NewUser{Name: "T", Role: "janitor"}, wantFields: []string{"role"}},
		{name: "coordinator role", nu: NewUser{Name: "T", Role: RoleCoordinator}, wantFields: []string{"role"}},
		{name: "student without class", nu: NewUser{Name: "S", Role: RoleStudent}, wantFields: []string{"branch", "semester"}},
		{name: "semester out of range", nu: NewUser{Name: "S", Role: RoleStudent, Branch: "CSE", Semester: 13}, wantFields: []string{"semester"}},
		{name: "invalid branch", nu: NewUser{Name: "S", Role: RoleStudent, Branch: "C$E", Semester: 3}, wantFields: []string{"branch"}},
		{name: "student", nu: NewUser{Name: "S", Email: "s@test.cd", Role: RoleStudent, Branch: "CSE", Semester: 3}},
		{name: "hod (cleaned)", nu: NewUser{Name: "  H ", Email: " HOD@Test.cd", Role: " HOD "}},
		{name: "admin", nu: NewUser{Name: "A", Role: RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := tt.nu
			err := nu.Validate(validate)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "err is %T", err)

			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestNewUser_ValidateCleans(t *testing.T) {
	nu := NewUser{Name: "  Head  ", Email: " HOD@Test.cd ", Role: " HOD ", Branch: " CSE "}
	require.NoError(t, nu.Validate(newValidate()))
	assert.Equal(t, "Head", nu.Name)
	assert.Equal(t, "hod@test.cd", nu.Email)
	assert.Equal(t, RoleHOD, nu.Role)
	assert.Equal(t, "CSE", nu.Branch)
}

func TestRoles(t *testing.T) {
	for _, role := range BaseRoles {
		assert.True(t, IsBaseRole(role), role)
	}
	assert.False(t, IsBaseRole(RoleAdmin))
	assert.False(t, IsBaseRole(RoleCoordinator))
	assert.True(t, IsRole(RoleCoordinator))
	assert.False(t, IsRole("lol"))
	assert.Greater(t, RolePriority(RoleAdmin), RolePriority(RoleHOD))
	assert.Greater(t, RolePriority(RoleCoordinator), RolePriority(RoleTeacher))
	assert.Zero(t, RolePriority("lol"))
}

func TestActiveStudents(t *testing.T) {
	f := ActiveStudents("CSE", 3)
	assert.Equal(t, []string{RoleStudent}, f.Roles)
	assert.Equal(t, "CSE", f.Branch)
	assert.Equal(t, 3, f.Semester)
	require.NotNil(t, f.IsActive)
	assert.True(t, *f.IsActive)
	assert.False(t, f.IsEmpty())
	assert.True(t, (&QueryFilter{}).IsEmpty())
}
