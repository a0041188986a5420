package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

const studentClassTag = "studentclass"

var validations = []core.CustomValidation{
	{Tag: "allroles", Text: "invalid role", Func: allRolesValidation},
	{Tag: "baserole", Text: "must be one of student, teacher or hod", Func: baseRoleValidation},
	{Tag: "ne", Text: "{0} is not allowed here"},
}

// InitValidators registers the user validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterValidations(validate, translator, validations...)

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, studentClassTag, "students need a branch and a semester")
}

// Custom Validators

// allRolesValidation checks that the role (or every role of a slice) is in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	switch val := fl.Field().Interface().(type) {
	case string:
		return IsRole(val)
	case []string:
		for _, role := range val {
			if !IsRole(role) {
				return false
			}
		}
		return true
	}
	return false
}

// baseRoleValidation checks that the role is one a coordinator can revert to
func baseRoleValidation(fl validator.FieldLevel) bool {
	return IsBaseRole(fl.Field().String())
}

// userStructValidation does struct level validation on NewUser structs.
func userStructValidation(sl validator.StructLevel) {
	if nu, ok := sl.Current().Interface().(NewUser); ok {
		if nu.Role == RoleStudent && (nu.Branch == "" || nu.Semester == 0) {
			sl.ReportError(nu.Branch, "branch", "Branch", studentClassTag, "")
			sl.ReportError(nu.Semester, "semester", "Semester", studentClassTag, "")
		}
	}
}
