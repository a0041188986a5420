package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// CustomValidation is a validator tag along with its english message.
// A nil Func only overrides the message of a built-in tag.
type CustomValidation struct {
	Tag  string
	Text string
	Func validator.Func
}

const requiredText = "this field is required"

var (
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	coreValidations = []CustomValidation{
		{Tag: "alphanum_", Text: "only alphanumeric characters and underscores are allowed", Func: alphaNumUnderValidation},
		{Tag: "required", Text: requiredText},
		{Tag: "required_with", Text: requiredText},
		{Tag: "min", Text: "{0} is too small"},
		{Tag: "max", Text: "{0} is too large"},
	}
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators sets up validate: default english messages, JSON field names and the core tags.
// Domain packages register their own tags with RegisterValidations afterwards.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterValidations(validate, translator, coreValidations...)
}

// RegisterValidations registers every validation and its translation.
func RegisterValidations(validate *validator.Validate, translator ut.Translator, validations ...CustomValidation) {
	for _, cv := range validations {
		override := cv.Func == nil
		if !override {
			_ = validate.RegisterValidation(cv.Tag, cv.Func)
		}
		RegisterCustomTranslation(validate, translator, cv.Tag, cv.Text, override)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
// {0} in text is replaced by the field name.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}
