package validation

import (
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// UsernameRegex mirrors the classic username rule: letters, digits and @/./+/-/_
	UsernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

	// AllowedVideoExtensions lists the accepted lesson video file extensions
	AllowedVideoExtensions = []string{"mp4", "avi"}
)

// NonFieldErrorsKey groups errors that are not bound to a single field
const NonFieldErrorsKey = "non_field_errors"

// Errors maps a request field (by its json name) to a human readable message
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// NewValidator creates a new validator instance with english messages and
// the custom rules used by the API (videoext, username, singleline)
func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	_ = validate.RegisterValidation("videoext", func(fl validator.FieldLevel) bool {
		return IsAllowedVideoExtension(fl.Field().String())
	})
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return UsernameRegex.MatchString(fl.Field().String())
	})
	// Values that end up in mail headers
	_ = validate.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})

	registerMessage(validate, trans, "videoext", "{0} must be an mp4 or avi file")
	registerMessage(validate, trans, "username", "{0} may contain only letters, digits and @/./+/-/_ characters")
	registerMessage(validate, trans, "singleline", "{0} must not contain line breaks")

	return &Validator{
		validate: validate,
		trans:    trans,
	}
}

func registerMessage(validate *validator.Validate, trans ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// ValidateStruct validates a struct using struct tags. It returns nil when
// the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) Errors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return v.FormatValidationErrors(err)
}

// FormatValidationErrors converts validation errors to a field -> message map
func (v *Validator) FormatValidationErrors(err error) Errors {
	errs := make(Errors)

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs[NonFieldErrorsKey] = err.Error()
		return errs
	}

	for _, e := range validationErrs {
		field := e.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = e.Translate(v.trans)
	}

	return errs
}

// IsAllowedVideoExtension checks the file name against AllowedVideoExtensions, ignoring case
func IsAllowedVideoExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range AllowedVideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}
