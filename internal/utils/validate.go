package utils

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLen = 8
	// MaxPasswordBytes: bcrypt не принимает пароли длиннее 72 байт.
	MaxPasswordBytes = 72
	MinFullNameLen = 2
	MaxFullNameLen = 255
)

// FieldErrors: поле (имя из json-тега) -> сообщение для формы.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PasswordProblem возвращает первое нарушенное правило или "".
func PasswordProblem(pwd string) string {
	if utf8.RuneCountInString(pwd) < MinPasswordLen {
		return fmt.Sprintf("must be at least %d characters", MinPasswordLen)
	}
	if len(pwd) > MaxPasswordBytes {
		return fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	switch {
	case !hasUpper:
		return "must contain at least one uppercase letter"
	case !hasLower:
		return "must contain at least one lowercase letter"
	case !hasDigit:
		return "must contain at least one digit"
	}
	return ""
}

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return PasswordProblem(fl.Field().String()) == ""
	})
	return &Validator{v: v}
}

// Struct проверяет теги validate и возвращает FieldErrors.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

// Password: то же правило, что и тег strongpwd, для одиночного значения.
func (val *Validator) Password(field, pwd string) error {
	if p := PasswordProblem(pwd); p != "" {
		return FieldErrors{field: p}
	}
	return nil
}

// Email: формат адреса для одиночного значения.
func (val *Validator) Email(field, email string) error {
	if strings.TrimSpace(email) == "" {
		return FieldErrors{field: "is required"}
	}
	if err := val.v.Var(email, "email"); err != nil {
		return FieldErrors{field: "must be a valid email address"}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "strongpwd":
		return PasswordProblem(fe.Value().(string))
	default:
		return "is invalid"
	}
}
