package auth

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form field names as reported in FieldErrors.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

// LoginFormData only checks that a password was entered; its strength is the provider's concern.
type LoginFormData struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterFormData struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"min=6,max=100,hasletter,hasdigit"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type ForgotPasswordFormData struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordFormData struct {
	Password        string `json:"password" validate:"min=6,max=100,hasletter,hasdigit"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// FieldErrors maps a form field to the first problem found with it. Empty means the form is valid.
type FieldErrors map[string]string

func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// fieldMessages holds the message for each field and failed rule.
var fieldMessages = map[string]map[string]string{
	FieldEmail: {
		"required": "Email is required",
		"email":    "Invalid email address",
	},
	FieldPassword: {
		"required":  "Password is required",
		"min":       "Password must be at least 6 characters",
		"max":       "Password is too long",
		"hasletter": "Password must contain at least one letter",
		"hasdigit":  "Password must contain at least one number",
	},
	FieldConfirmPassword: {
		"required": "Please confirm your password",
		"eqfield":  "Passwords do not match",
	},
}

// Validator checks auth forms.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the password rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "hasletter", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), isASCIILetter) >= 0
	})
	mustRegister(v, "hasdigit", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), isASCIIDigit) >= 0
	})
	return &Validator{validate: v}
}

// mustRegister panics when tag cannot be registered, which is a programming error.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail returns the problem with email, or "" when it is valid.
func (v *Validator) ValidateEmail(email string) string {
	return v.checkVar(FieldEmail, NormalizeEmail(email), "required,email")
}

// ValidatePassword returns the problem with a new password, or "" when it is valid.
func (v *Validator) ValidatePassword(password string) string {
	return v.checkVar(FieldPassword, password, "min=6,max=100,hasletter,hasdigit")
}

// ValidateLogin normalizes the email in form and checks every field.
func (v *Validator) ValidateLogin(form *LoginFormData) FieldErrors {
	form.Email = NormalizeEmail(form.Email)
	return v.checkStruct(form)
}

// ValidateRegister normalizes the email in form and checks every field.
// A confirmation that differs from the password is reported against confirmPassword.
func (v *Validator) ValidateRegister(form *RegisterFormData) FieldErrors {
	form.Email = NormalizeEmail(form.Email)
	return v.checkStruct(form)
}

func (v *Validator) ValidateForgotPassword(form *ForgotPasswordFormData) FieldErrors {
	form.Email = NormalizeEmail(form.Email)
	return v.checkStruct(form)
}

func (v *Validator) ValidateResetPassword(form *ResetPasswordFormData) FieldErrors {
	return v.checkStruct(form)
}

func (v *Validator) checkStruct(form any) FieldErrors {
	errs := FieldErrors{}
	err := v.validate.Struct(form)
	if err == nil {
		return errs
	}

	var validationErrs validator.ValidationErrors
	if !asValidationErrors(err, &validationErrs) {
		errs[FieldEmail] = err.Error()
		return errs
	}
	for _, fe := range validationErrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return errs
}

func (v *Validator) checkVar(field string, value string, tags string) string {
	err := v.validate.Var(value, tags)
	if err == nil {
		return ""
	}
	var validationErrs validator.ValidationErrors
	if asValidationErrors(err, &validationErrs) && len(validationErrs) > 0 {
		return message(field, validationErrs[0].Tag())
	}
	return err.Error()
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func message(field, tag string) string {
	if msg, ok := fieldMessages[field][tag]; ok {
		return msg
	}
	return "Invalid " + field
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
