package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a JSON field name to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// String renders the errors in field order.
func (v ValidationErrors) String() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return strings.Join(parts, "; ")
}

const (
	MaxMessageLength = 2000
	MinUsername      = 3
	MaxUsername      = 20
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Usernames nobody may claim, compared case-insensitively.
var reservedUsernames = []string{"admin", "support", "moderator"}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return usernameRegex.MatchString(s) && !strings.HasPrefix(s, "_") && !strings.HasSuffix(s, "_")
	})
	_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		return !IsReservedUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return missingPasswordClasses(fl.Field().String()) == ""
	})
	return v
}

// Struct validates s against its `validate` tags.
func Struct(s any) ValidationErrors {
	errs := make(ValidationErrors)

	err := validate.Struct(s)
	if err == nil {
		return errs
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add("_", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "url":
		return label + " must be a valid URL"
	case "username":
		return "Username can only contain letters, numbers and underscores, and cannot start or end with an underscore"
	case "notreserved":
		return "This username is not allowed"
	case "password":
		return "Password must contain at least " + missingPasswordClasses(fe.Value().(string))
	}
	return label + " is invalid"
}

func fieldLabel(field string) string {
	words := strings.Split(field, "_")
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

// IsReservedUsername reports whether username is on the reserved list.
func IsReservedUsername(username string) bool {
	for _, r := range reservedUsernames {
		if strings.EqualFold(username, r) {
			return true
		}
	}
	return false
}

// NormalizeUsername trims and lowercases a requested username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func missingPasswordClasses(password string) string {
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}
	return strings.Join(missing, ", ")
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

func ValidateRegister(email, password string) ValidationErrors {
	return Struct(registerRequest{Email: strings.TrimSpace(email), Password: password})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func ValidateLogin(email, password string) ValidationErrors {
	return Struct(loginRequest{Email: strings.TrimSpace(email), Password: password})
}

type profileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20,username,notreserved"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

// ValidateProfile expects an already normalized username.
func ValidateProfile(username, photoURL string) ValidationErrors {
	return Struct(profileRequest{Username: username, PhotoURL: photoURL})
}

type messageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// ValidateMessage checks a trimmed message body. Length counts characters,
// not bytes.
func ValidateMessage(body string) ValidationErrors {
	return Struct(messageRequest{Message: body})
}

type listingRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	PuzzleType  string  `json:"puzzle_type" validate:"required,max=50"`
	Price       float64 `json:"price" validate:"gt=0"`
	Usage       string  `json:"usage" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=1000"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
}

func ValidateListing(name, puzzleType string, price float64, usage, description, imageURL string) ValidationErrors {
	return Struct(listingRequest{
		Name:        strings.TrimSpace(name),
		PuzzleType:  strings.TrimSpace(puzzleType),
		Price:       price,
		Usage:       strings.TrimSpace(usage),
		Description: strings.TrimSpace(description),
		ImageURL:    strings.TrimSpace(imageURL),
	})
}

type reportRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func ValidateReport(reason string) ValidationErrors {
	return Struct(reportRequest{Reason: strings.TrimSpace(reason)})
}
