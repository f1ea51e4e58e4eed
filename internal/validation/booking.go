// Package validation checks booking submissions and reports every violation at once.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	CodeRequired = "required"
	CodeTooShort = "too_short"
	CodeTooLong  = "too_long"
	CodeFormat   = "invalid_format"
	CodeRange    = "out_of_range"
	CodeInvalid  = "invalid_value"
)

var (
	namePattern  = regexp.MustCompile(`^[\p{L}\s'-]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,20}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// FieldError is one violation. Field uses the request's JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors is the aggregate validation failure, ordered by field.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

type Rules struct {
	AgeMin   int
	AgeMax   int
	GroupMin int
	GroupMax int
}

func DefaultRules() Rules {
	return Rules{AgeMin: 18, AgeMax: 100, GroupMin: 2, GroupMax: 20}
}

// Submission is the raw public booking request.
type Submission struct {
	FullName        string
	Email           string
	Phone           string
	Age             *int
	Country         string
	BookingType     string
	NumberOfPeople  *int
	SelectedPackage string
}

type Validator struct {
	rules    Rules
	validate *validator.Validate
}

func New(rules Rules) *Validator {
	v := validator.New()
	mustRegister(v, "personname", namePattern)
	mustRegister(v, "lightemail", emailPattern)
	mustRegister(v, "intlphone", phonePattern)
	return &Validator{rules: rules, validate: v}
}

// mustRegister adds a tag backed by pattern. It panics on a bad tag, which is a programming error.
func mustRegister(v *validator.Validate, tag string, pattern *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func (v *Validator) Rules() Rules {
	return v.rules
}

type rule struct {
	tag     string
	code    string
	message string
}

// check runs rules in order and records the first failure for the field.
func (v *Validator) check(errs *Errors, field string, value interface{}, rules ...rule) {
	for _, r := range rules {
		if err := v.validate.Var(value, r.tag); err != nil {
			*errs = append(*errs, FieldError{Field: field, Message: r.message, Code: r.code})
			return
		}
	}
}

// Booking validates s and returns the normalized booking fields. Strings are
// trimmed and individual bookings always carry one person.
func (v *Validator) Booking(s Submission) (models.Booking, error) {
	b := models.Booking{
		FullName:        strings.TrimSpace(s.FullName),
		Email:           strings.TrimSpace(s.Email),
		Phone:           strings.TrimSpace(s.Phone),
		Country:         strings.TrimSpace(s.Country),
		BookingType:     models.BookingType(strings.TrimSpace(s.BookingType)),
		SelectedPackage: strings.TrimSpace(s.SelectedPackage),
		NumberOfPeople:  1,
		Status:          models.StatusPending,
	}

	var errs Errors

	v.check(&errs, "fullName", b.FullName,
		rule{"required", CodeRequired, "Full name is required"},
		rule{"min=2", CodeTooShort, "Full name must be at least 2 characters"},
		rule{"max=100", CodeTooLong, "Full name must be at most 100 characters"},
		rule{"personname", CodeFormat, "Full name may only contain letters, spaces, hyphens and apostrophes"},
	)

	v.check(&errs, "email", b.Email,
		rule{"required", CodeRequired, "Email is required"},
		rule{"max=255", CodeTooLong, "Email must be at most 255 characters"},
		rule{"lightemail", CodeFormat, "Email must be a valid email address"},
	)

	digits := phoneNoise.Replace(b.Phone)
	v.check(&errs, "phone", digits,
		rule{"required", CodeRequired, "Phone number is required"},
		rule{"intlphone", CodeFormat, "Phone number must contain 10 to 20 digits"},
	)

	if s.Age == nil {
		errs = append(errs, FieldError{Field: "age", Message: "Age is required", Code: CodeRequired})
	} else {
		b.Age = *s.Age
		v.check(&errs, "age", b.Age, rule{
			fmt.Sprintf("gte=%d,lte=%d", v.rules.AgeMin, v.rules.AgeMax),
			CodeRange,
			fmt.Sprintf("Age must be between %d and %d", v.rules.AgeMin, v.rules.AgeMax),
		})
	}

	v.check(&errs, "country", b.Country,
		rule{"required", CodeRequired, "Country is required"},
		rule{"min=2", CodeTooShort, "Country must be at least 2 characters"},
		rule{"max=100", CodeTooLong, "Country must be at most 100 characters"},
		rule{"personname", CodeFormat, "Country may only contain letters, spaces, hyphens and apostrophes"},
	)

	v.check(&errs, "bookingType", string(b.BookingType),
		rule{"required", CodeRequired, "Booking type is required"},
		rule{"oneof=individual group", CodeInvalid, "Booking type must be individual or group"},
	)

	if b.BookingType == models.BookingGroup {
		if s.NumberOfPeople == nil {
			errs = append(errs, FieldError{Field: "numberOfPeople", Message: "Number of people is required for group bookings", Code: CodeRequired})
		} else {
			b.NumberOfPeople = *s.NumberOfPeople
			v.check(&errs, "numberOfPeople", b.NumberOfPeople, rule{
				fmt.Sprintf("gte=%d,lte=%d", v.rules.GroupMin, v.rules.GroupMax),
				CodeRange,
				fmt.Sprintf("Group bookings must have between %d and %d people", v.rules.GroupMin, v.rules.GroupMax),
			})
		}
	}

	v.check(&errs, "selectedPackage", b.SelectedPackage,
		rule{"required", CodeRequired, "Selected package is required"},
		rule{"min=2", CodeTooShort, "Selected package must be at least 2 characters"},
		rule{"max=255", CodeTooLong, "Selected package must be at most 255 characters"},
	)

	if len(errs) > 0 {
		return models.Booking{}, errs
	}
	return b, nil
}

// Status validates an admin-supplied status value.
func Status(status string) (models.BookingStatus, error) {
	s := models.BookingStatus(strings.TrimSpace(status))
	if s == "" {
		return "", Errors{{Field: "status", Message: "Status is required", Code: CodeRequired}}
	}
	if !s.Valid() {
		return "", Errors{{Field: "status", Message: "Status must be pending, confirmed or cancelled", Code: CodeInvalid}}
	}
	return s, nil
}
