package usecase

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

var (
	simpleEmailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneDigitsRe  = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	phoneStripRepl = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "", ".", "")
)

// profileInput is the validated view of a CandidateProfile.
type profileInput struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,simple_email"`
	Phone string `validate:"required,phone"`
}

// field order and messages reported back to the candidate.
var profileFields = []struct {
	field   string
	key     string
	message string
}{
	{"Name", "name", "Full name is required (minimum 2 characters)"},
	{"Email", "email", "Valid email address is required"},
	{"Phone", "phone", "Valid phone number is required (8-15 digits)"},
}

// ProfileValidator checks the required candidate fields before an interview starts.
type ProfileValidator struct {
	vld *validator.Validate
}

// NewProfileValidator registers the phone and simple_email rules.
func NewProfileValidator() *ProfileValidator {
	v := validator.New()
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return simpleEmailRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneDigitsRe.MatchString(NormalizePhone(fl.Field().String()))
	})
	return &ProfileValidator{vld: v}
}

// NormalizePhone strips spaces, dashes, parentheses and dots.
func NormalizePhone(p string) string {
	return phoneStripRepl.Replace(strings.TrimSpace(p))
}

// Validate returns the missing field keys and their messages, both empty when p is valid.
func (pv *ProfileValidator) Validate(p domain.CandidateProfile) (missing []string, messages []string) {
	in := profileInput{
		Name:  strings.TrimSpace(p.Name),
		Email: strings.TrimSpace(p.Email),
		Phone: strings.TrimSpace(p.Phone),
	}
	missing = []string{}
	messages = []string{}
	err := pv.vld.Struct(in)
	if err == nil {
		return missing, messages
	}
	failed := map[string]bool{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			failed[fe.StructField()] = true
		}
	}
	for _, f := range profileFields {
		if failed[f.field] {
			missing = append(missing, f.key)
			messages = append(messages, f.message)
		}
	}
	return missing, messages
}
