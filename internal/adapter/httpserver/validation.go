package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

const (
	maxJSONBody    = 1 << 20
	maxAnswerRunes = 10000
	maxSearchRunes = 200
)

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type profileRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Email string `json:"email" validate:"max=320"`
	Phone string `json:"phone" validate:"max=40"`
}

type answerRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

type resumeDecisionRequest struct {
	Resume *bool `json:"resume" validate:"required"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New(validator.WithRequiredStructEnabled())
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		})
	})
	return vld
}

// decodeJSON reads a bounded JSON body into dst and validates its tags. The
// returned error carries ErrInvalidArgument; details lists failing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) ([]ValidationError, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		details := make([]ValidationError, 0, len(ve))
		for _, fe := range ve {
			details = append(details, ValidationError{
				Field:   fe.Field(),
				Code:    strings.ToUpper(fe.Tag()),
				Message: fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()),
			})
		}
		return details, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}

// SanitizeString drops NUL bytes and invalid UTF-8 and caps the length in runes.
func SanitizeString(input string, maxRunes int) string {
	input = strings.ReplaceAll(input, "\x00", "")
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	if utf8.RuneCountInString(input) > maxRunes {
		input = string([]rune(input)[:maxRunes])
	}
	return input
}
