package forum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseID rejects identifiers that are not UUIDs and returns the canonical lowercase
// hyphenated form the stores key on. Braced, urn and unhyphenated inputs are accepted.
func ParseID(entity, id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", InvalidIdentifierf("Invalid %s ID", entity)
	}
	return u.String(), nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Validationf("invalid input: %v", err)
	}
	return Validationf("%s", describeField(verrs[0]))
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return "email must be a valid email address"
	case "e164":
		return "phone must be in E.164 format"
	}
	return fmt.Sprintf("%s is invalid", field)
}

// normalizeTags trims, lowercases and de-duplicates while keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Page clamps skip/limit to the ranges the listing endpoints accept.
func Page(skip, limit, def int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = def
	}
	if limit > 100 {
		limit = 100
	}
	return skip, limit
}
