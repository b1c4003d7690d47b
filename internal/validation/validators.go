package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/tagtalk/tagtalk/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("tag", validateTagFormat); err != nil {
		panic(fmt.Sprintf("failed to register tag validator: %v", err))
	}
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
}

// validateTagFormat validates that a string matches the canonical tag format
func validateTagFormat(fl validator.FieldLevel) bool {
	return models.ValidTag(fl.Field().String())
}

// validatePriority validates that a string is a valid Priority enum value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	default:
		return false
	}
}

// SanitizeText trims whitespace and removes control characters (except newline and tab)
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTag normalizes a single tag candidate and checks it against the
// canonical format. Returns the normalized tag or an error describing the
// violation.
func ValidateTag(raw string) (string, error) {
	tag := models.NormalizeTag(raw)
	if tag == "" {
		return "", fmt.Errorf("tag cannot be empty")
	}
	if len(tag) > models.MaxTagLength {
		return "", fmt.Errorf("tag must be 1-50 characters")
	}
	if !models.ValidTag(tag) {
		return "", fmt.Errorf("tags can only contain lowercase letters, numbers, and hyphens")
	}
	return tag, nil
}

// ValidateTags normalizes and validates a list of tag candidates, splitting
// them into valid (normalized, deduplicated, input order preserved) and
// invalid (original spelling) groups.
func ValidateTags(raw []string) (valid []string, invalid []string) {
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		tag, err := ValidateTag(r)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		valid = append(valid, tag)
	}
	return valid, invalid
}

// ValidateTagCount enforces the per-task tag limit
func ValidateTagCount(tags []string) error {
	if len(tags) > models.MaxTagsPerTask {
		return fmt.Errorf("maximum %d tags allowed per task, got %d", models.MaxTagsPerTask, len(tags))
	}
	return nil
}
