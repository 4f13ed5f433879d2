package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/opsledger/bizcontext/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// These should never fail in normal operation
	if err := Validate.RegisterValidation("query_type", validateQueryType); err != nil {
		panic(fmt.Sprintf("failed to register query_type validator: %v", err))
	}
}

// validateQueryType validates that a string is a valid QueryType enum value
func validateQueryType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.QueryType(value) {
	case models.QueryTypeCustomerInquiry, models.QueryTypeBusinessAnalysis, models.QueryTypeWorkflowAutomation:
		return true
	default:
		return false
	}
}

// ValidateQueryType validates a QueryType string value
func ValidateQueryType(value string) error {
	switch models.QueryType(value) {
	case models.QueryTypeCustomerInquiry, models.QueryTypeBusinessAnalysis, models.QueryTypeWorkflowAutomation:
		return nil
	default:
		return fmt.Errorf("invalid query_type: %s (must be 'customer_inquiry', 'business_analysis', or 'workflow_automation')", value)
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing
// control characters
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
