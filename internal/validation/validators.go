package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/smart-agenda/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("cadence_type", validateCadenceType); err != nil {
		panic(fmt.Sprintf("failed to register cadence_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("cadence_period", validateCadencePeriod); err != nil {
		panic(fmt.Sprintf("failed to register cadence_period validator: %v", err))
	}
	if err := Validate.RegisterValidation("agenda_view", validateAgendaView); err != nil {
		panic(fmt.Sprintf("failed to register agenda_view validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
}

func validateCadenceType(fl validator.FieldLevel) bool {
	return models.CadenceType(fl.Field().String()).IsValid()
}

func validateCadencePeriod(fl validator.FieldLevel) bool {
	return models.CadencePeriod(fl.Field().String()).IsValid()
}

func validateAgendaView(fl validator.FieldLevel) bool {
	return models.AgendaView(fl.Field().String()).IsValid()
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	switch models.TaskStatus(fl.Field().String()) {
	case models.TaskStatusPending, models.TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// ErrPeriodMismatch is returned for a config whose period contradicts its type
var ErrPeriodMismatch = errors.New("period does not match cadence type")

// ValidateRecurrenceConfig checks field ranges and that the period agrees
// with the type. The config is validated after defaulting its period.
func ValidateRecurrenceConfig(cfg models.RecurrenceConfig) error {
	cfg = cfg.WithDefaults()
	if err := Validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid recurrence config: %s", describe(err))
	}
	if !cfg.PeriodConsistent() {
		return fmt.Errorf("invalid recurrence config: %w (%s vs %s)", ErrPeriodMismatch, cfg.Period, cfg.Type)
	}
	return nil
}

// ValidateAgendaView validates an agenda view query value
func ValidateAgendaView(value string) error {
	if models.AgendaView(value).IsValid() {
		return nil
	}
	return fmt.Errorf("invalid view: %s (must be 'now' or 'later')", value)
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusPending, models.TaskStatusCompleted:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending' or 'completed')", value)
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// describe flattens validator errors into "field: tag" pairs
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
