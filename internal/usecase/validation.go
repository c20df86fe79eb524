package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

const (
	MinNameLength    = 2
	MinMessageLength = 10
)

var (
	emailPattern        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	spanishPhonePattern = regexp.MustCompile(`^(?:\+34|0034|34)?[6-9]\d{8}$`)
	phoneSeparators     = strings.NewReplacer(" ", "", "-", "")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidEmail só verifica o formato local@dominio.tld.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidSpanishPhone aceita +34/0034/34 opcional seguido de 9 dígitos começando em 6-9.
func IsValidSpanishPhone(phone string) bool {
	return spanishPhonePattern.MatchString(phoneSeparators.Replace(phone))
}

// ValidateLeadInput espera o input já sanitizado.
func ValidateLeadInput(input SubmitLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if utf8.RuneCountInString(input.Name) < MinNameLength {
		errors = append(errors, ValidationError{"name", fmt.Sprintf("must have at least %d characters", MinNameLength)})
	}

	if strings.TrimSpace(input.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if !IsValidEmail(input.Email) {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	if input.Phone != "" && !IsValidSpanishPhone(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid Spanish phone number"})
	}

	if input.Message != "" && utf8.RuneCountInString(input.Message) < MinMessageLength {
		errors = append(errors, ValidationError{"message", fmt.Sprintf("must have at least %d characters", MinMessageLength)})
	}

	if input.Persona != "" && !entity.Persona(input.Persona).IsValid() {
		errors = append(errors, ValidationError{"persona", "must be owner, tenant or company"})
	}

	return errors
}
