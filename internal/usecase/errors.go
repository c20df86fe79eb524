package usecase

import (
	"errors"
	"time"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeDatabase          = "DATABASE_ERROR"
	CodeLeadNotFound      = "LEAD_NOT_FOUND"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeNothingToExport   = "NOTHING_TO_EXPORT"
	CodeSecurityBackend   = "SECURITY_BACKEND_ERROR"
)

// DomainError é um erro que o usuário pode corrigir (400/404/409/422/429).
type DomainError struct {
	Code    string
	Message string
	Fields  []ValidationError
	// RetryAfter só vale para RATE_LIMITED.
	RetryAfter time.Duration
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError é falha de infraestrutura; a mensagem para o usuário é genérica.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode devolve o código de um DomainError/TechnicalError, ou "" se não for nenhum dos dois.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
