package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxMessageLength = 1000
)

var (
	scriptProtocolPattern = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern   = regexp.MustCompile(`(?i)on\w+=`)
	angleAndNullReplacer  = strings.NewReplacer("<", "", ">", "", "\x00", "")
)

// SanitizeLimits permite ajustar o tamanho máximo de cada tipo de campo.
type SanitizeLimits struct {
	Name    int
	Email   int
	Message int
}

var DefaultSanitizeLimits = SanitizeLimits{
	Name:    MaxNameLength,
	Email:   MaxEmailLength,
	Message: MaxMessageLength,
}

// SanitizeInput remove <, >, "javascript:", atributos on*= e bytes nulos,
// apara espaços e corta em maxLen runas (maxLen <= 0 não corta).
// Aplicar duas vezes dá o mesmo resultado que aplicar uma.
func SanitizeInput(s string, maxLen int) string {
	s = strings.ToValidUTF8(s, "")

	// repete até estabilizar: "javajavascript:script:" vira "javascript:" na primeira passada
	for {
		cleaned := angleAndNullReplacer.Replace(s)
		cleaned = scriptProtocolPattern.ReplaceAllString(cleaned, "")
		cleaned = eventHandlerPattern.ReplaceAllString(cleaned, "")
		if cleaned == s {
			break
		}
		s = cleaned
	}

	s = strings.TrimSpace(s)
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = strings.TrimSpace(string([]rune(s)[:maxLen]))
	}
	return s
}

func SanitizeName(s string) string {
	return SanitizeInput(s, MaxNameLength)
}

func SanitizeEmail(s string) string {
	return SanitizeInput(s, MaxEmailLength)
}

func SanitizeText(s string) string {
	return SanitizeInput(s, MaxMessageLength)
}
