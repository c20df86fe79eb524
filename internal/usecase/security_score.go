package usecase

import "github.com/xavierca1/gestion-leads/internal/entity"

type SecurityLevel string

const (
	SecurityExcellent SecurityLevel = "excellent"
	SecurityGood      SecurityLevel = "good"
	SecurityModerate  SecurityLevel = "moderate"
	SecurityPoor      SecurityLevel = "poor"
	SecurityCritical  SecurityLevel = "critical"

	maxSecurityScore = 100
)

var severityPenalty = map[entity.Severity]int{
	entity.SeverityCritical: 25,
	entity.SeverityHigh:     15,
	entity.SeverityMedium:   8,
	entity.SeverityLow:      3,
}

var levelDescriptions = map[SecurityLevel]string{
	SecurityExcellent: "Sin actividad sospechosa relevante. El sistema está bien protegido.",
	SecurityGood:      "Actividad sospechosa puntual. Conviene revisar los eventos recientes.",
	SecurityModerate:  "Actividad sospechosa significativa. Revisa las recomendaciones.",
	SecurityPoor:      "Riesgo elevado. Se requiere intervención.",
	SecurityCritical:  "Riesgo crítico. Actúa de inmediato.",
}

// SecurityScore é só um agregado para o painel, não é um controle de segurança.
type SecurityScore struct {
	Score       int           `json:"score"`
	Level       SecurityLevel `json:"level"`
	Description string        `json:"description"`
}

type SeveritySummary struct {
	Low      int                         `json:"low"`
	Medium   int                         `json:"medium"`
	High     int                         `json:"high"`
	Critical int                         `json:"critical"`
	Alerts   []entity.SuspiciousActivity `json:"alerts,omitempty"`
}

func (s SeveritySummary) Total() int {
	return s.Low + s.Medium + s.High + s.Critical
}

// CalculateSecurityScore parte de 100 e desconta por severidade, sem passar de 0.
// Severidades desconhecidas não descontam.
func CalculateSecurityScore(activities []entity.SuspiciousActivity) SecurityScore {
	score := maxSecurityScore
	for _, a := range activities {
		score -= severityPenalty[a.Severity]
	}
	if score < 0 {
		score = 0
	}

	level := levelFor(score)
	return SecurityScore{
		Score:       score,
		Level:       level,
		Description: levelDescriptions[level],
	}
}

func levelFor(score int) SecurityLevel {
	switch {
	case score >= 90:
		return SecurityExcellent
	case score >= 75:
		return SecurityGood
	case score >= 50:
		return SecurityModerate
	case score >= 25:
		return SecurityPoor
	default:
		return SecurityCritical
	}
}

// ClassifyActivities conta por severidade e separa os high/critical.
func ClassifyActivities(activities []entity.SuspiciousActivity) SeveritySummary {
	var s SeveritySummary
	for _, a := range activities {
		switch a.Severity {
		case entity.SeverityLow:
			s.Low++
		case entity.SeverityMedium:
			s.Medium++
		case entity.SeverityHigh:
			s.High++
		case entity.SeverityCritical:
			s.Critical++
		}
		if a.Severity.IsAlert() {
			s.Alerts = append(s.Alerts, a)
		}
	}
	return s
}
