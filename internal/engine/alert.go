package engine

import (
	"fmt"

	"helmet-safety-go/pkg/models"

	"github.com/samber/lo"
)

const amberThreshold = 80

// AlertMessage формирует текст предупреждения по отчету
func AlertMessage(report models.DecisionReport) string {
	if report.SafetyStatus != models.StatusViolation {
		if report.People == 0 {
			return "SAFE: No people detected"
		}
		return fmt.Sprintf("SAFE: All %d person/people have helmets", report.People)
	}

	// Текст выбирается по реально поднятым нарушениям, каска важнее жилета
	switch {
	case raised(report, models.IncidentNoHelmet):
		return fmt.Sprintf("DANGER: %d person/people without helmet! (%d/%d safe)",
			report.MissingHelmets(), report.Helmets, report.People)
	case raised(report, models.IncidentNoVest):
		return fmt.Sprintf("DANGER: %d person/people without vest! (%d/%d equipped)",
			report.MissingVests(), report.Vests, report.People)
	case len(report.Violations) > 0:
		return fmt.Sprintf("DANGER: %s!", report.Violations[0].Description)
	default:
		return "DANGER: safety violation"
	}
}

func raised(report models.DecisionReport, incidentType models.IncidentType) bool {
	return lo.ContainsBy(report.Violations, func(i models.SafetyIncident) bool {
		return i.IncidentType == incidentType
	})
}

// AlertColor цвет подсветки: зеленый при 100%, янтарный от 80%, иначе красный
func AlertColor(report models.DecisionReport) models.Color {
	switch {
	case report.SafetyPercentage == 100:
		return models.ColorGreen
	case report.SafetyPercentage >= amberThreshold:
		return models.ColorAmber
	default:
		return models.ColorRed
	}
}
