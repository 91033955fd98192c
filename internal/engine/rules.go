package engine

import (
	"fmt"

	"helmet-safety-go/pkg/models"

	"github.com/samber/lo"
)

// highSeverityThreshold число нарушителей, начиная с которого (не включая) нарушение считается серьезным
const highSeverityThreshold = 2

// Counts количество объектов каждого класса на кадре
type Counts struct {
	People  int
	Helmets int
	Vests   int
}

// CountDetections считает людей, каски и жилеты. Неизвестные классы пропускаются.
func CountDetections(detections []models.Detection) Counts {
	return Counts{
		People:  countType(detections, models.ObjectPerson),
		Helmets: countType(detections, models.ObjectHelmet),
		Vests:   countType(detections, models.ObjectVest),
	}
}

func countType(detections []models.Detection, objectType models.ObjectType) int {
	return lo.CountBy(detections, func(d models.Detection) bool {
		return d.ObjectType == objectType
	})
}

// SafetyPercentage доля людей в касках. Кадр без людей считается безопасным на 100%.
func (c Counts) SafetyPercentage() float64 {
	if c.People == 0 {
		return 100
	}
	return float64(c.Helmets) / float64(c.People) * 100
}

// Violation результат срабатывания правила
type Violation struct {
	Type        models.IncidentType
	Severity    models.Severity
	Description string
}

// Rule одно правило безопасности, проверяемое по счетчикам кадра
type Rule interface {
	Type() models.IncidentType
	Evaluate(c Counts) (Violation, bool)
}

// HelmetRule каждый человек должен быть в каске
type HelmetRule struct{}

// Type тип нарушения no_helmet
func (HelmetRule) Type() models.IncidentType { return models.IncidentNoHelmet }

// Evaluate срабатывает, если людей больше, чем касок
func (r HelmetRule) Evaluate(c Counts) (Violation, bool) {
	return deficit(r.Type(), "helmet", c.People, c.Helmets)
}

// VestRule каждый человек должен быть в сигнальном жилете
type VestRule struct{}

// Type тип нарушения no_vest
func (VestRule) Type() models.IncidentType { return models.IncidentNoVest }

// Evaluate срабатывает, если людей больше, чем жилетов
func (r VestRule) Evaluate(c Counts) (Violation, bool) {
	return deficit(r.Type(), "vest", c.People, c.Vests)
}

func deficit(incidentType models.IncidentType, item string, people, equipped int) (Violation, bool) {
	if people <= equipped {
		return Violation{}, false
	}

	missing := people - equipped
	return Violation{
		Type:        incidentType,
		Severity:    severityFor(missing),
		Description: fmt.Sprintf("%d person/people without %s", missing, item),
	}, true
}

// severityFor low не назначается ни одним из текущих правил
func severityFor(missing int) models.Severity {
	if missing > highSeverityThreshold {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

// RulesFor собирает набор правил по конфигурации
func RulesFor(rules models.SafetyRules) []Rule {
	var checks []Rule
	if rules.RequireHelmet {
		checks = append(checks, HelmetRule{})
	}
	if rules.RequireVest {
		checks = append(checks, VestRule{})
	}
	return checks
}
