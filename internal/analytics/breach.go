package analytics

import "lab-anomaly-service/internal/models"

// MaxBreachLevel верхняя граница уровня прорыва
const MaxBreachLevel = 10

// criticalChannels каналы, добавляющие +1 к уровню при срабатывании
var criticalChannels = map[string]bool{
	"temperature": true,
	"gas":         true,
}

var breachLabels = [MaxBreachLevel + 1]string{
	"All clear",
	"Minor fluctuation",
	"Elevated",
	"Unusual activity",
	"Gate resonance",
	"Dimensional stress",
	"Portal instability",
	"Breach imminent",
	"Upside Down contact",
	"Full breach",
	"Critical — evacuate",
}

// IsCritical сообщает, относится ли канал к критичным
func IsCritical(channel string) bool {
	return criticalChannels[channel]
}

// BreachLabel возвращает подпись уровня
func BreachLabel(level int) string {
	if level < 0 || level > MaxBreachLevel {
		return "Unknown"
	}
	return breachLabels[level]
}

// ComputeBreach вычисляет уровень прорыва по результату детекции. Чистая функция.
func ComputeBreach(result models.DetectionResult) models.BreachAssessment {
	n := len(result.TriggeredChannels)

	level := baseLevel(n)
	for _, ch := range result.TriggeredChannels {
		if criticalChannels[ch] {
			level++
		}
	}
	if level > MaxBreachLevel {
		level = MaxBreachLevel
	}
	if level < 0 {
		level = 0
	}

	triggered := make([]string, n)
	copy(triggered, result.TriggeredChannels)

	return models.BreachAssessment{
		Level:             level,
		Label:             BreachLabel(level),
		TriggeredChannels: triggered,
		Count:             n,
		IsMultiChannel:    n >= 2,
		Recommendation:    recommendation(level),
	}
}

func baseLevel(n int) int {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 2
	case n == 2:
		return 4
	case n == 3:
		return 6
	default:
		return 8
	}
}

func recommendation(level int) string {
	switch {
	case level == 0:
		return "Continue standard monitoring."
	case level <= 3:
		return "Increase scan frequency. Watch for additional triggers."
	case level <= 6:
		return "Alert Hawkins Lab security. Prepare containment protocols."
	case level <= 8:
		return "Initiate lockdown procedures. Contact Eleven."
	default:
		return "EVACUATE. Full Upside Down breach protocol."
	}
}
