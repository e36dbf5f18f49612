// Package alerts формирует и публикует события о прорыве.
package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"lab-anomaly-service/internal/analytics"
	"lab-anomaly-service/internal/models"
)

// Типы событий
const (
	TypeWarning = "warning"
	TypeError   = "error"
)

const titlePrefix = "Upside Down breach detected!"

// Event событие, уходящее в брокер
type Event struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	AlertType         string    `json:"alert_type"`
	SourceID          string    `json:"source_id"`
	Location          string    `json:"location"`
	Level             int       `json:"breach_level"`
	Label             string    `json:"breach_label"`
	TriggeredChannels []string  `json:"triggered_channels"`
	Tags              []string  `json:"tags"`
	Explanation       string    `json:"explanation,omitempty"`
	VoiceClip         string    `json:"voice_clip,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// BuildAlert собирает событие по результату станции
func BuildAlert(res models.StationResult) Event {
	det := res.Detection
	meta := det.Metadata

	alertType := TypeWarning
	if len(det.TriggeredChannels) >= 3 {
		alertType = TypeError
	}

	tags := []string{
		"source_id:" + orUnknown(meta.SourceID),
		"location:" + orUnknown(meta.Location),
		"alert_type:anomaly",
	}
	for _, ch := range det.TriggeredChannels {
		tags = append(tags, "triggered_channel:"+ch)
	}

	return Event{
		ID:                uuid.NewString(),
		Title:             fmt.Sprintf("%s Level %d/%d -- %s", titlePrefix, res.Breach.Level, analytics.MaxBreachLevel, res.Breach.Label),
		Message:           buildMessage(det),
		AlertType:         alertType,
		SourceID:          meta.SourceID,
		Location:          meta.Location,
		Level:             res.Breach.Level,
		Label:             res.Breach.Label,
		TriggeredChannels: append([]string(nil), det.TriggeredChannels...),
		Tags:              tags,
		CreatedAt:         time.Now().UTC(),
	}
}

func buildMessage(det models.DetectionResult) string {
	var b strings.Builder
	b.WriteString("## Anomaly Detection Alert\n\n")
	fmt.Fprintf(&b, "**Triggered Channels:** %s\n\n", strings.Join(det.TriggeredChannels, ", "))
	b.WriteString("### Channel Details:\n")
	for _, name := range det.TriggeredChannels {
		d := det.Channels[name]
		fmt.Fprintf(&b, "- **%s**: %s %s (%s)\n", name,
			strconv.FormatFloat(d.Value, 'f', -1, 64), d.Unit, strings.Join(d.Reasons, ", "))
	}

	meta := det.Metadata
	ts := "unknown"
	if !meta.Timestamp.IsZero() {
		ts = meta.Timestamp.UTC().Format(time.RFC3339)
	}
	b.WriteString("\n### Metadata:\n")
	fmt.Fprintf(&b, "- Source ID: %s\n", orUnknown(meta.SourceID))
	fmt.Fprintf(&b, "- Location: %s\n", orUnknown(meta.Location))
	fmt.Fprintf(&b, "- Timestamp: %s\n", ts)
	fmt.Fprintf(&b, "- Detection Methods: %s", strings.Join(meta.MethodsUsed, ", "))
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
