package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", &domain.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", s)}
	}
}

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Report is the exported admin summary for one period.
type Report struct {
	Period      domain.Period     `json:"period" yaml:"period"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Stats       *domain.Stats     `json:"stats" yaml:"stats"`
	TopItems    []domain.ItemStat `json:"top_items" yaml:"top_items"`
}

func Build(view *domain.View, now time.Time) Report {
	stats := view.Stats
	if stats == nil {
		computed := domain.ComputeStats(view.Orders)
		stats = &computed
	}
	return Report{
		Period:      view.Period,
		GeneratedAt: now,
		Stats:       stats,
		TopItems:    stats.TopItems,
	}
}

func Encode(r Report, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode json report: %w", err)
		}
		return out, nil
	}
}
