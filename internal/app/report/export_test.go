package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleView() *domain.View {
	price := decimal.NewFromInt(150)
	order := &domain.Order{
		ID:          uuid.New(),
		Number:      7,
		Status:      domain.StatusCompleted,
		TotalAmount: price,
		CreatedAt:   time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
		Items:       []domain.OrderItem{{ID: uuid.New(), Name: "Pizza", UnitPrice: price, Quantity: 1, LineTotal: price}},
	}
	stats := domain.ComputeStats([]*domain.Order{order})
	return &domain.View{Role: domain.ViewAdmin, Orders: []*domain.Order{order}, Stats: &stats, Period: domain.PeriodToday}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	assert.Equal(t, "application/yaml", f.ContentType())

	_, err = ParseFormat("csv")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestEncode(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	r := Build(sampleView(), now)

	t.Run("json", func(t *testing.T) {
		out, err := Encode(r, FormatJSON)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Equal(t, "today", decoded["period"])
		stats := decoded["stats"].(map[string]interface{})
		assert.Equal(t, "150", stats["total_revenue"])
		assert.Len(t, decoded["top_items"], 1)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := Encode(r, FormatYAML)
		require.NoError(t, err)

		var decoded struct {
			Period string `yaml:"period"`
			Stats  struct {
				CompletedOrders int    `yaml:"completed_orders"`
				TotalRevenue    string `yaml:"total_revenue"`
			} `yaml:"stats"`
		}
		require.NoError(t, yaml.Unmarshal(out, &decoded))
		assert.Equal(t, "today", decoded.Period)
		assert.Equal(t, 1, decoded.Stats.CompletedOrders)
		assert.Equal(t, "150", decoded.Stats.TotalRevenue)
	})
}

func TestBuild_ComputesMissingStats(t *testing.T) {
	v := sampleView()
	v.Stats = nil

	r := Build(v, time.Now())
	require.NotNil(t, r.Stats)
	assert.Equal(t, 1, r.Stats.CompletedOrders)
}
