package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statOrder(status Status, created time.Time, lines ...OrderItem) *Order {
	o := &Order{ID: uuid.New(), Status: status, CreatedAt: created, Items: lines, ItemsLoaded: true}
	o.CalculateTotal()
	return o
}

func line(name string, price int64, qty int) OrderItem {
	p := decimal.NewFromInt(price)
	return OrderItem{ID: uuid.New(), Name: name, UnitPrice: p, Quantity: qty, LineTotal: p.Mul(decimal.NewFromInt(int64(qty)))}
}

func TestComputeStats(t *testing.T) {
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	orders := []*Order{
		statOrder(StatusCompleted, base, line("Pizza", 100, 2)),
		statOrder(StatusCompleted, base.Add(time.Hour), line("Pizza", 100, 1), line("Tea", 25, 1)),
		statOrder(StatusCancelled, base.Add(2*time.Hour), line("Soup", 80, 4)),
		statOrder(StatusPending, base.Add(3*time.Hour), line("Tea", 25, 2)),
	}

	stats := ComputeStats(orders)

	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, 2, stats.CompletedOrders)
	assert.Equal(t, 1, stats.CancelledOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(325)), stats.TotalRevenue.String())
	assert.Equal(t, "162.5", stats.AverageOrderValue.String())

	require.Len(t, stats.TopItems, 3)
	assert.Equal(t, "Soup", stats.TopItems[0].Name)
	assert.Equal(t, 4, stats.TopItems[0].Quantity)
	assert.Equal(t, "Pizza", stats.TopItems[1].Name, "ties broken by name")
	assert.Equal(t, "Tea", stats.TopItems[2].Name)
	assert.True(t, stats.TopItems[1].Revenue.Equal(decimal.NewFromInt(300)))

	require.Len(t, stats.RecentOrders, 4)
	assert.Equal(t, orders[3].ID, stats.RecentOrders[0].ID, "most recent first")
}

func TestComputeStats_Limits(t *testing.T) {
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	var orders []*Order
	for i := 0; i < 12; i++ {
		orders = append(orders, statOrder(StatusPending, base.Add(time.Duration(i)*time.Minute), line(fmt.Sprintf("Dish %02d", i), 10, i+1)))
	}

	stats := ComputeStats(orders)
	assert.Len(t, stats.TopItems, 5)
	assert.Equal(t, "Dish 11", stats.TopItems[0].Name)
	assert.Len(t, stats.RecentOrders, 10)
	assert.True(t, stats.AverageOrderValue.IsZero())
}

func TestPeriod_Since(t *testing.T) {
	now := time.Date(2026, 10, 16, 15, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), PeriodToday.Since(now))
	assert.Equal(t, time.Date(2026, 10, 9, 15, 45, 0, 0, time.UTC), PeriodWeek.Since(now))
	assert.Equal(t, time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC), PeriodMonth.Since(now))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodToday, p)

	p, err = ParsePeriod("week")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("year")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
