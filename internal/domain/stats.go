package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

const (
	topItemsLimit     = 5
	recentOrdersLimit = 10
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodWeek, PeriodMonth:
		return Period(s), nil
	default:
		return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", s)}
	}
}

// Since returns the lower creation-time bound of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return time.Date(now.Year(), now.Month()-1, now.Day(), 0, 0, 0, 0, now.Location())
	default:
		return midnight
	}
}

type ItemStat struct {
	Name     string          `json:"name" yaml:"name"`
	Quantity int             `json:"quantity" yaml:"quantity"`
	Revenue  decimal.Decimal `json:"revenue" yaml:"revenue"`
}

type OrderSummary struct {
	ID           uuid.UUID       `json:"id" yaml:"id"`
	Number       int64           `json:"order_number" yaml:"order_number"`
	TableNumber  int             `json:"table_number" yaml:"table_number"`
	CustomerName string          `json:"customer_name" yaml:"customer_name"`
	Status       Status          `json:"status" yaml:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
}

// Stats aggregates the admin window.
type Stats struct {
	TotalOrders       int             `json:"total_orders" yaml:"total_orders"`
	CompletedOrders   int             `json:"completed_orders" yaml:"completed_orders"`
	CancelledOrders   int             `json:"cancelled_orders" yaml:"cancelled_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue" yaml:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value" yaml:"average_order_value"`
	TopItems          []ItemStat      `json:"top_items" yaml:"top_items"`
	RecentOrders      []OrderSummary  `json:"recent_orders" yaml:"recent_orders"`
}

// ComputeStats summarizes orders. Revenue counts completed orders only;
// item popularity counts every order in the window.
func ComputeStats(orders []*Order) Stats {
	stats := Stats{
		TotalOrders:       len(orders),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}

	items := make(map[string]*ItemStat)
	for _, o := range orders {
		switch o.Status {
		case StatusCompleted:
			stats.CompletedOrders++
			stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		case StatusCancelled:
			stats.CancelledOrders++
		}
		for _, it := range o.Items {
			s, ok := items[it.Name]
			if !ok {
				s = &ItemStat{Name: it.Name, Revenue: decimal.Zero}
				items[it.Name] = s
			}
			s.Quantity += it.Quantity
			s.Revenue = s.Revenue.Add(it.LineTotal)
		}
	}

	if stats.CompletedOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(stats.CompletedOrders))).Round(2)
	}

	stats.TopItems = make([]ItemStat, 0, len(items))
	for _, s := range items {
		stats.TopItems = append(stats.TopItems, *s)
	}
	sort.Slice(stats.TopItems, func(i, j int) bool {
		if stats.TopItems[i].Quantity != stats.TopItems[j].Quantity {
			return stats.TopItems[i].Quantity > stats.TopItems[j].Quantity
		}
		return stats.TopItems[i].Name < stats.TopItems[j].Name
	})
	if len(stats.TopItems) > topItemsLimit {
		stats.TopItems = stats.TopItems[:topItemsLimit]
	}

	recent := make([]*Order, len(orders))
	copy(recent, orders)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentOrdersLimit {
		recent = recent[:recentOrdersLimit]
	}
	stats.RecentOrders = make([]OrderSummary, 0, len(recent))
	for _, o := range recent {
		stats.RecentOrders = append(stats.RecentOrders, Summarize(o))
	}

	return stats
}

func Summarize(o *Order) OrderSummary {
	return OrderSummary{
		ID:           o.ID,
		Number:       o.Number,
		TableNumber:  o.TableNumber,
		CustomerName: o.CustomerName,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		CreatedAt:    o.CreatedAt,
	}
}
