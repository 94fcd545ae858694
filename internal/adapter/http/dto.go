package http

import (
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   int64               `json:"order_number"`
	TableNumber   int                 `json:"table_number"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Status        domain.Status       `json:"status"`
	StatusLabel   string              `json:"status_label"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Items         []OrderItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type ViewResponse struct {
	Role     domain.ViewRole `json:"role"`
	Period   domain.Period   `json:"period,omitempty"`
	Version  uint64          `json:"version"`
	SyncedAt time.Time       `json:"synced_at"`
	Orders   []OrderResponse `json:"orders"`
	Stats    *domain.Stats   `json:"stats,omitempty"`
}

type TrackingResponse struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber int64               `json:"order_number"`
	TableNumber int                 `json:"table_number"`
	Status      domain.Status       `json:"status"`
	Label       string              `json:"label"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []OrderItemResponse `json:"items"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type HistoryEntry struct {
	Status    domain.Status `json:"status"`
	ChangedBy string        `json:"changed_by"`
	ChangedAt time.Time     `json:"changed_at"`
}

type CartLineResponse struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type CustomerResponse struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SessionResponse struct {
	ID          uuid.UUID          `json:"id"`
	TableNumber int                `json:"table_number"`
	Customer    *CustomerResponse  `json:"customer,omitempty"`
	Cart        []CartLineResponse `json:"cart"`
	ItemCount   int                `json:"item_count"`
	Total       decimal.Decimal    `json:"total"`
	Orders      []uuid.UUID        `json:"orders"`
}

type MenuItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

type CategoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
}

type MenuResponse struct {
	Categories []CategoryResponse `json:"categories"`
	Items      []MenuItemResponse `json:"items"`
}

type StatusResponse struct {
	OrderID   uuid.UUID     `json:"order_id"`
	OldStatus domain.Status `json:"old_status"`
	Status    domain.Status `json:"status"`
	Applied   bool          `json:"applied"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toItems(items []domain.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItemResponse{
			ID:         it.ID,
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			LineTotal:  it.LineTotal,
		})
	}
	return out
}

func toOrder(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		TableNumber:   o.TableNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Status:        o.Status,
		StatusLabel:   o.Status.Label(),
		TotalAmount:   o.TotalAmount,
		Items:         toItems(o.Items),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toView(v *domain.View) ViewResponse {
	orders := make([]OrderResponse, 0, len(v.Orders))
	for _, o := range v.Orders {
		orders = append(orders, toOrder(o))
	}
	return ViewResponse{
		Role:     v.Role,
		Period:   v.Period,
		Version:  v.Version,
		SyncedAt: v.SyncedAt,
		Orders:   orders,
		Stats:    v.Stats,
	}
}

func toTracking(t *interfaces.TrackingOrderResponse) TrackingResponse {
	return TrackingResponse{
		OrderID:     t.OrderID,
		OrderNumber: t.OrderNumber,
		TableNumber: t.TableNumber,
		Status:      t.Status,
		Label:       t.Label,
		TotalAmount: t.TotalAmount,
		Items:       toItems(t.Items),
		UpdatedAt:   t.UpdatedAt,
	}
}

func toSession(s *domain.Session) SessionResponse {
	lines := s.Cart.Lines()
	cart := make([]CartLineResponse, 0, len(lines))
	for _, l := range lines {
		cart = append(cart, CartLineResponse{
			MenuItemID: l.Item.ID,
			Name:       l.Item.Name,
			UnitPrice:  l.Item.Price,
			Quantity:   l.Quantity,
			LineTotal:  l.Total(),
		})
	}
	orders := s.Orders
	if orders == nil {
		orders = []uuid.UUID{}
	}
	var customer *CustomerResponse
	if s.Customer != nil {
		customer = &CustomerResponse{Name: s.Customer.Name, Phone: s.Customer.Phone}
	}
	return SessionResponse{
		ID:          s.ID,
		TableNumber: s.TableNumber,
		Customer:    customer,
		Cart:        cart,
		ItemCount:   s.Cart.ItemCount(),
		Total:       s.Cart.Total(),
		Orders:      orders,
	}
}

func toMenu(m *interfaces.MenuResponse) MenuResponse {
	resp := MenuResponse{
		Categories: make([]CategoryResponse, 0, len(m.Categories)),
		Items:      make([]MenuItemResponse, 0, len(m.Items)),
	}
	for _, c := range m.Categories {
		resp.Categories = append(resp.Categories, CategoryResponse{ID: c.ID, Name: c.Name, DisplayOrder: c.DisplayOrder})
	}
	for _, it := range m.Items {
		resp.Items = append(resp.Items, MenuItemResponse{
			ID:          it.ID,
			CategoryID:  it.CategoryID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			ImageURL:    it.ImageURL,
		})
	}
	return resp
}
