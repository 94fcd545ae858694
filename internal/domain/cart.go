package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var phoneRegex = regexp.MustCompile(`^\d{10}$`)

// Customer is the identity captured once per table session.
type Customer struct {
	Name  string
	Phone string
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "customer_name", Message: "customer name is required"}
	}
	if !phoneRegex.MatchString(c.Phone) {
		return &ValidationError{Field: "customer_phone", Message: "phone number must be exactly 10 digits"}
	}
	return nil
}

type CartLine struct {
	Item     MenuItem
	Quantity int
}

func (l CartLine) Total() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds a session's pending selection. Lines keep insertion order and
// never carry a quantity below 1.
type Cart struct {
	lines []CartLine
}

func (c *Cart) AddItem(item MenuItem) {
	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{Item: item, Quantity: 1})
}

// UpdateQuantity applies delta to the line for itemID and drops the line
// once its quantity reaches zero. Unknown items are ignored.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, delta int) {
	for i := range c.lines {
		if c.lines[i].Item.ID != itemID {
			continue
		}
		c.lines[i].Quantity += delta
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return
	}
}

// Clone returns an independent copy of the cart.
func (c *Cart) Clone() Cart {
	return Cart{lines: c.Lines()}
}

// Remove takes the given lines' quantities out of the cart. Quantities added
// since those lines were read stay in place.
func (c *Cart) Remove(lines []CartLine) {
	for _, l := range lines {
		c.UpdateQuantity(l.Item.ID, -l.Quantity)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
