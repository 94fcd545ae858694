package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	ImageURL    *string
	IsAvailable bool
}

type Category struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int
}

type StaffUser struct {
	Email string
	Role  Role
}

// MenuQuery narrows the menu listing.
type MenuQuery struct {
	CategoryID *uuid.UUID
	Search     string
}
