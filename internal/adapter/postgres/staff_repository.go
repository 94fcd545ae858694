package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/jackc/pgx/v5"
)

type staffRepository struct {
	db DB
}

func NewStaffRepository(db DB) interfaces.StaffRepository {
	return &staffRepository{db: db}
}

// RoleByEmail matches the email case-insensitively. Unknown emails resolve
// to RoleNone without an error.
func (r *staffRepository) RoleByEmail(ctx context.Context, email string) (domain.Role, error) {
	var role string
	err := r.db.QueryRow(ctx, `SELECT role FROM staff_users WHERE lower(email) = lower($1)`, email).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoleNone, nil
	}
	if err != nil {
		return domain.RoleNone, fmt.Errorf("failed to resolve staff role: %w", err)
	}
	return domain.ParseRole(role), nil
}
