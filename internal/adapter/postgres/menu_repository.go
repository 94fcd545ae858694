package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
)

type menuRepository struct {
	db DB
}

func NewMenuRepository(db DB) interfaces.MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, display_order FROM categories ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

func (r *menuRepository) ListAvailableItems(ctx context.Context, q domain.MenuQuery) ([]*domain.MenuItem, error) {
	query := `
		SELECT m.id, m.name, m.description, m.price, m.category_id, m.image_url, m.is_available
		FROM menu_items m
		JOIN categories c ON c.id = m.category_id
		WHERE m.is_available
		  AND ($1::uuid IS NULL OR m.category_id = $1::uuid)
		  AND ($2::text = '' OR m.name ILIKE '%' || $2::text || '%' OR m.description ILIKE '%' || $2::text || '%')
		ORDER BY c.display_order, m.name
	`
	var category *string
	if q.CategoryID != nil {
		s := q.CategoryID.String()
		category = &s
	}

	rows, err := r.db.Query(ctx, query, category, q.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	var items []*domain.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindItems returns the current rows for ids, including unavailable ones so
// the caller can decide how to treat them.
func (r *menuRepository) FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.MenuItem, error) {
	query := `
		SELECT id, name, description, price, category_id, image_url, is_available
		FROM menu_items
		WHERE id = ANY($1::uuid[])
	`
	rows, err := r.db.Query(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find menu items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID]*domain.MenuItem, len(ids))
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items[item.ID] = item
	}
	return items, rows.Err()
}

func scanMenuItem(row Row) (*domain.MenuItem, error) {
	var m domain.MenuItem
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.CategoryID, &m.ImageURL, &m.IsAvailable); err != nil {
		return nil, fmt.Errorf("failed to scan menu item: %w", err)
	}
	return &m, nil
}
