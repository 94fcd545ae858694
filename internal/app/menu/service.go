package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 10 * time.Second

// Service serves the read-only menu. Identical concurrent queries share one
// database round trip.
type Service struct {
	repo   interfaces.MenuRepository
	logger logger.Logger
	group  singleflight.Group
}

func NewService(repo interfaces.MenuRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Menu loads categories and available items. The shared load runs detached
// from any single caller, so one caller going away does not fail the others.
func (s *Service) Menu(ctx context.Context, q domain.MenuQuery) (*interfaces.MenuResponse, error) {
	ch := s.group.DoChan(queryKey(q), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		categories, err := s.repo.ListCategories(lctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}
		items, err := s.repo.ListAvailableItems(lctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list menu items: %w", err)
		}
		return &interfaces.MenuResponse{Categories: categories, Items: items}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		s.logger.Error("menu_load_failed", "Failed to load menu", logger.RequestID(ctx), nil, res.Err)
		return nil, &domain.PersistenceError{Op: "load_menu", Err: res.Err}
	}
	if res.Shared {
		s.logger.Debug("menu_shared", "Menu query served from a concurrent call", logger.RequestID(ctx), nil)
	}
	return res.Val.(*interfaces.MenuResponse), nil
}

func queryKey(q domain.MenuQuery) string {
	category := ""
	if q.CategoryID != nil {
		category = q.CategoryID.String()
	}
	return category + "|" + q.Search
}
