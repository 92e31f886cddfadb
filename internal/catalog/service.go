package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/events"
)

// Storage defines the persistence operations the catalog service needs.
type Storage interface {
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	List(ctx context.Context, params ListParams) ([]Product, int64, error)
	Create(ctx context.Context, in Input) (Product, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (Product, error)
}

// Service orchestrates catalog queries, caching and stock events. It also
// acts as the stock snapshot provider for register carts.
type Service struct {
	Store        Storage
	Cache        *Cache
	Events       *events.Bus
	Logger       *zerolog.Logger
	DefaultLimit int
	MaxLimit     int
}

func (s *Service) limits(params ListParams) ListParams {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = s.DefaultLimit
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if s.MaxLimit > 0 && params.Limit > s.MaxLimit {
		params.Limit = s.MaxLimit
	}
	return params
}

type listPage struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
}

// List returns a page of products, served from cache when possible.
func (s *Service) List(ctx context.Context, params ListParams) ([]Product, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("catalog service not configured")
	}
	params = s.limits(params)
	key := s.Cache.ListKey(ctx, params)
	var cached listPage
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached.Products, cached.Total, nil
	}
	products, total, err := s.Store.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if err := s.Cache.SetJSON(ctx, key, listPage{Products: products, Total: total}); err != nil && s.Logger != nil {
		s.Logger.Warn().Err(err).Msg("cache product listing")
	}
	return products, total, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	return s.Store.Get(ctx, id)
}

// Snapshot resolves the current stock snapshot used by cart operations.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (cart.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return cart.Product{}, err
	}
	return p.Snapshot(), nil
}

// Create inserts a product and invalidates cached listings.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	p, err := s.Store.Create(ctx, in)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Update replaces a product and invalidates cached listings.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	p, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Delete removes a product and invalidates cached listings.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// AdjustStock applies a stock delta and emits a low-stock event when the
// product crosses its threshold. Event emission is best effort.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	p, err := s.Store.AdjustStock(ctx, id, delta)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	if p.LowOnStock() {
		s.emitLowStock(ctx, p)
	}
	return p, nil
}

func (s *Service) emitLowStock(ctx context.Context, p Product) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"productId":     p.ID.String(),
		"name":          p.Name,
		"stockQuantity": p.StockQuantity,
		"threshold":     p.LowStockThreshold,
	}
	if _, err := s.Events.Emit(ctx, events.TopicStockLow, p.ID, payload); err != nil && s.Logger != nil {
		s.Logger.Warn().Err(err).Str("product_id", p.ID.String()).Msg("emit low stock event")
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil && s.Logger != nil {
		s.Logger.Warn().Err(err).Msg("invalidate catalog cache")
	}
}
