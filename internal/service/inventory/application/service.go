// internal/service/inventory/application/service.go
package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/inventory/domain"
)

// InventoryApplicationService 在 Store 外面加上链路、日志和指标
type InventoryApplicationService struct {
	store  domain.Store
	tracer trace.Tracer
}

func NewInventoryApplicationService(store domain.Store, tracer trace.Tracer) *InventoryApplicationService {
	return &InventoryApplicationService{store: store, tracer: tracer}
}

func (s *InventoryApplicationService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.ListProducts")
	defer span.End()

	products, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("inventory.product_count", len(products)))
	logger.Ctx(ctx).Debug().Int("count", len(products)).Msg("listed products")
	return products, nil
}

func (s *InventoryApplicationService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))

	p, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		logger.Ctx(ctx).Warn().Err(err).Int64("product_id", id).Msg("product lookup failed")
		return domain.Product{}, err
	}
	return p, nil
}

// CheckAvailability 结果只是参考，真正的判断在 Reserve 里
func (s *InventoryApplicationService) CheckAvailability(ctx context.Context, id int64, quantity int) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.CheckAvailability")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id), attribute.Int("product.quantity", quantity))

	ok, err := s.store.CheckAvailability(ctx, id, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Bool("inventory.available", ok))
	logger.Ctx(ctx).Debug().Int64("product_id", id).Int("quantity", quantity).Bool("available", ok).Msg("availability checked")
	return ok, nil
}

func (s *InventoryApplicationService) Reserve(ctx context.Context, id int64, quantity int) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id), attribute.Int("product.quantity", quantity))

	err := s.store.Reserve(ctx, id, quantity)
	metrics.ReservationsTotal.WithLabelValues(reservationResult(err)).Inc()

	log := logger.Ctx(ctx)
	switch {
	case err == nil:
		span.AddEvent("stock reserved")
		log.Info().Int64("product_id", id).Int("quantity", quantity).Msg("reserved stock")
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInvalidQuantity):
		span.AddEvent("reservation rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
		log.Warn().Int64("product_id", id).Int("quantity", quantity).Str("reason", err.Error()).Msg("reservation rejected")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Int64("product_id", id).Msg("reservation failed")
	}
	return err
}

func reservationResult(err error) string {
	switch {
	case err == nil:
		return "reserved"
	case errors.Is(err, domain.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid"
	default:
		return "error"
	}
}
