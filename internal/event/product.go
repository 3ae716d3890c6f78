package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/tuanvumaihuynh/product-tracker/internal/model"
)

const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
)

// Product is the product snapshot carried by created and updated events.
type Product struct {
	ProductID        int64    `json:"productId"`
	ProductName      string   `json:"productName"`
	ProductOwnerName string   `json:"productOwnerName"`
	Developers       []string `json:"developers"`
	ScrumMasterName  string   `json:"scrumMasterName"`
	StartDate        string   `json:"startDate"`
	Methodology      string   `json:"methodology"`
	Location         string   `json:"location"`
}

func NewProduct(p model.Product) Product {
	developers := p.Developers
	if developers == nil {
		developers = []string{}
	}

	return Product{
		ProductID:        p.ID,
		ProductName:      p.Name,
		ProductOwnerName: p.OwnerName,
		Developers:       developers,
		ScrumMasterName:  p.ScrumMasterName,
		StartDate:        p.StartDate.Format(time.DateOnly),
		Methodology:      string(p.Methodology),
		Location:         p.Location,
	}
}

type ProductCreatedEvent struct {
	Product
	OccurredAt time.Time `json:"occurredAt"`
}

type ProductUpdatedEvent struct {
	Product
	// ChangedFields lists the JSON names of the fields present in the update.
	ChangedFields []string  `json:"changedFields"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type ProductDeletedEvent struct {
	ProductID  int64     `json:"productId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (s *Service) handleProductCreatedEvent(ctx context.Context, ev ProductCreatedEvent) error {
	s.logger.InfoContext(ctx, "handling product created event",
		slog.Int64("product_id", ev.ProductID),
		slog.String("product_name", ev.ProductName),
	)
	return nil
}

func (s *Service) handleProductUpdatedEvent(ctx context.Context, ev ProductUpdatedEvent) error {
	s.logger.InfoContext(ctx, "handling product updated event",
		slog.Int64("product_id", ev.ProductID),
		slog.Any("changed_fields", ev.ChangedFields),
	)
	return nil
}

func (s *Service) handleProductDeletedEvent(ctx context.Context, ev ProductDeletedEvent) error {
	s.logger.InfoContext(ctx, "handling product deleted event", slog.Int64("product_id", ev.ProductID))
	return nil
}
