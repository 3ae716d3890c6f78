package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tuanvumaihuynh/product-tracker/internal/apperr"
	"github.com/tuanvumaihuynh/product-tracker/internal/event"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/cache"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
	"github.com/tuanvumaihuynh/product-tracker/pkg/outbox"
	"github.com/tuanvumaihuynh/product-tracker/pkg/zerror"
)

type ListProductsParams struct {
	ScrumMaster string
	Developer   string
}

type CreateProductParams struct {
	Name            string
	OwnerName       string
	Developers      []string
	ScrumMasterName string
	StartDate       time.Time
	Methodology     model.Methodology
	Location        string
}

// UpdateProductParams holds the fields to change; nil fields are left as they are.
type UpdateProductParams struct {
	Name            *string
	OwnerName       *string
	Developers      *[]string
	ScrumMasterName *string
	StartDate       *time.Time
	Methodology     *model.Methodology
	Location        *string
}

type ProductService interface {
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type ProductServiceOption func(*productService)

// WithIDAllocator replaces the default MaxPlusOneAllocator.
func WithIDAllocator(allocator IDAllocator) ProductServiceOption {
	return func(s *productService) {
		s.idAllocator = allocator
	}
}

// WithCache puts a read cache in front of GetProduct.
func WithCache(c cache.ProductCache) ProductServiceOption {
	return func(s *productService) {
		s.cache = c
	}
}

// WithOutbox records a product event in the outbox for every mutation.
func WithOutbox(outboxMsgRepo repository.OutboxMsgRepository) ProductServiceOption {
	return func(s *productService) {
		s.outboxMsgRepo = outboxMsgRepo
	}
}

type productService struct {
	logger        *slog.Logger
	db            db.Transactor
	productRepo   repository.ProductRepository
	outboxMsgRepo repository.OutboxMsgRepository
	idAllocator   IDAllocator
	cache         cache.ProductCache
	now           func() time.Time
}

func NewProductService(
	logger *slog.Logger,
	db db.Transactor,
	productRepo repository.ProductRepository,
	opts ...ProductServiceOption,
) ProductService {
	s := &productService{
		logger:      logger.With(slog.String("service", "product")),
		db:          db,
		productRepo: productRepo,
		idAllocator: MaxPlusOneAllocator{},
		cache:       cache.NopCache{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *productService) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	products, err := s.productRepo.ListProducts(ctx, repository.ListProductsParams(params))
	if err != nil {
		return nil, storageErr(fmt.Errorf("product repository list products: %w", err))
	}

	return products, nil
}

func (s *productService) CountProducts(ctx context.Context) (int64, error) {
	count, err := s.productRepo.CountProducts(ctx)
	if err != nil {
		return 0, storageErr(fmt.Errorf("product repository count products: %w", err))
	}

	return count, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	cached, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "error reading product cache", slog.Int64("product_id", id), slog.Any("error", err))
	}
	if ok {
		return cached, nil
	}

	// The version is taken before the store read so a write that commits in
	// between makes the fill below a no-op.
	version, versionErr := s.cache.Version(ctx, id)
	if versionErr != nil {
		s.logger.WarnContext(ctx, "error reading product cache version", slog.Int64("product_id", id), slog.Any("error", versionErr))
	}

	product, err := s.productRepo.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, storageErr(fmt.Errorf("product repository get product: %w", err))
	}

	if versionErr == nil {
		if err := s.cache.SetIfVersion(ctx, product, version); err != nil {
			s.logger.WarnContext(ctx, "error writing product cache", slog.Int64("product_id", id), slog.Any("error", err))
		}
	}

	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	if err := params.Methodology.Validate(); err != nil {
		return model.Product{}, apperr.ValidationErr.WrapParent(err)
	}

	now := s.now()
	product := model.Product{
		Name:            params.Name,
		OwnerName:       params.OwnerName,
		Developers:      params.Developers,
		ScrumMasterName: params.ScrumMasterName,
		StartDate:       params.StartDate,
		Methodology:     params.Methodology,
		Location:        params.Location,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if product.Developers == nil {
		product.Developers = []string{}
	}

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		productRepo := s.productRepo.WithDB(db)

		id, err := s.idAllocator.NextProductID(ctx, productRepo)
		if err != nil {
			return fmt.Errorf("allocate product id: %w", err)
		}
		product.ID = id

		if err := productRepo.CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}

		return s.writeEvent(ctx, db, event.TopicProductCreated, product.ID, event.ProductCreatedEvent{
			Product:    event.NewProduct(product),
			OccurredAt: now,
		})
	}); err != nil {
		return model.Product{}, storageErr(fmt.Errorf("db with tx: %w", err))
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (model.Product, error) {
	if params.Methodology != nil {
		if err := params.Methodology.Validate(); err != nil {
			return model.Product{}, apperr.ValidationErr.WrapParent(err)
		}
	}

	var product model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		productRepo := s.productRepo.WithDB(db)

		existing, err := productRepo.GetProductForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product for update: %w", err)
		}

		product = mergeProduct(existing, params)
		product.UpdatedAt = s.now()

		if err := productRepo.UpdateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		return s.writeEvent(ctx, db, event.TopicProductUpdated, product.ID, event.ProductUpdatedEvent{
			Product:       event.NewProduct(product),
			ChangedFields: changedFields(params),
			OccurredAt:    product.UpdatedAt,
		})
	}); err != nil {
		return model.Product{}, storageErr(fmt.Errorf("db with tx: %w", err))
	}

	s.evict(ctx, id)

	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		if err := s.productRepo.WithDB(db).DeleteProduct(ctx, id); err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}

		return s.writeEvent(ctx, db, event.TopicProductDeleted, id, event.ProductDeletedEvent{
			ProductID:  id,
			OccurredAt: s.now(),
		})
	}); err != nil {
		return storageErr(fmt.Errorf("db with tx: %w", err))
	}

	s.evict(ctx, id)

	return nil
}

// writeEvent stores ev in the outbox within the running transaction. It is a
// no-op when no outbox is configured.
func (s *productService) writeEvent(ctx context.Context, db db.DB, topic string, productID int64, ev any) error {
	if s.outboxMsgRepo == nil {
		return nil
	}

	evBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partitionKey := strconv.FormatInt(productID, 10)
	if err := s.outboxMsgRepo.
		WithDB(db).
		CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
			Topic:        topic,
			Headers:      outbox.BuildHeaders(ctx),
			Payload:      evBytes,
			PartitionKey: &partitionKey,
		}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

func (s *productService) evict(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "error evicting product cache", slog.Int64("product_id", id), slog.Any("error", err))
	}
}

func mergeProduct(p model.Product, params UpdateProductParams) model.Product {
	p = p.Clone()
	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.OwnerName != nil {
		p.OwnerName = *params.OwnerName
	}
	if params.Developers != nil {
		p.Developers = append([]string{}, (*params.Developers)...)
	}
	if params.ScrumMasterName != nil {
		p.ScrumMasterName = *params.ScrumMasterName
	}
	if params.StartDate != nil {
		p.StartDate = *params.StartDate
	}
	if params.Methodology != nil {
		p.Methodology = *params.Methodology
	}
	if params.Location != nil {
		p.Location = *params.Location
	}
	return p
}

func changedFields(params UpdateProductParams) []string {
	fields := []string{}
	if params.Name != nil {
		fields = append(fields, "productName")
	}
	if params.OwnerName != nil {
		fields = append(fields, "productOwnerName")
	}
	if params.Developers != nil {
		fields = append(fields, "developers")
	}
	if params.ScrumMasterName != nil {
		fields = append(fields, "scrumMasterName")
	}
	if params.StartDate != nil {
		fields = append(fields, "startDate")
	}
	if params.Methodology != nil {
		fields = append(fields, "methodology")
	}
	if params.Location != nil {
		fields = append(fields, "location")
	}
	return fields
}

// storageErr maps repository failures onto application errors. Errors that
// already carry an application code pass through.
func storageErr(err error) error {
	var zErr zerror.ZError
	if errors.As(err, &zErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ProductNotFoundErr.WrapParent(err)
	}
	return apperr.StorageErr.WrapParent(err)
}
