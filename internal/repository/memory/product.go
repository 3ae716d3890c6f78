package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-memdb"

	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
)

var _ repository.ProductRepository = (*ProductRepository)(nil)

type ProductRepository struct {
	store *Store
}

func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

func (r *ProductRepository) WithDB(db.DB) repository.ProductRepository {
	return r
}

func (r *ProductRepository) ListProducts(_ context.Context, params repository.ListProductsParams) ([]model.Product, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(productTable, indexID)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	products := []model.Product{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		product := obj.(*model.Product)
		if !matchesFilter(*product, params) {
			continue
		}
		products = append(products, product.Clone())
	}

	// The int index is varint encoded, so iteration order is not numeric.
	slices.SortFunc(products, func(a, b model.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return products, nil
}

func (r *ProductRepository) CountProducts(_ context.Context) (int64, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(productTable, indexID)
	if err != nil {
		return 0, fmt.Errorf("get products: %w", err)
	}

	var count int64
	for obj := it.Next(); obj != nil; obj = it.Next() {
		count++
	}
	return count, nil
}

func (r *ProductRepository) GetProduct(_ context.Context, id int64) (model.Product, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First(productTable, indexID, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("first product: %w", err)
	}
	if obj == nil {
		return model.Product{}, repository.ErrNotFound
	}

	return obj.(*model.Product).Clone(), nil
}

func (r *ProductRepository) GetProductForUpdate(ctx context.Context, id int64) (model.Product, error) {
	return r.GetProduct(ctx, id)
}

// LockProductIDs is a no-op; db.LocalTransactor already serializes writers.
func (r *ProductRepository) LockProductIDs(context.Context) error {
	return nil
}

func (r *ProductRepository) MaxProductID(_ context.Context) (int64, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(productTable, indexID)
	if err != nil {
		return 0, fmt.Errorf("get products: %w", err)
	}

	var maxID int64
	for obj := it.Next(); obj != nil; obj = it.Next() {
		maxID = max(maxID, obj.(*model.Product).ID)
	}
	return maxID, nil
}

func (r *ProductRepository) CreateProduct(_ context.Context, product model.Product) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(productTable, indexID, product.ID)
	if err != nil {
		return fmt.Errorf("first product: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("product %d already exists", product.ID)
	}

	if err := insert(txn, product); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func (r *ProductRepository) UpdateProduct(_ context.Context, product model.Product) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(productTable, indexID, product.ID)
	if err != nil {
		return fmt.Errorf("first product: %w", err)
	}
	if existing == nil {
		return repository.ErrNotFound
	}

	if err := insert(txn, product); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func (r *ProductRepository) DeleteProduct(_ context.Context, id int64) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(productTable, indexID, id)
	if err != nil {
		return fmt.Errorf("first product: %w", err)
	}
	if existing == nil {
		return repository.ErrNotFound
	}

	if err := txn.Delete(productTable, existing); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	txn.Commit()
	return nil
}

func insert(txn *memdb.Txn, product model.Product) error {
	stored := product.Clone()
	if stored.Developers == nil {
		stored.Developers = []string{}
	}

	if err := txn.Insert(productTable, &stored); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func matchesFilter(product model.Product, params repository.ListProductsParams) bool {
	if params.ScrumMaster != "" && !containsFold(product.ScrumMasterName, params.ScrumMaster) {
		return false
	}

	if params.Developer != "" {
		for _, dev := range product.Developers {
			if containsFold(dev, params.Developer) {
				return true
			}
		}
		return false
	}

	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
