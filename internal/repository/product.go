package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
)

// productIDLockKey guards product ID allocation via pg_advisory_xact_lock.
const productIDLockKey int64 = 0x70726f6475637473

type ListProductsParams struct {
	// ScrumMaster filters by case-insensitive substring of the scrum master name.
	ScrumMaster string
	// Developer filters by case-insensitive substring of any developer name.
	Developer string
}

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	// GetProductForUpdate is GetProduct that also locks the row for the running transaction.
	GetProductForUpdate(ctx context.Context, id int64) (model.Product, error)
	// LockProductIDs serializes ID allocation until the running transaction ends.
	LockProductIDs(ctx context.Context) error
	MaxProductID(ctx context.Context) (int64, error)
	CreateProduct(ctx context.Context, product model.Product) error
	UpdateProduct(ctx context.Context, product model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

const productColumns = `product_id, product_name, product_owner_name, developers,
	scrum_master_name, start_date, methodology, location, created_at, updated_at`

type productRow struct {
	ProductID        int64     `db:"product_id"`
	ProductName      string    `db:"product_name"`
	ProductOwnerName string    `db:"product_owner_name"`
	Developers       []string  `db:"developers"`
	ScrumMasterName  string    `db:"scrum_master_name"`
	StartDate        time.Time `db:"start_date"`
	Methodology      string    `db:"methodology"`
	Location         string    `db:"location"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	var (
		conds []string
		args  = pgx.NamedArgs{}
	)
	if params.ScrumMaster != "" {
		conds = append(conds, `scrum_master_name ILIKE '%' || @scrum_master || '%'`)
		args["scrum_master"] = escapeLike(params.ScrumMaster)
	}
	if params.Developer != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM UNNEST(developers) AS d WHERE d ILIKE '%' || @developer || '%')`)
		args["developer"] = escapeLike(params.Developer)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY product_id`

	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	productRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("collect products: %w", err)
	}

	products := make([]model.Product, 0, len(productRows))
	for _, row := range productRows {
		products = append(products, rowToModelProduct(row))
	}

	return products, nil
}

func (r productRepository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (r productRepository) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = $1`, id)
}

func (r productRepository) GetProductForUpdate(ctx context.Context, id int64) (model.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = $1 FOR UPDATE`, id)
}

func (r productRepository) getProduct(ctx context.Context, query string, id int64) (model.Product, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("query product: %w", err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, fmt.Errorf("collect product: %w", err)
	}

	return rowToModelProduct(row), nil
}

func (r productRepository) LockProductIDs(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, productIDLockKey); err != nil {
		return fmt.Errorf("lock product ids: %w", err)
	}
	return nil
}

func (r productRepository) MaxProductID(ctx context.Context) (int64, error) {
	var maxID int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(product_id), 0) FROM products`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("max product id: %w", err)
	}
	return maxID, nil
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (
			@product_id, @product_name, @product_owner_name, @developers,
			@scrum_master_name, @start_date, @methodology, @location, @created_at, @updated_at
		)
	`, productNamedArgs(product)); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET
			product_name       = @product_name,
			product_owner_name = @product_owner_name,
			developers         = @developers,
			scrum_master_name  = @scrum_master_name,
			start_date         = @start_date,
			methodology        = @methodology,
			location           = @location,
			updated_at         = @updated_at
		WHERE product_id = @product_id
	`, productNamedArgs(product))
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r productRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func productNamedArgs(product model.Product) pgx.NamedArgs {
	developers := product.Developers
	if developers == nil {
		developers = []string{}
	}

	return pgx.NamedArgs{
		"product_id":         product.ID,
		"product_name":       product.Name,
		"product_owner_name": product.OwnerName,
		"developers":         developers,
		"scrum_master_name":  product.ScrumMasterName,
		"start_date":         product.StartDate,
		"methodology":        string(product.Methodology),
		"location":           product.Location,
		"created_at":         product.CreatedAt,
		"updated_at":         product.UpdatedAt,
	}
}

func rowToModelProduct(row productRow) model.Product {
	return model.Product{
		ID:              row.ProductID,
		Name:            row.ProductName,
		OwnerName:       row.ProductOwnerName,
		Developers:      row.Developers,
		ScrumMasterName: row.ScrumMasterName,
		StartDate:       row.StartDate,
		Methodology:     model.Methodology(row.Methodology),
		Location:        row.Location,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
