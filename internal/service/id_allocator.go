package service

import (
	"context"
	"fmt"

	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
)

// IDAllocator picks the ID of a product about to be created. It runs inside
// the create transaction with a repository bound to that transaction.
type IDAllocator interface {
	NextProductID(ctx context.Context, repo repository.ProductRepository) (int64, error)
}

var _ IDAllocator = MaxPlusOneAllocator{}

// MaxPlusOneAllocator assigns one more than the highest live ID, starting at 1.
// Deleting the highest product makes its ID available again.
type MaxPlusOneAllocator struct{}

func (MaxPlusOneAllocator) NextProductID(ctx context.Context, repo repository.ProductRepository) (int64, error) {
	if err := repo.LockProductIDs(ctx); err != nil {
		return 0, fmt.Errorf("lock product ids: %w", err)
	}

	maxID, err := repo.MaxProductID(ctx)
	if err != nil {
		return 0, fmt.Errorf("max product id: %w", err)
	}

	return maxID + 1, nil
}
