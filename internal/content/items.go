package content

import (
	"context"
	"errors"

	apierrors "seopilot/internal/errors"
	"seopilot/internal/store"
	"seopilot/pkg/contracts/domain"
)

const itemPrefix = "item_"

// ItemRepository stores the host's content items
type ItemRepository struct {
	store store.Store
}

// NewItemRepository creates an item repository over s
func NewItemRepository(s store.Store) *ItemRepository {
	return &ItemRepository{store: s}
}

// Get loads one item
func (r *ItemRepository) Get(ctx context.Context, id string) (domain.Item, error) {
	var item domain.Item
	err := store.GetJSON(ctx, r.store, itemPrefix+id, &item)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Item{}, apierrors.NotFound("item " + id)
	}
	if err != nil {
		return domain.Item{}, apierrors.Internal(err)
	}
	return item, nil
}

// Save writes item under its ID
func (r *ItemRepository) Save(ctx context.Context, item domain.Item) error {
	if item.ID == "" {
		return apierrors.Validation("id", "id is required")
	}
	if err := store.SetJSON(ctx, r.store, itemPrefix+item.ID, item); err != nil {
		return apierrors.Internal(err)
	}
	return nil
}
