package store

import (
	"context"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// EffectivePrice returns the variant's price override, or its product's price
// when there is none. The product is fetched and attached when not loaded.
func EffectivePrice(ctx context.Context, q database.Querier, variant *models.ProductVariant) (decimal.Decimal, error) {
	if price, ok := variant.EffectivePrice(); ok {
		return price, nil
	}

	product, err := GetProduct(ctx, q, variant.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	variant.Product = product

	return product.Price, nil
}
