package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTierRejectsNonPositivePrice(t *testing.T) {
	svc := NewService(nil, nil)

	for _, price := range []int64{0, -500} {
		_, err := svc.CreateTier(context.Background(), &CreateTierRequest{
			CreatorID:  "creator-1",
			Title:      "Gold",
			PriceCents: price,
		})
		assert.ErrorIs(t, err, ErrInvalidPricing)
	}
}
