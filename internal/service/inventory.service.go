package service

import (
	"context"
	"fmt"
	"log"

	"mayhem-storefront/internal/repo"

	"github.com/google/uuid"
)

type InventoryService interface {
	// DeductForOrder decrements stock for every line item on the order,
	// floored at zero per item, at most once per order no matter how many
	// times it is invoked.
	DeductForOrder(ctx context.Context, orderID uuid.UUID) error
}

type inventoryService struct {
	orderRepo repo.OrderRepo
	stockRepo repo.StockRepo
}

func NewInventoryService(orderRepo repo.OrderRepo, stockRepo repo.StockRepo) InventoryService {
	return &inventoryService{orderRepo: orderRepo, stockRepo: stockRepo}
}

func (s *inventoryService) DeductForOrder(ctx context.Context, orderID uuid.UUID) error {
	claimed, err := s.stockRepo.ClaimDeduction(ctx, orderID)
	if err != nil {
		return fmt.Errorf("claim deduction for order %s: %w", orderID, err)
	}
	if !claimed {
		log.Printf("stock already deducted for order %s, skipping", orderID)
		return nil
	}

	items, err := s.orderRepo.ListItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list items for order %s: %w", orderID, err)
	}

	// Per-item failures do not stop the remaining items; any shortfall is a
	// manual follow-up, never a rollback of the order's approval.
	var failed int
	for _, it := range items {
		if err := s.stockRepo.DecrementFloored(ctx, it.ProductID, it.Quantity); err != nil {
			failed++
			log.Printf("WARN: stock decrement failed for order %s product %s: %v", orderID, it.ProductID, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("stock deduction incomplete for order %s: %d of %d items failed", orderID, failed, len(items))
	}
	return nil
}
