package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/repository"
)

// CreateItemInput is the body of POST /v1/inventory/items.
type CreateItemInput struct {
	SKU       string  `json:"sku" validate:"required,max=40"`
	Name      string  `json:"name" validate:"required,max=120"`
	Quantity  int     `json:"quantity" validate:"gte=0,lte=1000000"`
	Minimum   int     `json:"minimum" validate:"gte=0,lte=1000000"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
	SalePrice float64 `json:"sale_price" validate:"gte=0"`
}

// MovementInput is the body of PATCH /v1/inventory/items/:sku/movement.
type MovementInput struct {
	Type     string `json:"type" validate:"required,oneof=in out"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=1000000"`
}

// InventoryList is the stock with its totals.
type InventoryList struct {
	Items   []inventory.Item  `json:"items"`
	Summary inventory.Summary `json:"summary"`
}

// InventoryService manages concession stock and audits every change.
type InventoryService struct {
	Stock *inventory.Stock
	Audit *repository.AuditRepo
	Log   *logger.Logger
}

func NewInventoryService(stock *inventory.Stock, audit *repository.AuditRepo, log *logger.Logger) *InventoryService {
	return &InventoryService{Stock: stock, Audit: audit, Log: log}
}

// List returns every item and the stock summary.
func (s *InventoryService) List(ctx context.Context) InventoryList {
	return InventoryList{Items: s.Stock.List(), Summary: s.Stock.Summary()}
}

// Critical returns the items at or below their minimum.
func (s *InventoryService) Critical(ctx context.Context) []inventory.Item {
	return s.Stock.Critical()
}

// Create registers a new item.
func (s *InventoryService) Create(ctx context.Context, in CreateItemInput, actor string) (inventory.Item, error) {
	if err := ValidateStruct(in); err != nil {
		return inventory.Item{}, err
	}
	it, err := s.Stock.Register(inventory.NewItem{
		SKU:       in.SKU,
		Name:      in.Name,
		Quantity:  in.Quantity,
		Minimum:   in.Minimum,
		UnitCost:  decimal.NewFromFloat(in.UnitCost),
		SalePrice: decimal.NewFromFloat(in.SalePrice),
	})
	if err != nil {
		return inventory.Item{}, err
	}
	s.Audit.Append(ctx, model.AuditInventoryItem, actor, map[string]any{"sku": it.SKU})
	return it, nil
}

// Move applies a stock movement to sku.
func (s *InventoryService) Move(ctx context.Context, sku string, in MovementInput, actor string) (inventory.Item, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if err := ValidateStruct(in); err != nil {
		return inventory.Item{}, err
	}
	it, err := s.Stock.Move(sku, in.Type, in.Quantity)
	if err != nil {
		return inventory.Item{}, err
	}
	s.Audit.Append(ctx, model.AuditInventoryMove, actor, map[string]any{
		"sku":      it.SKU,
		"type":     strings.ToUpper(in.Type),
		"quantity": in.Quantity,
	})
	if it.NeedsRestock {
		s.Log.WarnContext(ctx, "inventory below minimum", "sku", it.SKU, "quantity", it.Quantity, "minimum", it.Minimum)
	}
	return it, nil
}
