// Package inventory tracks concession stock: items keyed by SKU with a
// minimum level, unit cost and sale price.
package inventory

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/pricing"
)

var (
	// ErrItemExists rejects a second item with the same SKU.
	ErrItemExists = errors.New("an item with this SKU already exists")
	// ErrItemNotFound is returned for an unknown SKU.
	ErrItemNotFound = errors.New("item not found in stock")
	// ErrInsufficientStock rejects an outbound movement larger than the
	// quantity on hand.
	ErrInsufficientStock = errors.New("outbound quantity exceeds stock on hand")
)

// Movement directions.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// NewItem is the input of Register.
type NewItem struct {
	SKU       string
	Name      string
	Quantity  int
	Minimum   int
	UnitCost  decimal.Decimal
	SalePrice decimal.Decimal
}

// Item is a read-only view of one stock line.
type Item struct {
	SKU          string        `json:"sku"`
	Name         string        `json:"name"`
	Quantity     int           `json:"quantity"`
	Minimum      int           `json:"minimum"`
	UnitCost     pricing.Money `json:"unit_cost"`
	SalePrice    pricing.Money `json:"sale_price"`
	NeedsRestock bool          `json:"needs_restock"`
	StockValue   pricing.Money `json:"stock_value"`
	UnitMargin   pricing.Money `json:"unit_margin"`
}

// Summary aggregates the whole stock.
type Summary struct {
	TotalItems    int           `json:"total_items"`
	CriticalItems int           `json:"critical_items"`
	TotalValue    pricing.Money `json:"total_value"`
}

type line struct {
	sku       string
	name      string
	quantity  int
	minimum   int
	unitCost  decimal.Decimal
	salePrice decimal.Decimal
}

// An item needs restocking once it is at or below its minimum.
func (l *line) view() Item {
	return Item{
		SKU:          l.sku,
		Name:         l.name,
		Quantity:     l.quantity,
		Minimum:      l.minimum,
		UnitCost:     pricing.NewMoney(l.unitCost),
		SalePrice:    pricing.NewMoney(l.salePrice),
		NeedsRestock: l.quantity <= l.minimum,
		StockValue:   pricing.NewMoney(l.value()),
		UnitMargin:   pricing.NewMoney(l.salePrice.Sub(l.unitCost)),
	}
}

func (l *line) value() decimal.Decimal {
	return pricing.Round2(decimal.NewFromInt(int64(l.quantity)).Mul(l.unitCost))
}

// Stock is safe for concurrent use.
type Stock struct {
	mu    sync.RWMutex
	items map[string]*line
}

func NewStock() *Stock {
	return &Stock{items: make(map[string]*line)}
}

// NormalizeSKU trims and upper-cases a SKU.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// Register adds a new item.
func (s *Stock) Register(in NewItem) (Item, error) {
	sku := NormalizeSKU(in.SKU)
	name := strings.TrimSpace(in.Name)
	switch {
	case sku == "":
		return Item{}, pricing.Invalid("sku", "must not be empty")
	case len(sku) > 40:
		return Item{}, pricing.Invalid("sku", "must be at most 40 characters")
	case name == "":
		return Item{}, pricing.Invalid("name", "must not be empty")
	case in.Quantity < 0:
		return Item{}, pricing.Invalid("quantity", "must not be negative")
	case in.Minimum < 0:
		return Item{}, pricing.Invalid("minimum", "must not be negative")
	case in.UnitCost.IsNegative():
		return Item{}, pricing.Invalid("unit_cost", "must not be negative")
	case in.SalePrice.IsNegative():
		return Item{}, pricing.Invalid("sale_price", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[sku]; ok {
		return Item{}, ErrItemExists
	}
	l := &line{sku: sku, name: name, quantity: in.Quantity, minimum: in.Minimum, unitCost: in.UnitCost, salePrice: in.SalePrice}
	s.items[sku] = l
	return l.view(), nil
}

// Move applies an IN or OUT movement of quantity units to sku.
func (s *Stock) Move(sku, direction string, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, pricing.Invalid("quantity", "must be at least 1")
	}
	direction = strings.ToUpper(strings.TrimSpace(direction))
	if direction != MovementIn && direction != MovementOut {
		return Item{}, pricing.Invalid("type", "must be one of in, out")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[NormalizeSKU(sku)]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	if direction == MovementOut {
		if quantity > l.quantity {
			return Item{}, ErrInsufficientStock
		}
		l.quantity -= quantity
	} else {
		if quantity > math.MaxInt-l.quantity {
			return Item{}, pricing.Invalid("quantity", "is too large")
		}
		l.quantity += quantity
	}
	return l.view(), nil
}

// Get returns one item.
func (s *Stock) Get(sku string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[NormalizeSKU(sku)]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return l.view(), nil
}

// List returns every item ordered by SKU.
func (s *Stock) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, l := range s.items {
		out = append(out, l.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// Critical returns the items that need restocking, ordered by SKU.
func (s *Stock) Critical() []Item {
	out := []Item{}
	for _, it := range s.List() {
		if it.NeedsRestock {
			out = append(out, it)
		}
	}
	return out
}

// Summary totals the stock. The total value is the sum of the rounded
// per-item values.
func (s *Stock) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{TotalItems: len(s.items)}
	total := decimal.Zero
	for _, l := range s.items {
		if l.quantity <= l.minimum {
			sum.CriticalItems++
		}
		total = total.Add(l.value())
	}
	sum.TotalValue = pricing.NewMoney(total)
	return sum
}

// DefaultItems is the demo concession stock.
var DefaultItems = []NewItem{
	{SKU: "PIP-G", Name: "Pipoca Grande", Quantity: 30, Minimum: 8, UnitCost: decimal.NewFromInt(6), SalePrice: decimal.NewFromInt(18)},
	{SKU: "REF-L", Name: "Refrigerante Lata", Quantity: 22, Minimum: 10, UnitCost: decimal.RequireFromString("3.5"), SalePrice: decimal.NewFromInt(11)},
	{SKU: "CHO-M", Name: "Chocolate Mini", Quantity: 18, Minimum: 6, UnitCost: decimal.NewFromInt(2), SalePrice: decimal.NewFromInt(8)},
}

// Seed registers items that are not present yet.
func (s *Stock) Seed(items []NewItem) error {
	for _, it := range items {
		if _, err := s.Register(it); err != nil && !errors.Is(err, ErrItemExists) {
			return err
		}
	}
	return nil
}
