// Package pricing computes ticket prices. ComputeTicketPrice applies an
// ordered chain of compounding modifiers to a base price and returns an
// auditable breakdown; SuggestPrice proposes a demand-based price without
// touching any stored price.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	maxCouponPercent  = 80
	maxDubbingPercent = 30
	familyDiscountMin = 3 // family groups larger than this get the discount
)

var (
	roomSurcharge = map[RoomType]float64{RoomVIP: 20, RoomIMAX: 30}
	loyaltyCut    = map[LoyaltyTier]float64{LoyaltySilver: 5, LoyaltyGold: 10}
)

// Options are the contextual modifiers of a ticket price. The zero value
// applies no modifier.
type Options struct {
	RoomType                RoomType    `json:"room_type,omitempty"`
	PremiumSeat             bool        `json:"premium_seat,omitempty"`
	DayOfWeek               DayOfWeek   `json:"day_of_week,omitempty"`
	OccupancyPercent        *float64    `json:"occupancy_percent,omitempty"`
	LoyaltyTier             LoyaltyTier `json:"loyalty_tier,omitempty"`
	CouponPercent           float64     `json:"coupon_percent,omitempty"`
	Dubbed                  bool        `json:"dubbed,omitempty"`
	DubbingSurchargePercent float64     `json:"dubbing_surcharge_percent,omitempty"`
}

// PriceRequest is the input of ComputeTicketPrice.
type PriceRequest struct {
	BasePrice      decimal.Decimal
	TicketType     TicketType
	NumberOfPeople int // only read for family tickets
	Quantity       int // tickets sold at the resulting unit price; 0 means 1
	Options        Options
}

// Modifier is one applied pricing step.
type Modifier struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
	Amount  Money   `json:"amount"`
}

// PriceBreakdown is the result of ComputeTicketPrice. Modifiers are kept in
// application order.
type PriceBreakdown struct {
	Base      Money      `json:"base"`
	UnitPrice Money      `json:"unit_price"`
	Quantity  int        `json:"quantity"`
	Total     Money      `json:"total"`
	Modifiers []Modifier `json:"modifiers"`
}

// ComputeTicketPrice prices a ticket. Every modifier is a percentage of the
// running unit price and both the step amount and the new unit price are
// rounded to cents, so the order of the steps below is significant.
//
// A negative base price or a family ticket with fewer than one person is
// rejected. Unknown room types, days, loyalty tiers and ticket types apply
// no modifier.
func ComputeTicketPrice(req PriceRequest) (PriceBreakdown, error) {
	if req.BasePrice.IsNegative() {
		return PriceBreakdown{}, Invalid("base_price", "must not be negative")
	}
	ticketType := req.TicketType.canonical()
	if ticketType == "" {
		ticketType = TicketFull
	}
	people := req.NumberOfPeople
	if ticketType == TicketFamily && people < 1 {
		return PriceBreakdown{}, Invalid("number_of_people", "must be at least 1")
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	opts := req.Options
	c := &chain{unit: Round2(req.BasePrice), modifiers: []Modifier{}}

	if pct, ok := roomSurcharge[opts.RoomType.canonical()]; ok {
		c.apply(roomLabel(opts.RoomType.canonical()), pct)
	}
	if opts.PremiumSeat {
		c.apply("Premium seat", 15)
	}
	if dub := clamp(opts.DubbingSurchargePercent, 0, maxDubbingPercent); opts.Dubbed && dub > 0 {
		c.apply("Dubbed session", dub)
	}
	if opts.DayOfWeek.IsWeekend() {
		c.apply("Weekend demand", 10)
	}
	if opts.OccupancyPercent != nil && clamp(*opts.OccupancyPercent, 0, 100) >= 80 {
		c.apply("High session demand", 12)
	}
	if pct, ok := loyaltyCut[opts.LoyaltyTier.canonical()]; ok {
		c.apply(fmt.Sprintf("Loyalty program %s", opts.LoyaltyTier.canonical()), -pct)
	}
	if coupon := clamp(opts.CouponPercent, 0, maxCouponPercent); coupon > 0 {
		c.apply("Coupon", -coupon)
	}

	switch ticketType {
	case TicketHalf:
		c.apply("Half price", -50)
	case TicketFamily:
		subtotal := Round2(c.unit.Mul(decimal.NewFromInt(int64(people))))
		c.record(fmt.Sprintf("Family group (%d people)", people), 0, subtotal.Sub(c.unit))
		c.unit = subtotal
		if people > familyDiscountMin {
			c.apply("Family discount", -5)
		}
	}

	return PriceBreakdown{
		Base:      NewMoney(req.BasePrice),
		UnitPrice: NewMoney(c.unit),
		Quantity:  quantity,
		Total:     NewMoney(c.unit.Mul(decimal.NewFromInt(int64(quantity)))),
		Modifiers: c.modifiers,
	}, nil
}

// chain accumulates the running unit price and the applied steps.
type chain struct {
	unit      decimal.Decimal
	modifiers []Modifier
}

func (c *chain) apply(label string, pct float64) {
	if pct == 0 {
		return
	}
	amount := percentOf(c.unit, pct)
	c.record(label, pct, amount)
	c.unit = Round2(c.unit.Add(amount))
}

func (c *chain) record(label string, pct float64, amount decimal.Decimal) {
	c.modifiers = append(c.modifiers, Modifier{Label: label, Percent: pct, Amount: NewMoney(amount)})
}

func roomLabel(r RoomType) string {
	if r == RoomIMAX {
		return "IMAX room"
	}
	return "VIP room"
}

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
