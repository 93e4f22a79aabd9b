package service

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/pricing"
)

// OptionsInput carries the optional price modifiers as they arrive over
// HTTP. Enum fields are strict here: an unknown value is a validation
// error, unlike inside the engine.
type OptionsInput struct {
	RoomType                string   `json:"room_type" validate:"omitempty,room_type"`
	PremiumSeat             bool     `json:"premium_seat"`
	DayOfWeek               string   `json:"day_of_week" validate:"omitempty,day_of_week"`
	OccupancyPercent        *float64 `json:"occupancy_percent" validate:"omitempty,gte=0,lte=100"`
	LoyaltyTier             string   `json:"loyalty_tier" validate:"omitempty,loyalty_tier"`
	CouponPercent           float64  `json:"coupon_percent" validate:"gte=0,lte=80"`
	Dubbed                  bool     `json:"dubbed"`
	DubbingSurchargePercent float64  `json:"dubbing_surcharge_percent" validate:"gte=0,lte=30"`
}

// toOptions converts already validated input.
func (in OptionsInput) toOptions() pricing.Options {
	room, _ := pricing.ParseRoomType(in.RoomType)
	day, _ := pricing.ParseDayOfWeek(in.DayOfWeek)
	tier, _ := pricing.ParseLoyaltyTier(in.LoyaltyTier)
	return pricing.Options{
		RoomType:                room,
		PremiumSeat:             in.PremiumSeat,
		DayOfWeek:               day,
		OccupancyPercent:        in.OccupancyPercent,
		LoyaltyTier:             tier,
		CouponPercent:           in.CouponPercent,
		Dubbed:                  in.Dubbed,
		DubbingSurchargePercent: in.DubbingSurchargePercent,
	}
}

// CalculateInput is the body of POST /v1/pricing/calculate.
type CalculateInput struct {
	BasePrice      *float64 `json:"base_price" validate:"required,gte=0"`
	TicketType     string   `json:"ticket_type" validate:"omitempty,ticket_type"`
	NumberOfPeople int      `json:"number_of_people" validate:"gte=0,lte=50"`
	Quantity       int      `json:"quantity" validate:"gte=0,lte=100"`
	OptionsInput
}

// SuggestInput is the body of POST /v1/pricing/suggest.
type SuggestInput struct {
	BasePrice        *float64 `json:"base_price" validate:"required,gte=0"`
	OccupancyPercent *float64 `json:"occupancy_percent" validate:"omitempty,gte=0,lte=100"`
	LeadTimeDays     *int     `json:"lead_time_days" validate:"omitempty,gte=0,lte=365"`
	DayOfWeek        string   `json:"day_of_week" validate:"omitempty,day_of_week"`
	RoomType         string   `json:"room_type" validate:"omitempty,room_type"`
}

// GridInput is the query of GET /v1/pricing/grid.
type GridInput struct {
	BasePrice *float64 `json:"base_price" validate:"required,gte=0"`
	RoomType  string   `json:"room_type" validate:"omitempty,room_type"`
}

// PricingService validates pricing requests and runs the engine. It holds
// no state.
type PricingService struct{}

func NewPricingService() *PricingService { return &PricingService{} }

// Calculate prices a ticket. Missing ticket type means full; missing people
// and quantity mean 1.
func (s *PricingService) Calculate(in CalculateInput) (pricing.PriceBreakdown, error) {
	if err := ValidateStruct(in); err != nil {
		return pricing.PriceBreakdown{}, err
	}
	ticket, ok := pricing.ParseTicketType(in.TicketType)
	if !ok {
		ticket = pricing.TicketFull
	}
	people := in.NumberOfPeople
	if people == 0 {
		people = 1
	}
	return pricing.ComputeTicketPrice(pricing.PriceRequest{
		BasePrice:      decimal.NewFromFloat(*in.BasePrice),
		TicketType:     ticket,
		NumberOfPeople: people,
		Quantity:       in.Quantity,
		Options:        in.toOptions(),
	})
}

// Suggest returns an advisory price.
func (s *PricingService) Suggest(in SuggestInput) (pricing.Suggestion, error) {
	if err := ValidateStruct(in); err != nil {
		return pricing.Suggestion{}, err
	}
	day, _ := pricing.ParseDayOfWeek(in.DayOfWeek)
	room, _ := pricing.ParseRoomType(in.RoomType)
	return pricing.SuggestPrice(pricing.SuggestRequest{
		BasePrice:        decimal.NewFromFloat(*in.BasePrice),
		OccupancyPercent: in.OccupancyPercent,
		LeadTimeDays:     in.LeadTimeDays,
		DayOfWeek:        day,
		RoomType:         room,
	})
}

// Grid returns one suggestion per weekday, Monday first.
func (s *PricingService) Grid(in GridInput) ([]pricing.Suggestion, error) {
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	room, _ := pricing.ParseRoomType(in.RoomType)
	return pricing.BuildGrid(decimal.NewFromFloat(*in.BasePrice), room, nil)
}
