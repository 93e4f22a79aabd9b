package pricing

import "github.com/shopspring/decimal"

const (
	defaultOccupancy = 50
	defaultLeadDays  = 7
	maxLeadDays      = 365
)

var (
	minFactor = decimal.RequireFromString("0.6")
	maxFactor = decimal.RequireFromString("1.8")
)

// SuggestRequest is the input of SuggestPrice. Nil occupancy and lead time
// fall back to 50% and 7 days.
type SuggestRequest struct {
	BasePrice        decimal.Decimal
	OccupancyPercent *float64
	LeadTimeDays     *int
	DayOfWeek        DayOfWeek
	RoomType         RoomType
}

// Factor is one additive component of a suggestion.
type Factor struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// Range is the inclusive band a suggested price is clamped to.
type Range struct {
	Min Money `json:"min"`
	Max Money `json:"max"`
}

// Suggestion is an advisory price; nothing is stored.
type Suggestion struct {
	BasePrice         Money     `json:"base_price"`
	SuggestedPrice    Money     `json:"suggested_price"`
	AllowedRange      Range     `json:"allowed_range"`
	AdjustmentPercent float64   `json:"adjustment_percent"`
	DayOfWeek         DayOfWeek `json:"day_of_week,omitempty"`
	Factors           []Factor  `json:"factors"`
}

// SuggestPrice sums the demand, lead time, weekday and room factors, all
// relative to the original base price, and clamps the result to
// [0.6×base, 1.8×base]. Occupancy is clamped to [0,100] and lead time to
// [0,365]; only a negative base price is an error.
func SuggestPrice(req SuggestRequest) (Suggestion, error) {
	if req.BasePrice.IsNegative() {
		return Suggestion{}, Invalid("base_price", "must not be negative")
	}
	occupancy := float64(defaultOccupancy)
	if req.OccupancyPercent != nil {
		occupancy = clamp(*req.OccupancyPercent, 0, 100)
	}
	lead := defaultLeadDays
	if req.LeadTimeDays != nil {
		lead = int(clamp(float64(*req.LeadTimeDays), 0, maxLeadDays))
	}

	factors := []Factor{
		{Label: "Session demand", Percent: demandFactor(occupancy)},
		{Label: "Purchase lead time", Percent: leadTimeFactor(lead)},
		{Label: "Day of week", Percent: dayFactor(req.DayOfWeek)},
		{Label: "Room type", Percent: roomFactor(req.RoomType)},
	}
	var total float64
	for _, f := range factors {
		total += f.Percent
	}

	base := req.BasePrice
	lo := base.Mul(minFactor)
	hi := base.Mul(maxFactor)
	raw := base.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(total).Div(hundred)))
	suggested := decimal.Min(decimal.Max(raw, lo), hi)

	return Suggestion{
		BasePrice:         NewMoney(base),
		SuggestedPrice:    NewMoney(suggested),
		AllowedRange:      Range{Min: NewMoney(lo), Max: NewMoney(hi)},
		AdjustmentPercent: total,
		DayOfWeek:         req.DayOfWeek.canonical(),
		Factors:           factors,
	}, nil
}

// BuildGrid suggests a price for each of the given days with the default
// occupancy and lead time. An empty day list means the whole week.
func BuildGrid(base decimal.Decimal, room RoomType, week []DayOfWeek) ([]Suggestion, error) {
	if len(week) == 0 {
		week = Week
	}
	grid := make([]Suggestion, 0, len(week))
	for _, d := range week {
		s, err := SuggestPrice(SuggestRequest{BasePrice: base, DayOfWeek: d, RoomType: room})
		if err != nil {
			return nil, err
		}
		grid = append(grid, s)
	}
	return grid, nil
}

func demandFactor(occupancy float64) float64 {
	switch {
	case occupancy >= 85:
		return 15
	case occupancy >= 70:
		return 8
	case occupancy < 40:
		return -12
	}
	return 0
}

func leadTimeFactor(days int) float64 {
	switch {
	case days <= 2:
		return 7
	case days >= 15:
		return -10
	case days >= 7:
		return -5
	}
	return 0
}

func dayFactor(d DayOfWeek) float64 {
	switch d.canonical() {
	case Saturday, Sunday:
		return 8
	case Tuesday, Wednesday:
		return -5
	}
	return 0
}

func roomFactor(r RoomType) float64 {
	switch r.canonical() {
	case RoomVIP:
		return 18
	case RoomIMAX:
		return 28
	}
	return 0
}
