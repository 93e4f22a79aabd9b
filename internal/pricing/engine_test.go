package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pct(v float64) *float64 { return &v }

func mustPrice(t *testing.T, req PriceRequest) PriceBreakdown {
	t.Helper()
	b, err := ComputeTicketPrice(req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return b
}

func assertMoney(t *testing.T, label string, got Money, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", label, want, got.StringFixed(2))
	}
}

func TestRound2_HalfUp(t *testing.T) {
	cases := map[string]string{
		"0.125":  "0.13",
		"-0.125": "-0.12",
		"1.005":  "1.01",
		"2.344":  "2.34",
		"10":     "10",
	}
	for in, want := range cases {
		if got := Round2(dec(in)); !got.Equal(dec(want)) {
			t.Fatalf("Round2(%s): expected %s, got %s", in, want, got)
		}
	}
}

func TestComputeTicketPrice_NoModifiersReturnsBase(t *testing.T) {
	for _, base := range []string{"0", "12.5", "19.999", "30"} {
		b := mustPrice(t, PriceRequest{BasePrice: dec(base), TicketType: TicketFull})
		assertMoney(t, "total", b.Total, Round2(dec(base)).String())
		if len(b.Modifiers) != 0 {
			t.Fatalf("expected no modifiers, got %+v", b.Modifiers)
		}
	}
}

func TestComputeTicketPrice_CompoundingOrder(t *testing.T) {
	b := mustPrice(t, PriceRequest{
		BasePrice:  dec("20"),
		TicketType: TicketFull,
		Options: Options{
			RoomType:         RoomVIP,
			PremiumSeat:      true,
			DayOfWeek:        Saturday,
			OccupancyPercent: pct(85),
			LoyaltyTier:      LoyaltyGold,
			CouponPercent:    10,
		},
	})

	// 20 -> +20% 24 -> +15% 27.6 -> +10% 30.36 -> +12% 34.00 -> -10% 30.60 -> -10% 27.54
	want := []struct {
		label  string
		amount string
	}{
		{"VIP room", "4"},
		{"Premium seat", "3.6"},
		{"Weekend demand", "2.76"},
		{"High session demand", "3.64"},
		{"Loyalty program gold", "-3.4"},
		{"Coupon", "-3.06"},
	}
	if len(b.Modifiers) != len(want) {
		t.Fatalf("expected %d modifiers, got %+v", len(want), b.Modifiers)
	}
	for i, w := range want {
		if b.Modifiers[i].Label != w.label {
			t.Fatalf("modifier %d: expected %q, got %q", i, w.label, b.Modifiers[i].Label)
		}
		assertMoney(t, w.label, b.Modifiers[i].Amount, w.amount)
	}
	assertMoney(t, "total", b.Total, "27.54")
}

func TestComputeTicketPrice_DubbingNeedsFlagAndPercent(t *testing.T) {
	b := mustPrice(t, PriceRequest{BasePrice: dec("10"), Options: Options{DubbingSurchargePercent: 10}})
	assertMoney(t, "not dubbed", b.Total, "10")

	b = mustPrice(t, PriceRequest{BasePrice: dec("10"), Options: Options{Dubbed: true}})
	assertMoney(t, "no percent", b.Total, "10")

	b = mustPrice(t, PriceRequest{BasePrice: dec("10"), Options: Options{Dubbed: true, DubbingSurchargePercent: 50}})
	assertMoney(t, "clamped to 30", b.Total, "13")
}

func TestComputeTicketPrice_FractionalDubbingRoundsHalfCentUp(t *testing.T) {
	cases := []struct {
		base   string
		dub    float64
		amount string
		total  string
	}{
		{"20", 0.125, "0.03", "20.03"}, // 0.025
		{"1", 0.5, "0.01", "1.01"},     // 0.005
		{"7", 1.5, "0.11", "7.11"},     // 0.105
	}
	for _, tc := range cases {
		b := mustPrice(t, PriceRequest{BasePrice: dec(tc.base), Options: Options{Dubbed: true, DubbingSurchargePercent: tc.dub}})
		if len(b.Modifiers) != 1 || b.Modifiers[0].Label != "Dubbed session" {
			t.Fatalf("base %s: expected one dubbing step, got %+v", tc.base, b.Modifiers)
		}
		assertMoney(t, "dubbing step", b.Modifiers[0].Amount, tc.amount)
		assertMoney(t, "total", b.Total, tc.total)
	}

	// The rounded unit feeds the next step: 20.03 * 10% = 2.003 -> 2.00.
	b := mustPrice(t, PriceRequest{BasePrice: dec("20"), Options: Options{Dubbed: true, DubbingSurchargePercent: 0.125, DayOfWeek: Saturday}})
	assertMoney(t, "weekend step", b.Modifiers[1].Amount, "2")
	assertMoney(t, "total", b.Total, "22.03")
}

func TestComputeTicketPrice_CouponCappedAt80(t *testing.T) {
	b := mustPrice(t, PriceRequest{BasePrice: dec("50"), Options: Options{CouponPercent: 95}})
	assertMoney(t, "total", b.Total, "10")
	if b.Modifiers[0].Percent != -80 {
		t.Fatalf("expected -80%%, got %v", b.Modifiers[0].Percent)
	}
}

func TestComputeTicketPrice_OccupancyBelowThresholdIgnored(t *testing.T) {
	b := mustPrice(t, PriceRequest{BasePrice: dec("10"), Options: Options{OccupancyPercent: pct(79.9)}})
	assertMoney(t, "total", b.Total, "10")
}

func TestComputeTicketPrice_HalfIsHalfOfFull(t *testing.T) {
	option := []Options{
		{},
		{RoomType: RoomIMAX},
		{RoomType: RoomVIP, PremiumSeat: true, DayOfWeek: Sunday},
		{LoyaltyTier: LoyaltySilver, CouponPercent: 7},
		{Dubbed: true, DubbingSurchargePercent: 12.5, OccupancyPercent: pct(90)},
	}
	for _, base := range []string{"0.03", "9.99", "17.35", "21", "33.33"} {
		for _, o := range option {
			full := mustPrice(t, PriceRequest{BasePrice: dec(base), TicketType: TicketFull, Options: o})
			halfPrice := mustPrice(t, PriceRequest{BasePrice: dec(base), TicketType: TicketHalf, Options: o})
			want := Round2(full.Total.Mul(dec("0.5")))
			if !halfPrice.Total.Equal(want) {
				t.Fatalf("base %s %+v: expected half %s, got %s", base, o, want, halfPrice.Total)
			}
		}
	}
}

func TestComputeTicketPrice_FamilyOfFourGetsDiscount(t *testing.T) {
	b := mustPrice(t, PriceRequest{BasePrice: dec("10"), TicketType: TicketFamily, NumberOfPeople: 4})
	assertMoney(t, "total", b.Total, "38")
	if len(b.Modifiers) != 2 {
		t.Fatalf("expected multiplier and discount, got %+v", b.Modifiers)
	}
	if b.Modifiers[0].Percent != 0 {
		t.Fatalf("expected multiplier with 0%%, got %v", b.Modifiers[0].Percent)
	}
	assertMoney(t, "multiplier", b.Modifiers[0].Amount, "30")
	assertMoney(t, "discount", b.Modifiers[1].Amount, "-2")
}

func TestComputeTicketPrice_SmallFamilyHasNoDiscount(t *testing.T) {
	for people := 1; people <= 3; people++ {
		for _, qty := range []int{1, 2, 5} {
			b := mustPrice(t, PriceRequest{BasePrice: dec("12.5"), TicketType: TicketFamily, NumberOfPeople: people, Quantity: qty})
			want := dec("12.5").Mul(decimal.NewFromInt(int64(people * qty)))
			if !b.Total.Equal(want) {
				t.Fatalf("people %d qty %d: expected %s, got %s", people, qty, want, b.Total)
			}
			if len(b.Modifiers) != 1 {
				t.Fatalf("expected only the multiplier entry, got %+v", b.Modifiers)
			}
		}
	}
}

func TestComputeTicketPrice_QuantityScalesUnit(t *testing.T) {
	b := mustPrice(t, PriceRequest{BasePrice: dec("20"), TicketType: TicketFull, Quantity: 3, Options: Options{RoomType: RoomIMAX}})
	assertMoney(t, "unit", b.UnitPrice, "26")
	assertMoney(t, "total", b.Total, "78")
	if b.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", b.Quantity)
	}
}

func TestComputeTicketPrice_UnknownEnumsFailOpen(t *testing.T) {
	b := mustPrice(t, PriceRequest{
		BasePrice:  dec("15"),
		TicketType: "student",
		Options:    Options{RoomType: "4dx", DayOfWeek: "holiday", LoyaltyTier: "platinum"},
	})
	assertMoney(t, "total", b.Total, "15")
}

func TestComputeTicketPrice_AcceptsPortugueseAliases(t *testing.T) {
	b := mustPrice(t, PriceRequest{
		BasePrice:  dec("20"),
		TicketType: "meia",
		Options:    Options{RoomType: "padrao", DayOfWeek: "sabado"},
	})
	assertMoney(t, "total", b.Total, "11")
}

func TestComputeTicketPrice_InvalidInput(t *testing.T) {
	_, err := ComputeTicketPrice(PriceRequest{BasePrice: dec("-1")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	_, err = ComputeTicketPrice(PriceRequest{BasePrice: dec("10"), TicketType: TicketFamily, NumberOfPeople: 0})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "number_of_people" {
		t.Fatalf("expected number_of_people validation error, got %v", err)
	}
}
