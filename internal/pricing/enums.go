package pricing

import "strings"

// TicketType selects the ticket-type rule applied as the last pricing step.
type TicketType string

const (
	TicketFull   TicketType = "full"
	TicketHalf   TicketType = "half"
	TicketFamily TicketType = "family"
)

// RoomType drives the room surcharge and the room factor of a suggestion.
type RoomType string

const (
	RoomStandard RoomType = "standard"
	RoomVIP      RoomType = "vip"
	RoomIMAX     RoomType = "imax"
)

// DayOfWeek is the day a session runs on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

// Week lists the days monday first, the order used by price grids.
var Week = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// LoyaltyTier is the customer's loyalty program level.
type LoyaltyTier string

const (
	LoyaltyNone   LoyaltyTier = "none"
	LoyaltySilver LoyaltyTier = "silver"
	LoyaltyGold   LoyaltyTier = "gold"
)

var ticketTypes = map[string]TicketType{
	"full": TicketFull, "inteira": TicketFull,
	"half": TicketHalf, "meia": TicketHalf,
	"family": TicketFamily, "familia": TicketFamily,
}

var roomTypes = map[string]RoomType{
	"standard": RoomStandard, "padrao": RoomStandard,
	"vip":  RoomVIP,
	"imax": RoomIMAX,
}

var days = map[string]DayOfWeek{
	"monday": Monday, "mon": Monday, "segunda": Monday,
	"tuesday": Tuesday, "tue": Tuesday, "terca": Tuesday,
	"wednesday": Wednesday, "wed": Wednesday, "quarta": Wednesday,
	"thursday": Thursday, "thu": Thursday, "quinta": Thursday,
	"friday": Friday, "fri": Friday, "sexta": Friday,
	"saturday": Saturday, "sat": Saturday, "sabado": Saturday,
	"sunday": Sunday, "sun": Sunday, "domingo": Sunday,
}

var loyaltyTiers = map[string]LoyaltyTier{
	"none": LoyaltyNone, "nenhum": LoyaltyNone,
	"silver": LoyaltySilver,
	"gold":   LoyaltyGold,
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseTicketType accepts english names and the portuguese aliases used by
// the box office (inteira, meia, familia).
func ParseTicketType(s string) (TicketType, bool) {
	t, ok := ticketTypes[normalize(s)]
	return t, ok
}

func ParseRoomType(s string) (RoomType, bool) {
	r, ok := roomTypes[normalize(s)]
	return r, ok
}

func ParseDayOfWeek(s string) (DayOfWeek, bool) {
	d, ok := days[normalize(s)]
	return d, ok
}

func ParseLoyaltyTier(s string) (LoyaltyTier, bool) {
	l, ok := loyaltyTiers[normalize(s)]
	return l, ok
}

// canonical forms used inside the engine; unknown values map to "" and
// therefore to no modifier.
func (t TicketType) canonical() TicketType  { v, _ := ParseTicketType(string(t)); return v }
func (r RoomType) canonical() RoomType      { v, _ := ParseRoomType(string(r)); return v }
func (d DayOfWeek) canonical() DayOfWeek    { v, _ := ParseDayOfWeek(string(d)); return v }
func (l LoyaltyTier) canonical() LoyaltyTier { v, _ := ParseLoyaltyTier(string(l)); return v }

// IsWeekend reports whether d is saturday or sunday.
func (d DayOfWeek) IsWeekend() bool {
	c := d.canonical()
	return c == Saturday || c == Sunday
}
