package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cinema-ops/internal/pricing"
)

// Validate is shared by the services and registered as the echo validator.
// Besides the stock tags it knows ticket_type, room_type, day_of_week and
// loyalty_tier, which accept exactly what the pricing parsers accept.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	enum := func(parse func(string) bool) validator.Func {
		return func(fl validator.FieldLevel) bool { return parse(fl.Field().String()) }
	}
	_ = v.RegisterValidation("ticket_type", enum(func(s string) bool { _, ok := pricing.ParseTicketType(s); return ok }))
	_ = v.RegisterValidation("room_type", enum(func(s string) bool { _, ok := pricing.ParseRoomType(s); return ok }))
	_ = v.RegisterValidation("day_of_week", enum(func(s string) bool { _, ok := pricing.ParseDayOfWeek(s); return ok }))
	_ = v.RegisterValidation("loyalty_tier", enum(func(s string) bool { _, ok := pricing.ParseLoyaltyTier(s); return ok }))
	return v
}

// ValidateStruct runs the validator and turns the first failure into a
// pricing.ValidationError so callers only deal with one error shape.
func ValidateStruct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return pricing.Invalid(fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "ticket_type":
		return "must be one of full, half, family"
	case "room_type":
		return "must be one of standard, vip, imax"
	case "day_of_week":
		return "must be a day of the week"
	case "loyalty_tier":
		return "must be one of none, silver, gold"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
