package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Fulfilment statuses an admin may move an order to
	_ = validate.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "CONFIRMED", "SHIPPED", "OUT_FOR_DELIVERY", "DELIVERED", "CANCELLED":
			return true
		}
		return false
	})

	// Gateway identifiers are short opaque tokens without whitespace
	_ = validate.RegisterValidation("gateway_id", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v != "" && len(v) <= 64 && !strings.ContainsAny(v, " \t\r\n|")
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": "Invalid request"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[field] = "This field is required"
		case "uuid", "uuid4":
			fields[field] = "Must be a valid UUID"
		case "gte":
			fields[field] = "Value must be at least " + fe.Param()
		case "lte":
			fields[field] = "Value must be at most " + fe.Param()
		case "max":
			fields[field] = "Value is too long (max: " + fe.Param() + ")"
		case "hexadecimal":
			fields[field] = "Must be a hex string"
		case "order_status":
			fields[field] = "Must be one of CONFIRMED, SHIPPED, OUT_FOR_DELIVERY, DELIVERED, CANCELLED"
		case "gateway_id":
			fields[field] = "Invalid gateway identifier"
		default:
			fields[field] = "Invalid value"
		}
	}
	return fields
}
