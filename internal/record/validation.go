package record

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const MaxDescriptionLength = 200

var (
	// amounts are stored as numeric(18,2)
	minAmount = decimal.New(1, -2)
	maxAmount = decimal.New(1, 16)
)

// Input is the create/update payload. It has no id: on update the path id
// is authoritative.
type Input struct {
	Description string           `json:"description" validate:"required,max=200"`
	Amount      *decimal.Decimal `json:"amount" validate:"required,money,moneymax"`
	Date        *Date            `json:"date" validate:"required,notfuture"`
}

// ValidationError maps JSON field names to human readable messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals validate as their exact string; dates validate as time.Time
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch val := field.Interface().(type) {
		case decimal.Decimal:
			return val.String()
		case Date:
			if val.IsZero() {
				return nil
			}
			return val.Time
		}
		return nil
	}, decimal.Decimal{}, Date{})

	for tag, fn := range map[string]validator.Func{
		"notfuture": notInFuture,
		"money":     validMoney,
		"moneymax":  belowMaxAmount,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

// validMoney accepts amounts of at least 0.01 with no more than two decimal
// places, so the stored value equals the accepted one.
func validMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.GreaterThanOrEqual(minAmount) && d.Equal(d.Round(2))
}

func belowMaxAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.LessThan(maxAmount)
}

// notInFuture compares calendar dates against the local today. A missing
// value passes; "required" is what rejects absence.
func notInFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return true
	}
	return !DateOf(t).After(Today())
}

// Normalize trims the description so blank strings fail "required".
func (in *Input) Normalize() {
	in.Description = strings.TrimSpace(in.Description)
}

// Validate returns nil or a *ValidationError.
func (in Input) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	verr := &ValidationError{Fields: make(map[string][]string)}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = append(verr.Fields[fe.Field()], messageFor(fe))
	}
	return verr
}

func messageFor(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "money":
		return label + " must be a positive number."
	case "moneymax":
		return fmt.Sprintf("%s must be less than %s.", label, maxAmount.String())
	case "notfuture":
		return "The date cannot be in the future."
	}
	return label + " is invalid."
}

func fieldLabel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
