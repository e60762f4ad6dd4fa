package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/payment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CartItem is one line of the client cart. Price is the unit price in major
// currency units; it stays decimal until the final conversion to minor units.
type CartItem struct {
	Name     string          `json:"name" validate:"required"`
	Size     string          `json:"size"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity" validate:"required,min=1"`
	Image    string          `json:"image" validate:"omitempty,url"`
}

// Shipping carries the customer contact details collected before checkout.
type Shipping struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// Request is the checkout-session creation payload.
type Request struct {
	Items    []CartItem `json:"items" validate:"required,min=1,dive"`
	Shipping Shipping   `json:"shipping"`
	Currency string     `json:"currency" validate:"omitempty,alpha,len=3"`
	UserID   string     `json:"userId"`
}

// Summary is the priced view of a cart after tax.
type Summary struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	TaxLabel string
}

// ValidateRequest runs structural validation. Called before any provider
// interaction so malformed carts never leave the process.
func ValidateRequest(req Request) error {
	if err := validate.Struct(req); err != nil {
		return common.NewValidation(validationMessage(err), err)
	}
	for i, item := range req.Items {
		if !item.Price.IsPositive() {
			return common.NewValidation(fmt.Sprintf("items[%d]: price must be greater than zero", i), nil)
		}
	}
	return nil
}

// BuildLineItems converts the cart into provider charge lines plus a tax
// line. All arithmetic is decimal; minor units appear only at the final
// conversion of each line.
func BuildLineItems(items []CartItem, taxRate decimal.Decimal) ([]payment.LineItem, Summary, error) {
	lines := make([]payment.LineItem, 0, len(items)+1)
	subtotal := decimal.Zero
	for i, item := range items {
		unitAmount := minorUnits(item.Price)
		if unitAmount <= 0 {
			return nil, Summary{}, common.NewValidation(fmt.Sprintf("items[%d]: amount rounds to zero", i), nil)
		}
		lines = append(lines, payment.LineItem{
			Name:        item.Name,
			Description: itemDescription(item),
			ImageURL:    item.Image,
			UnitAmount:  unitAmount,
			Quantity:    item.Quantity,
		})
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(item.Quantity)))
	}

	tax := subtotal.Mul(taxRate).Round(2)
	label := taxLabel(taxRate)
	if tax.IsPositive() {
		lines = append(lines, payment.LineItem{
			Name:       label,
			UnitAmount: minorUnits(tax),
			Quantity:   1,
		})
	}
	summary := Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
		TaxLabel: label,
	}
	return lines, summary, nil
}

// minorUnits converts a major-unit decimal amount into integer minor units,
// rounding halves away from zero.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func itemDescription(item CartItem) string {
	if strings.TrimSpace(item.Size) == "" {
		return ""
	}
	return "Size: " + item.Size
}

func taxLabel(rate decimal.Decimal) string {
	return fmt.Sprintf("Tax (%s%%)", rate.Mul(decimal.NewFromInt(100)).String())
}

func validationMessage(err error) string {
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return "invalid request payload"
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		switch f.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fieldPath(f))
		case "min":
			return fmt.Sprintf("%s must have at least %s entries", fieldPath(f), f.Param())
		case "email":
			return fmt.Sprintf("%s must be a valid email address", fieldPath(f))
		case "len", "alpha":
			return fmt.Sprintf("%s must be a three-letter currency code", fieldPath(f))
		case "url":
			return fmt.Sprintf("%s must be a valid URL", fieldPath(f))
		}
		return fmt.Sprintf("%s is invalid", fieldPath(f))
	}
	return "invalid request payload"
}

func fieldPath(f validator.FieldError) string {
	path := f.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	return path
}
