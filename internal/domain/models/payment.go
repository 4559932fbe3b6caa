package models

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// CardBrand identifies the card network
type CardBrand string

const (
	BrandVisa            CardBrand = "visa"
	BrandMaster          CardBrand = "master"
	BrandAmericanExpress CardBrand = "american_express"
	BrandDinersClub      CardBrand = "diners_club"
	BrandSwitch          CardBrand = "switch"
	BrandSolo            CardBrand = "solo"
	BrandLaser           CardBrand = "laser"
)

// SupportedBrands lists the brands the gateway accepts
var SupportedBrands = []CardBrand{
	BrandVisa,
	BrandMaster,
	BrandAmericanExpress,
	BrandDinersClub,
	BrandSwitch,
	BrandSolo,
	BrandLaser,
}

var cardNumberPattern = regexp.MustCompile(`^[0-9]{12,19}$`)

// CreditCard is the card presented for a card-bearing operation
type CreditCard struct {
	Number            string
	Month             int
	Year              int
	FirstName         string
	LastName          string
	Brand             CardBrand
	VerificationValue string // CVV/CVN; optional
}

// Name returns the cardholder name as printed on the card
func (c CreditCard) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks the fields the gateway needs to build a card block
func (c CreditCard) Validate() error {
	brands := make([]interface{}, len(SupportedBrands))
	for i, b := range SupportedBrands {
		brands[i] = b
	}

	return validation.ValidateStruct(&c,
		validation.Field(&c.Number,
			validation.Required.Error("card number is required"),
			validation.Match(cardNumberPattern).Error("card number must be 12-19 digits"),
		),
		validation.Field(&c.Month, validation.Required, validation.Min(1), validation.Max(12)),
		validation.Field(&c.Year, validation.Required, validation.Min(1)),
		validation.Field(&c.Brand,
			validation.Required.Error("card brand is required"),
			validation.In(brands...).Error("card brand is not supported"),
		),
		validation.Field(&c.VerificationValue,
			validation.When(c.VerificationValue != "",
				validation.Match(regexp.MustCompile(`^[0-9]{3,4}$`)).Error("verification value must be 3-4 digits"),
			),
		),
	)
}

// Address is a billing or shipping address
type Address struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Country  string
	Zip      string
}

// Validate requires the parts used by the address-verification block
func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Zip, validation.Required.Error("postal code is required")),
		validation.Field(&a.Country, validation.Required.Error("country is required")),
	)
}

// Payer identifies the customer record for card storage and recurring operations
type Payer struct {
	ID        string
	FirstName string
	LastName  string
}

// Validate requires a payer reference
func (p Payer) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required.Error("payer id is required")),
	)
}

// MinorUnits converts a major-unit amount (e.g. 10.50) to integer minor units (1050).
// Amounts with more than two decimal places are rejected rather than rounded.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount has more than two decimal places: %s", amount)
	}
	return cents.IntPart(), nil
}
