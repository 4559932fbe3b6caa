package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCard() CreditCard {
	return CreditCard{
		Number:    "4263971921001307",
		Month:     8,
		Year:      2008,
		FirstName: "Longbob",
		LastName:  "Longsen",
		Brand:     BrandVisa,
	}
}

func TestCreditCard_Name(t *testing.T) {
	assert.Equal(t, "Longbob Longsen", validCard().Name())
	assert.Equal(t, "Longsen", CreditCard{LastName: "Longsen"}.Name())
}

func TestCreditCard_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CreditCard)
		wantErr bool
	}{
		{name: "valid card", mutate: func(c *CreditCard) {}},
		{name: "valid card with cvn", mutate: func(c *CreditCard) { c.VerificationValue = "123" }},
		{name: "missing number", mutate: func(c *CreditCard) { c.Number = "" }, wantErr: true},
		{name: "non-digit number", mutate: func(c *CreditCard) { c.Number = "4263-9719-2100-1307" }, wantErr: true},
		{name: "month out of range", mutate: func(c *CreditCard) { c.Month = 13 }, wantErr: true},
		{name: "missing brand", mutate: func(c *CreditCard) { c.Brand = "" }, wantErr: true},
		{name: "unsupported brand", mutate: func(c *CreditCard) { c.Brand = "discover" }, wantErr: true},
		{name: "bad cvn", mutate: func(c *CreditCard) { c.VerificationValue = "12a" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)
			err := card.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddress_Validate(t *testing.T) {
	assert.NoError(t, Address{Zip: "BT2 8XX", Country: "Northern Ireland"}.Validate())
	assert.Error(t, Address{Country: "Northern Ireland"}.Validate())
	assert.Error(t, Address{Zip: "BT2 8XX"}.Validate())
}

func TestPayer_Validate(t *testing.T) {
	assert.NoError(t, Payer{ID: "1"}.Validate())
	assert.Error(t, Payer{FirstName: "John"}.Validate())
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "1", want: 100},
		{input: "10.5", want: 1050},
		{input: "0.01", want: 1},
		{input: "29.99", want: 2999},
		{input: "0", want: 0},
		{input: "1.005", wantErr: true},
		{input: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MinorUnits(decimal.RequireFromString(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
