package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEvent_DecodeAndExternalID(t *testing.T) {
	payload := []byte(`{
		"id": 820982911946154508,
		"name": "#9999",
		"email": "jon@example.com",
		"currency": "EUR",
		"financial_status": "paid",
		"subtotal_price": "398.00",
		"total_tax": "0.00",
		"total_price": "409.94",
		"created_at": "2021-12-31T19:00:00Z",
		"line_items": [
			{"id": 866550311766439020, "variant_id": 808950810, "sku": "IPOD2008PINK", "title": "IPod Nano - 8GB", "quantity": 1, "price": "199.00", "requires_shipping": true}
		],
		"shipping_address": {"first_name": "Steve", "last_name": "Shipper", "address1": "123 Shipping Street", "city": "Shippington", "country_code": "US", "zip": "40003"}
	}`)

	var event OrderEvent
	require.NoError(t, json.Unmarshal(payload, &event))

	assert.Equal(t, "820982911946154508", event.ExternalID())
	assert.Equal(t, "#9999", event.Name)
	assert.True(t, event.SubtotalPrice.Equal(decimal.RequireFromString("398.00")))
	assert.True(t, event.RequiresShipping())
	assert.Len(t, event.LineItems, 1)
	assert.Equal(t, "IPOD2008PINK", event.LineItems[0].SKU)
	assert.True(t, event.LineItems[0].Price.Equal(decimal.RequireFromString("199.00")))
	assert.Nil(t, event.CancelledAt)
}

func TestOrderEvent_RequiresShipping(t *testing.T) {
	event := OrderEvent{LineItems: []LineItemEvent{
		{SKU: "GIFTCARD", RequiresShipping: false},
	}}
	assert.False(t, event.RequiresShipping())

	event.LineItems = append(event.LineItems, LineItemEvent{SKU: "TSHIRT", RequiresShipping: true})
	assert.True(t, event.RequiresShipping())

	assert.False(t, (&OrderEvent{}).RequiresShipping())
}

func TestAddressEvent_ToAddress(t *testing.T) {
	var nilAddr *AddressEvent
	assert.Nil(t, nilAddr.ToAddress())

	addr := (&AddressEvent{
		FirstName:   "Ana",
		LastName:    "Garcia",
		Company:     "Acme",
		Address1:    "Calle Mayor 1",
		City:        "Madrid",
		CountryCode: "ES",
		Zip:         "28001",
	}).ToAddress()
	require.NotNil(t, addr)
	assert.Equal(t, "Ana Garcia", addr.Name)
	assert.Equal(t, "Acme", addr.Company)
	assert.Equal(t, "Calle Mayor 1", addr.Line1)
	assert.Equal(t, "ES", addr.CountryCode)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ana Garcia", DisplayName("Ana", "Garcia", "ana@example.com"))
	assert.Equal(t, "Ana", DisplayName("Ana", "", "ana@example.com"))
	assert.Equal(t, "Garcia", DisplayName("", "Garcia", "ana@example.com"))
	assert.Equal(t, "ana@example.com", DisplayName("", "", "ana@example.com"))
	assert.Equal(t, "", DisplayName("", "", ""))
}
