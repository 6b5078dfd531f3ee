package entity

import (
	"time"

	"storebridge-sync-core/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Monetary amounts are stored as decimal strings so no precision is lost in
// BSON round-trips.

// MongoOrderDoc represents a materialized order in MongoDB
type MongoOrderDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	StoreID        string             `bson:"storeId"`
	ExternalID     string             `bson:"externalId"`
	ExternalNumber string             `bson:"externalNumber"`
	Series         string             `bson:"series"`
	CustomerID     string             `bson:"customerId"`
	Lines          []MongoOrderLine   `bson:"lines"`
	Currency       string             `bson:"currency"`
	Subtotal       string             `bson:"subtotal"`
	TaxTotal       string             `bson:"taxTotal"`
	Total          string             `bson:"total"`
	TaxAccount     string             `bson:"taxAccount"`
	CostCenter     string             `bson:"costCenter"`
	ShippingTo     *MongoAddress      `bson:"shippingTo,omitempty"`
	BillingTo      *MongoAddress      `bson:"billingTo,omitempty"`
	FinancialState string             `bson:"financialState"`
	Status         string             `bson:"status"`
	Note           string             `bson:"note"`
	PlacedAt       time.Time          `bson:"placedAt"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

// MongoOrderLine represents one resolved order line in MongoDB
type MongoOrderLine struct {
	MasterItemID string `bson:"masterItemId"`
	SKU          string `bson:"sku"`
	Description  string `bson:"description"`
	Quantity     string `bson:"quantity"`
	Rate         string `bson:"rate"`
	Amount       string `bson:"amount"`
	Warehouse    string `bson:"warehouse"`
}

// MongoAddress represents a postal address in MongoDB
type MongoAddress struct {
	Name        string `bson:"name"`
	Company     string `bson:"company"`
	Line1       string `bson:"line1"`
	Line2       string `bson:"line2"`
	City        string `bson:"city"`
	Province    string `bson:"province"`
	CountryCode string `bson:"countryCode"`
	Zip         string `bson:"zip"`
	Phone       string `bson:"phone"`
}

// MongoInvoiceDoc represents a derived invoice in MongoDB
type MongoInvoiceDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OrderID         string             `bson:"orderId"`
	StoreID         string             `bson:"storeId"`
	ExternalOrderID string             `bson:"externalOrderId"`
	Series          string             `bson:"series"`
	Total           string             `bson:"total"`
	Paid            bool               `bson:"paid"`
	PaymentRef      string             `bson:"paymentRef"`
	Cancelled       bool               `bson:"cancelled"`
	PostingDate     time.Time          `bson:"postingDate"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

// MongoFulfillmentDoc represents a derived fulfillment in MongoDB
type MongoFulfillmentDoc struct {
	ID                    primitive.ObjectID     `bson:"_id,omitempty"`
	OrderID               string                 `bson:"orderId"`
	StoreID               string                 `bson:"storeId"`
	ExternalOrderID       string                 `bson:"externalOrderId"`
	ExternalFulfillmentID string                 `bson:"externalFulfillmentId"`
	Series                string                 `bson:"series"`
	Warehouse             string                 `bson:"warehouse"`
	Lines                 []MongoFulfillmentLine `bson:"lines"`
	TrackingNumber        string                 `bson:"trackingNumber"`
	Carrier               string                 `bson:"carrier"`
	Cancelled             bool                   `bson:"cancelled"`
	PostingDate           time.Time              `bson:"postingDate"`
	CreatedAt             time.Time              `bson:"createdAt"`
}

// MongoFulfillmentLine represents one shipped line in MongoDB
type MongoFulfillmentLine struct {
	MasterItemID string `bson:"masterItemId"`
	SKU          string `bson:"sku"`
	Quantity     string `bson:"quantity"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderDoc) ToDomain() *domain.Order {
	lines := make([]domain.OrderLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, domain.OrderLine{
			MasterItemID: l.MasterItemID,
			SKU:          l.SKU,
			Description:  l.Description,
			Quantity:     decimalFromString(l.Quantity),
			Rate:         decimalFromString(l.Rate),
			Amount:       decimalFromString(l.Amount),
			Warehouse:    l.Warehouse,
		})
	}

	return &domain.Order{
		ID:             d.ID.Hex(),
		StoreID:        d.StoreID,
		ExternalID:     d.ExternalID,
		ExternalNumber: d.ExternalNumber,
		Series:         d.Series,
		CustomerID:     d.CustomerID,
		Lines:          lines,
		Currency:       d.Currency,
		Subtotal:       decimalFromString(d.Subtotal),
		TaxTotal:       decimalFromString(d.TaxTotal),
		Total:          decimalFromString(d.Total),
		TaxAccount:     d.TaxAccount,
		CostCenter:     d.CostCenter,
		ShippingTo:     d.ShippingTo.toDomain(),
		BillingTo:      d.BillingTo.toDomain(),
		FinancialState: d.FinancialState,
		Status:         domain.OrderStatus(d.Status),
		Note:           d.Note,
		PlacedAt:       d.PlacedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MongoOrderDocFromDomain converts a domain entity to a MongoDB document
func MongoOrderDocFromDomain(order *domain.Order) *MongoOrderDoc {
	lines := make([]MongoOrderLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, MongoOrderLine{
			MasterItemID: l.MasterItemID,
			SKU:          l.SKU,
			Description:  l.Description,
			Quantity:     l.Quantity.String(),
			Rate:         l.Rate.String(),
			Amount:       l.Amount.String(),
			Warehouse:    l.Warehouse,
		})
	}

	doc := &MongoOrderDoc{
		StoreID:        order.StoreID,
		ExternalID:     order.ExternalID,
		ExternalNumber: order.ExternalNumber,
		Series:         order.Series,
		CustomerID:     order.CustomerID,
		Lines:          lines,
		Currency:       order.Currency,
		Subtotal:       order.Subtotal.String(),
		TaxTotal:       order.TaxTotal.String(),
		Total:          order.Total.String(),
		TaxAccount:     order.TaxAccount,
		CostCenter:     order.CostCenter,
		ShippingTo:     mongoAddressFromDomain(order.ShippingTo),
		BillingTo:      mongoAddressFromDomain(order.BillingTo),
		FinancialState: order.FinancialState,
		Status:         string(order.Status),
		Note:           order.Note,
		PlacedAt:       order.PlacedAt,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}

	if order.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(order.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoInvoiceDoc) ToDomain() *domain.Invoice {
	return &domain.Invoice{
		ID:              d.ID.Hex(),
		OrderID:         d.OrderID,
		StoreID:         d.StoreID,
		ExternalOrderID: d.ExternalOrderID,
		Series:          d.Series,
		Total:           decimalFromString(d.Total),
		Paid:            d.Paid,
		PaymentRef:      d.PaymentRef,
		Cancelled:       d.Cancelled,
		PostingDate:     d.PostingDate,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// MongoInvoiceDocFromDomain converts a domain entity to a MongoDB document
func MongoInvoiceDocFromDomain(invoice *domain.Invoice) *MongoInvoiceDoc {
	doc := &MongoInvoiceDoc{
		OrderID:         invoice.OrderID,
		StoreID:         invoice.StoreID,
		ExternalOrderID: invoice.ExternalOrderID,
		Series:          invoice.Series,
		Total:           invoice.Total.String(),
		Paid:            invoice.Paid,
		PaymentRef:      invoice.PaymentRef,
		Cancelled:       invoice.Cancelled,
		PostingDate:     invoice.PostingDate,
		CreatedAt:       invoice.CreatedAt,
		UpdatedAt:       invoice.UpdatedAt,
	}

	if invoice.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(invoice.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoFulfillmentDoc) ToDomain() *domain.Fulfillment {
	lines := make([]domain.FulfillmentLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, domain.FulfillmentLine{
			MasterItemID: l.MasterItemID,
			SKU:          l.SKU,
			Quantity:     decimalFromString(l.Quantity),
		})
	}

	return &domain.Fulfillment{
		ID:                    d.ID.Hex(),
		OrderID:               d.OrderID,
		StoreID:               d.StoreID,
		ExternalOrderID:       d.ExternalOrderID,
		ExternalFulfillmentID: d.ExternalFulfillmentID,
		Series:                d.Series,
		Warehouse:             d.Warehouse,
		Lines:                 lines,
		TrackingNumber:        d.TrackingNumber,
		Carrier:               d.Carrier,
		Cancelled:             d.Cancelled,
		PostingDate:           d.PostingDate,
		CreatedAt:             d.CreatedAt,
	}
}

// MongoFulfillmentDocFromDomain converts a domain entity to a MongoDB document
func MongoFulfillmentDocFromDomain(fulfillment *domain.Fulfillment) *MongoFulfillmentDoc {
	lines := make([]MongoFulfillmentLine, 0, len(fulfillment.Lines))
	for _, l := range fulfillment.Lines {
		lines = append(lines, MongoFulfillmentLine{
			MasterItemID: l.MasterItemID,
			SKU:          l.SKU,
			Quantity:     l.Quantity.String(),
		})
	}

	doc := &MongoFulfillmentDoc{
		OrderID:               fulfillment.OrderID,
		StoreID:               fulfillment.StoreID,
		ExternalOrderID:       fulfillment.ExternalOrderID,
		ExternalFulfillmentID: fulfillment.ExternalFulfillmentID,
		Series:                fulfillment.Series,
		Warehouse:             fulfillment.Warehouse,
		Lines:                 lines,
		TrackingNumber:        fulfillment.TrackingNumber,
		Carrier:               fulfillment.Carrier,
		Cancelled:             fulfillment.Cancelled,
		PostingDate:           fulfillment.PostingDate,
		CreatedAt:             fulfillment.CreatedAt,
	}

	if fulfillment.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(fulfillment.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

func (a *MongoAddress) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Name:        a.Name,
		Company:     a.Company,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		Province:    a.Province,
		CountryCode: a.CountryCode,
		Zip:         a.Zip,
		Phone:       a.Phone,
	}
}

func mongoAddressFromDomain(a *domain.Address) *MongoAddress {
	if a == nil {
		return nil
	}
	return &MongoAddress{
		Name:        a.Name,
		Company:     a.Company,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		Province:    a.Province,
		CountryCode: a.CountryCode,
		Zip:         a.Zip,
		Phone:       a.Phone,
	}
}

func decimalFromString(s string) decimal.Decimal {
	if s == "" {
		return decimal.Decimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}
