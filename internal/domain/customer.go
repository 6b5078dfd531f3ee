package domain

import "time"

// Customer is a shared master record. Many stores may link to the same
// customer through EntityLinks; the customer itself carries no store
// reference.
type Customer struct {
	ID              string    `json:"id" bson:"_id,omitempty"`
	Name            string    `json:"name" bson:"name"`
	Email           string    `json:"email" bson:"email"`
	Group           string    `json:"group" bson:"group"`
	BillingAddress  *Address  `json:"billing_address,omitempty" bson:"billing_address,omitempty"`
	ShippingAddress *Address  `json:"shipping_address,omitempty" bson:"shipping_address,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// DisplayName builds a customer name from name parts, falling back to the
// email address when both parts are empty.
func DisplayName(firstName, lastName, email string) string {
	name := firstName
	if lastName != "" {
		if name != "" {
			name += " "
		}
		name += lastName
	}
	if name == "" {
		name = email
	}
	return name
}
