package models

// ServiceOffering is read-only reference data describing a purchasable
// service. PriceCents is in minor currency units. PricePlanID, when set,
// names an externally managed price plan at the payment gateway and takes
// precedence over PriceCents.
type ServiceOffering struct {
	ID          string
	Name        string
	PriceCents  int64
	PricePlanID *string
	Active      bool
}
