package domain

// ExtractedRecord is the flat set of fields pulled out of one analyzed
// shipping document. This is the shape persisted by the record store; the
// table is fully replaced on each save, so there is no identity beyond the
// field values themselves.
type ExtractedRecord struct {
	Page           string `json:"page"`
	ShipDate       string `json:"ship_date"`
	OrderNumber    string `json:"order_number"`
	DeliveryNumber string `json:"delivery_number"`
	StaffName      string `json:"staff_name"`
	TotalExTax     string `json:"total_ex_tax"`
}
