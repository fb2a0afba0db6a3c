package erpcsv

// Profile describes the column layout of one purchasing-system CSV export.
// Supporting a new system is adding a Profile to the profiles slice.
type Profile struct {
	Name         string
	NumberCol    string
	VendorIDCol  string
	VendorCol    string
	ItemCol      string
	CategoryCol  string
	QuantityCol  string
	UnitPriceCol string
	CurrencyCol  string
	DateCol      string
	StatusCol    string // optional; absent means imported orders are open
	DateLayout   string
}

// requiredCols lists the columns that must all be present for the profile
// to claim a header row.
func (p Profile) requiredCols() []string {
	return []string{
		p.NumberCol, p.VendorIDCol, p.VendorCol, p.ItemCol,
		p.QuantityCol, p.UnitPriceCol, p.DateCol,
	}
}

// profiles is ordered most-specific first so a generic layout never
// shadows a system-specific one.
var profiles = []Profile{
	{
		Name:         "sap",
		NumberCol:    "Purchasing Doc.",
		VendorIDCol:  "Vendor ID",
		VendorCol:    "Vendor Name",
		ItemCol:      "Short Text",
		CategoryCol:  "Material Group",
		QuantityCol:  "Order Quantity",
		UnitPriceCol: "Net Price",
		CurrencyCol:  "Currency",
		DateCol:      "Document Date",
		StatusCol:    "Status",
		DateLayout:   "02.01.2006",
	},
	{
		Name:         "generic",
		NumberCol:    "PO Number",
		VendorIDCol:  "Vendor ID",
		VendorCol:    "Vendor Name",
		ItemCol:      "Description",
		CategoryCol:  "Category",
		QuantityCol:  "Quantity",
		UnitPriceCol: "Unit Price",
		CurrencyCol:  "Currency",
		DateCol:      "Order Date",
		StatusCol:    "Status",
		DateLayout:   "2006-01-02",
	},
}
