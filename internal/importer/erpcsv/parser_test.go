package erpcsv_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apguard/apguard/internal/importer/erpcsv"
	"github.com/apguard/apguard/internal/po"
)

const vendorA = "7f9c24e8-3b12-4f6a-9c01-2d8a5b7e4f10"

func TestParse_GenericProfile(t *testing.T) {
	input := "PO Number,Vendor ID,Vendor Name,Description,Category,Quantity,Unit Price,Currency,Order Date,Status\n" +
		"PO-100," + vendorA + ",Acme Corp,Blue widgets,widgets,10,12.50,USD,2026-03-01,Open\n" +
		"PO-100," + vendorA + ",Acme Corp,Red widgets,widgets,4,20.00,USD,2026-03-01,Open\n" +
		"PO-101," + vendorA + ",Acme Corp,Gasket set,parts,2,99.99,EUR,2026-03-05,Closed\n"

	orders, err := erpcsv.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "PO-100", first.Number)
	assert.Equal(t, uuid.MustParse(vendorA), first.VendorID)
	assert.Equal(t, "Acme Corp", first.VendorName)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), first.OrderDate)
	assert.Equal(t, po.StatusOpen, first.Status)

	require.Len(t, first.Lines, 2)
	assert.Equal(t, po.Line{Description: "Blue widgets", Quantity: 10, UnitPrice: 1250, Category: "widgets"}, first.Lines[0])
	// 10*12.50 + 4*20.00 in minor units.
	assert.Equal(t, int64(20500), first.Total)

	second := orders[1]
	assert.Equal(t, "PO-101", second.Number)
	assert.Equal(t, "EUR", second.Currency)
	assert.Equal(t, po.StatusClosed, second.Status)
	assert.Equal(t, int64(19998), second.Total)
}

func TestParse_SAPProfile(t *testing.T) {
	input := "Purchasing Doc.,Vendor ID,Vendor Name,Short Text,Material Group,Order Quantity,Net Price,Currency,Document Date,Status\n" +
		"4500001," + vendorA + ",Acme GmbH,Dichtungssatz,parts,3,\"1.234,56\",EUR,15.02.2026,partially received\n"

	orders, err := erpcsv.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "4500001", order.Number)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), order.OrderDate)
	assert.Equal(t, po.StatusPartial, order.Status)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, int64(123456), order.Lines[0].UnitPrice)
}

func TestParse_BannerRowsBeforeHeader(t *testing.T) {
	input := "Purchase Order Report\n" +
		"Generated 2026-03-10\n" +
		"\n" +
		"PO Number,Vendor ID,Vendor Name,Description,Quantity,Unit Price,Order Date\n" +
		"PO-200," + vendorA + ",Acme Corp,Cable tray,5,8.00,2026-03-02\n"

	orders, err := erpcsv.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "PO-200", orders[0].Number)
	// No status column; imported orders default to open.
	assert.Equal(t, po.StatusOpen, orders[0].Status)
}

func TestParse_Errors(t *testing.T) {
	header := "PO Number,Vendor ID,Vendor Name,Description,Quantity,Unit Price,Order Date\n"

	type testCase struct {
		name    string
		input   string
		wantErr string
	}

	tests := []testCase{
		{
			name:    "UnknownLayout",
			input:   "Col A,Col B\n1,2\n",
			wantErr: "no known purchase order layout",
		},
		{
			name:    "SemicolonDelimited",
			input:   "PO Number;Vendor ID;Vendor Name;Description\nPO-1;x;y;z\n",
			wantErr: "re-export as comma-separated",
		},
		{
			name:    "InvalidVendorID",
			input:   header + "PO-1,not-a-uuid,Acme,Widget,1,5.00,2026-03-01\n",
			wantErr: "invalid vendor id",
		},
		{
			name:    "InvalidQuantity",
			input:   header + "PO-1," + vendorA + ",Acme,Widget,zero,5.00,2026-03-01\n",
			wantErr: "invalid quantity",
		},
		{
			name:    "NegativeQuantity",
			input:   header + "PO-1," + vendorA + ",Acme,Widget,-2,5.00,2026-03-01\n",
			wantErr: "invalid quantity",
		},
		{
			name:    "InvalidUnitPrice",
			input:   header + "PO-1," + vendorA + ",Acme,Widget,1,free,2026-03-01\n",
			wantErr: "invalid unit price",
		},
		{
			name:    "InvalidOrderDate",
			input:   header + "PO-1," + vendorA + ",Acme,Widget,1,5.00,yesterday\n",
			wantErr: "invalid order date",
		},
		{
			name:    "MissingDescription",
			input:   header + "PO-1," + vendorA + ",Acme,,1,5.00,2026-03-01\n",
			wantErr: "missing item description",
		},
		{
			name:    "HeaderOnly",
			input:   header,
			wantErr: "no purchase order rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := erpcsv.NewParser().Parse(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParse_SkipsBlankPONumbers(t *testing.T) {
	input := "PO Number,Vendor ID,Vendor Name,Description,Quantity,Unit Price,Order Date\n" +
		"PO-300," + vendorA + ",Acme Corp,Valve,1,10.00,2026-03-01\n" +
		",,,,,,\n"

	orders, err := erpcsv.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, orders, 1)
}
