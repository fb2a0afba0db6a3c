package erpcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	enc "github.com/apguard/apguard/internal/encoding"
	"github.com/apguard/apguard/internal/po"
)

// Parser reads purchasing-system CSV exports and produces purchase orders.
// The layout is auto-detected by matching column headers against known
// profiles; rows sharing a PO number fold into one order with many lines.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]*po.PurchaseOrder, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if sniffSemicolon(rows) {
		return nil, fmt.Errorf("semicolon-delimited export: re-export as comma-separated CSV")
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no known purchase order layout found in header")
	}

	return foldRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

// sniffSemicolon spots single-column rows whose cell contains semicolons,
// the signature of a mis-delimited export.
func sniffSemicolon(rows [][]string) bool {
	for _, row := range rows[:min(len(rows), 3)] {
		if len(row) == 1 && strings.Count(row[0], ";") >= 3 {
			return true
		}
	}

	return false
}

type colIndex map[string]int

// detectProfile scans rows for a header matching a known profile. Some
// systems prepend report banners, so the header is not always row zero.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// foldRows groups line rows by PO number, preserving first-seen order.
func foldRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]*po.PurchaseOrder, error) {
	byNumber := map[string]*po.PurchaseOrder{}

	var orders []*po.PurchaseOrder

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, past the header

		number := cellValue(row, cols[p.NumberCol])
		if number == "" {
			continue
		}

		vendorID, err := uuid.Parse(cellValue(row, cols[p.VendorIDCol]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid vendor id: %w", rowNum, err)
		}

		line, err := parseLine(p, cols, row, rowNum)
		if err != nil {
			return nil, err
		}

		order, ok := byNumber[number]
		if !ok {
			orderDate, err := time.Parse(p.DateLayout, cellValue(row, cols[p.DateCol]))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid order date: %w", rowNum, err)
			}

			order = &po.PurchaseOrder{
				Number:     number,
				VendorID:   vendorID,
				VendorName: cellValue(row, cols[p.VendorCol]),
				Currency:   currencyOrDefault(row, cols, p),
				OrderDate:  orderDate,
				Status:     statusOrOpen(row, cols, p),
			}

			byNumber[number] = order
			orders = append(orders, order)
		}

		order.Lines = append(order.Lines, line)
		order.Total += line.Quantity * line.UnitPrice
	}

	if len(orders) == 0 {
		return nil, fmt.Errorf("no purchase order rows found")
	}

	return orders, nil
}

func parseLine(p *Profile, cols colIndex, row []string, rowNum int) (po.Line, error) {
	desc := cellValue(row, cols[p.ItemCol])
	if desc == "" {
		return po.Line{}, fmt.Errorf("row %d: missing item description", rowNum)
	}

	qty, err := strconv.ParseInt(cellValue(row, cols[p.QuantityCol]), 10, 64)
	if err != nil || qty <= 0 {
		return po.Line{}, fmt.Errorf("row %d: invalid quantity %q", rowNum, cellValue(row, cols[p.QuantityCol]))
	}

	price, err := parseAmount(cellValue(row, cols[p.UnitPriceCol]))
	if err != nil {
		return po.Line{}, fmt.Errorf("row %d: invalid unit price: %w", rowNum, err)
	}

	line := po.Line{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   price,
	}

	if idx, ok := cols[p.CategoryCol]; ok {
		line.Category = cellValue(row, idx)
	}

	return line, nil
}

func currencyOrDefault(row []string, cols colIndex, p *Profile) string {
	if idx, ok := cols[p.CurrencyCol]; ok {
		if c := cellValue(row, idx); c != "" {
			return c
		}
	}

	return "USD"
}

func statusOrOpen(row []string, cols colIndex, p *Profile) po.Status {
	idx, ok := cols[p.StatusCol]
	if !ok {
		return po.StatusOpen
	}

	switch strings.ToLower(cellValue(row, idx)) {
	case "partial", "partially received":
		return po.StatusPartial
	case "closed", "completed":
		return po.StatusClosed
	default:
		return po.StatusOpen
	}
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
