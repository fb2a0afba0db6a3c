package importer

import (
	"fmt"
	"io"

	"github.com/apguard/apguard/internal/importer/erpcsv"
	"github.com/apguard/apguard/internal/po"
)

// Format names a supported purchasing-system export layout.
type Format string

const (
	FormatERPCSV Format = "erp_csv"
)

type Parser interface {
	Parse(r io.Reader) ([]*po.PurchaseOrder, error)
}

// Service routes an upload to the parser for its declared format.
type Service struct {
	erpParser Parser
}

func NewService() *Service {
	return &Service{
		erpParser: erpcsv.NewParser(),
	}
}

func (s *Service) Import(format Format, r io.Reader) ([]*po.PurchaseOrder, error) {
	var parser Parser

	switch format {
	case FormatERPCSV:
		parser = s.erpParser
	default:
		return nil, fmt.Errorf("unknown import format: %s", format)
	}

	return parser.Parse(r)
}
