// Package export renders completed request history as spreadsheet
// downloads.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/garyjia/reimbursement-bot/internal/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Completed Requests"

// Well-known receipt fields get their own columns, in this order. Anything
// else the extractor produced lands in the trailing details column.
var knownFields = []string{"merchant", "date", "total", "currency", "payment_method"}

var headers = []string{"ID", "Requester", "Merchant", "Date", "Total", "Currency", "Payment Method", "Other Details", "Completed At"}

// ExcelExporter writes completed requests as an xlsx workbook
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Write renders the given requests into an xlsx workbook on w
func (e *ExcelExporter) Write(w io.Writer, requests []*repository.CompletedRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		e.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		e.setCell(f, cell, header)
	}

	for row, req := range requests {
		values := []interface{}{
			req.ID,
			req.RequesterID,
			req.Fields["merchant"],
			req.Fields["date"],
			req.Fields["total"],
			req.Fields["currency"],
			req.Fields["payment_method"],
			extraDetails(req.Fields),
			req.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			e.setCell(f, cell, value)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Exported completed requests",
		zap.Int("count", len(requests)))
	return nil
}

// extraDetails flattens fields without a dedicated column into "k: v" pairs
func extraDetails(fields map[string]string) string {
	known := make(map[string]bool, len(knownFields))
	for _, k := range knownFields {
		known[k] = true
	}

	var keys []string
	for k := range fields {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s: %s", k, fields[k])
	}
	return out
}

func (e *ExcelExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
