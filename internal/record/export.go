package record

import (
	"fmt"
	"io"
	"time"

	"finance-tracker/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []interface{}{"ID", "Date", "Description", "Amount"}

// WriteWorkbook writes rows as a single-sheet XLSX named after the collection.
func WriteWorkbook(w io.Writer, kind models.Kind, rows []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := kind.Collection()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.ID, DateOf(r.Date).String(), r.Description, r.Amount.InexactFloat64()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "C", "C", 40); err != nil {
		return err
	}

	return f.Write(w)
}

// GET /api/{collection}/export?sortBy=date&sortDirection=desc
func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := AllQuery(c.Query("sortBy"), c.Query("sortDirection"))
		page, err := svc.List(c.UserContext(), q)
		if err != nil {
			return err
		}

		c.Attachment(fmt.Sprintf("%s-%s.xlsx", svc.Kind().Collection(), time.Now().Format("20060102")))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return WriteWorkbook(c.Response().BodyWriter(), svc.Kind(), page.Items)
	}
}
