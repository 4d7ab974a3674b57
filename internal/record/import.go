package record

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ImportRow is one data row of an uploaded workbook. Line is the 1-based
// spreadsheet row number.
type ImportRow struct {
	Line        int
	Date        string
	Description string
	Amount      string
}

type ImportRowError struct {
	Line   int                 `json:"line"`
	Errors map[string][]string `json:"errors"`
}

type ImportResponse struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// ReadWorkbook reads the first sheet using the export layout:
// ID, Date, Description, Amount. The ID column is ignored and a header row
// is skipped.
func ReadWorkbook(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	out := make([]ImportRow, 0, len(rows))
	for i, cols := range rows {
		if i == 0 && isHeader(cols) {
			continue
		}
		out = append(out, ImportRow{
			Line:        i + 1,
			Date:        cell(cols, 1),
			Description: cell(cols, 2),
			Amount:      cell(cols, 3),
		})
	}
	return out, nil
}

func isHeader(cols []string) bool {
	for _, c := range cols {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "id", "date", "description", "amount":
			return true
		}
	}
	return false
}

func cell(cols []string, i int) string {
	if i < len(cols) {
		return strings.TrimSpace(cols[i])
	}
	return ""
}

func (r ImportRow) blank() bool {
	return r.Date == "" && r.Description == "" && r.Amount == ""
}

// Input converts and validates the row. Unparsable cells are reported next
// to the validation failures of the other fields.
func (r ImportRow) Input() (Input, error) {
	in := Input{Description: r.Description}
	fields := map[string][]string{}

	if r.Amount != "" {
		a, err := decimal.NewFromString(r.Amount)
		if err != nil {
			fields["amount"] = []string{"Amount must be a number."}
		} else {
			in.Amount = &a
		}
	}
	if r.Date != "" {
		d, err := ParseDate(r.Date)
		if err != nil {
			fields["date"] = []string{"Date must be formatted as YYYY-MM-DD."}
		} else {
			in.Date = &d
		}
	}

	in.Normalize()
	var verr *ValidationError
	if err := in.Validate(); errors.As(err, &verr) {
		for field, msgs := range verr.Fields {
			if _, unparsable := fields[field]; !unparsable {
				fields[field] = msgs
			}
		}
	} else if err != nil {
		return in, err
	}

	if len(fields) > 0 {
		return in, &ValidationError{Fields: fields}
	}
	return in, nil
}

// POST /api/{collection}/import (multipart form, field "file")
// Every valid row is created. Invalid rows are reported and skipped.
func ImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "missing upload field \"file\"")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer file.Close()

		rows, err := ReadWorkbook(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read workbook: "+err.Error())
		}

		res := ImportResponse{Errors: []ImportRowError{}}
		for _, row := range rows {
			if row.blank() {
				res.Skipped++
				continue
			}

			in, err := row.Input()
			if err == nil {
				_, err = svc.Create(c.UserContext(), in)
			}

			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				res.Skipped++
				res.Errors = append(res.Errors, ImportRowError{Line: row.Line, Errors: verr.Fields})
			case err != nil:
				return err
			default:
				res.Imported++
			}
		}

		return c.JSON(res)
	}
}
