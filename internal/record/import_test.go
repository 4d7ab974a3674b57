package record

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func upload(t *testing.T, app *fiber.App, path, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestReadWorkbookSkipsHeader(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"ID", "Date", "Description", "Amount"},
		{"", "2024-01-01", " Rent ", "1000"},
		{7, "2024-01-02", "Food", "12.50"},
	})

	rows, err := ReadWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ImportRow{Line: 2, Date: "2024-01-01", Description: "Rent", Amount: "1000"}, rows[0])
	assert.Equal(t, 3, rows[1].Line)
}

func TestReadWorkbookRejectsNonWorkbook(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a spreadsheet")))
	assert.Error(t, err)
}

func TestImportRowInput(t *testing.T) {
	in, err := ImportRow{Date: "2024-01-01", Description: "Rent", Amount: "1000"}.Input()
	require.NoError(t, err)
	assert.True(t, in.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "2024-01-01", in.Date.String())

	_, err = ImportRow{Date: "01/02/2024", Description: "Rent", Amount: "ten"}.Input()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Date must be formatted as YYYY-MM-DD."}, verr.Fields["date"])
	assert.Equal(t, []string{"Amount must be a number."}, verr.Fields["amount"])
}

func TestImportRowInputReportsEveryProblem(t *testing.T) {
	_, err := ImportRow{Date: "2024-01-01", Description: "", Amount: "ten"}.Input()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Amount must be a number."}, verr.Fields["amount"])
	assert.Equal(t, []string{"Description is required."}, verr.Fields["description"])
	assert.Len(t, verr.Fields, 2)

	_, err = ImportRow{Date: "", Description: "Rent", Amount: "0"}.Input()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Amount must be a positive number."}, verr.Fields["amount"])
	assert.Equal(t, []string{"Date is required."}, verr.Fields["date"])
}

func TestImportHandler(t *testing.T) {
	app := newTestApp(t)

	buf := workbook(t, [][]interface{}{
		{"ID", "Date", "Description", "Amount"},
		{"", "2024-01-01", "Rent", "1000"},
		{"", "2024-01-02", "", "15"},
		{"", "", "", ""},
		{"", "2024-01-03", "Groceries", "54.20"},
		{"", "2999-01-01", "Future", "1"},
	})

	resp := upload(t, app, "/api/expenses/import", "expenses.xlsx", buf.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res ImportResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Equal(t, []string{"Description is required."}, res.Errors[0].Errors["description"])
	assert.Equal(t, 6, res.Errors[1].Line)
	assert.Equal(t, []string{"The date cannot be in the future."}, res.Errors[1].Errors["date"])

	list := decode[ListResponse](t, doJSON(t, app, http.MethodGet, "/api/expenses?sortBy=date&sortDirection=asc", nil))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Rent", list.Items[0].Description)
	assert.Equal(t, "Groceries", list.Items[1].Description)
}

func TestImportHandlerRejectsBadUploads(t *testing.T) {
	app := newTestApp(t)

	resp := upload(t, app, "/api/expenses/import", "expenses.csv", []byte("a,b"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload(t, app, "/api/expenses/import", "broken.xlsx", []byte("not a zip"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/expenses/import", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
