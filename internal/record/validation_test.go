package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func datePtr(d Date) *Date { return &d }

func validInput() Input {
	return Input{
		Description: "Rent",
		Amount:      amountPtr("1000"),
		Date:        datePtr(NewDate(2024, 1, 1)),
	}
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestValidateAcceptsValidInput(t *testing.T) {
	assert.NoError(t, validInput().Validate())
}

func TestValidateAcceptsToday(t *testing.T) {
	in := validInput()
	in.Date = datePtr(Today())
	assert.NoError(t, in.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *Input)
		field   string
		message string
	}{
		{"missing description", func(in *Input) { in.Description = "" }, "description", "Description is required."},
		{"long description", func(in *Input) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) }, "description", "Description must be at most 200 characters."},
		{"missing amount", func(in *Input) { in.Amount = nil }, "amount", "Amount is required."},
		{"zero amount", func(in *Input) { in.Amount = amountPtr("0") }, "amount", "Amount must be a positive number."},
		{"negative amount", func(in *Input) { in.Amount = amountPtr("-5") }, "amount", "Amount must be a positive number."},
		{"amount below a cent", func(in *Input) { in.Amount = amountPtr("0.001") }, "amount", "Amount must be a positive number."},
		{"amount rounding to zero", func(in *Input) { in.Amount = amountPtr("0.004") }, "amount", "Amount must be a positive number."},
		{"amount with three decimals", func(in *Input) { in.Amount = amountPtr("12.345") }, "amount", "Amount must be a positive number."},
		{"amount too large", func(in *Input) { in.Amount = amountPtr("10000000000000000") }, "amount", "Amount must be less than 10000000000000000."},
		{"missing date", func(in *Input) { in.Date = nil }, "date", "Date is required."},
		{"future date", func(in *Input) { in.Date = datePtr(DateOf(time.Now().AddDate(0, 0, 1))) }, "date", "The date cannot be in the future."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			fields := fieldErrors(t, in.Validate())
			assert.Equal(t, []string{tt.message}, fields[tt.field])
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidateAcceptsStorableAmounts(t *testing.T) {
	for _, amount := range []string{"0.01", "12.5", "12.30", "54.20", "9999999999999999.99"} {
		in := validInput()
		in.Amount = amountPtr(amount)
		assert.NoError(t, in.Validate(), amount)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	fields := fieldErrors(t, Input{}.Validate())
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "date")
}

func TestValidateDescriptionLengthCountsCharacters(t *testing.T) {
	in := validInput()
	in.Description = strings.Repeat("ü", MaxDescriptionLength)
	assert.NoError(t, in.Validate())
}

func TestNormalizeTrimsBlankDescription(t *testing.T) {
	in := validInput()
	in.Description = "   "
	in.Normalize()

	fields := fieldErrors(t, in.Validate())
	assert.Equal(t, []string{"Description is required."}, fields["description"])
}

func TestInputDecodesJSON(t *testing.T) {
	var in Input
	err := json.Unmarshal([]byte(`{"description":"Rent","amount":1000.50,"date":"2024-01-01"}`), &in)
	require.NoError(t, err)

	assert.Equal(t, "Rent", in.Description)
	require.NotNil(t, in.Amount)
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("1000.5")))
	require.NotNil(t, in.Date)
	assert.Equal(t, "2024-01-01", in.Date.String())
}

func TestParseDateAcceptsTimestamps(t *testing.T) {
	tests := map[string]string{
		"2024-03-05":                "2024-03-05",
		"2024-03-05T13:45:00Z":      "2024-03-05",
		"2024-03-05T13:45:00":       "2024-03-05",
		"2024-03-05T23:30:00+02:00": "2024-03-05",
	}
	for in, want := range tests {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	_, err := ParseDate("05/03/2024")
	assert.Error(t, err)
}

func TestDateMarshalsAsCalendarDate(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-02"`, string(b))
}
