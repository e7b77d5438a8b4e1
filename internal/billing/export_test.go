package billing

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCSVFormatsAmounts(t *testing.T) {
	items := []Item{
		{ClientID: 12, Period: "2026-08", Description: "guard hours, site A", Quantity: 160, UnitPrice: 18.5, Currency: "USD"},
		{ClientID: 12, Period: "2026-08", Description: "equipment rental", Quantity: 1, UnitPrice: 1250, Currency: "USD"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, items))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t,
		[]string{"client_id", "period", "description", "quantity", "unit_price", "amount", "currency"},
		records[0])

	require.Equal(t, "12", records[1][0])
	require.Equal(t, "guard hours, site A", records[1][2])
	require.Equal(t, "160.00", records[1][3])
	require.Equal(t, "18.50", records[1][4])
	require.Equal(t, "2,960.00", records[1][5])

	require.Equal(t, "1,250.00", records[2][4])
	require.Equal(t, "1,250.00", records[2][5])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
