package billing

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// WriteCSV renders items as a CSV statement with locale-aware amount
// formatting (thousand separators, two decimals).
func WriteCSV(w io.Writer, items []Item) error {
	printer := message.NewPrinter(language.English)
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"client_id", "period", "description", "quantity", "unit_price", "amount", "currency"}); err != nil {
		return err
	}
	for _, item := range items {
		record := []string{
			strconv.FormatInt(item.ClientID, 10),
			item.Period,
			item.Description,
			strconv.FormatFloat(item.Quantity, 'f', 2, 64),
			printer.Sprint(number.Decimal(item.UnitPrice, number.Scale(2))),
			printer.Sprint(number.Decimal(item.Amount(), number.Scale(2))),
			item.Currency,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
