package schulnetz

import (
	"fmt"
	"strconv"

	"snassist-backend/lib/textutil"
	"snassist-backend/lib/timezone"

	"github.com/google/uuid"
)

// ParseTransactions reads the account transaction CSV export
// (semicolon separated, quoted fields). Expected shape: the exact
// header Datum;Buchungstext;Betrag followed by three-column rows.
func ParseTransactions(csvText string) (Result[Transaction], error) {
	var result Result[Transaction]

	rows, err := textutil.ReadDelimited(csvText)
	if err != nil {
		return result, fmt.Errorf("read transaction csv: %w", err)
	}
	if len(rows) < 1 {
		return result, fmt.Errorf("transaction csv is empty")
	}

	header := rows[0]
	if len(header) != 3 || header[0] != "Datum" || header[1] != "Buchungstext" || header[2] != "Betrag" {
		return result, fmt.Errorf("unexpected transaction csv header %v", header)
	}

	for i, cells := range rows[1:] {
		err := expectColumns(cells, 3, "transaction row")
		if err != nil {
			result.Issues = append(result.Issues, issuef(SeverityError, "row %d: %v", i, err))
			continue
		}

		date, err := timezone.ParseDate(cells[0], timezone.LayoutDate)
		if err != nil {
			result.Issues = append(result.Issues, issuef(SeverityWarn, "row %d: bad date: %v", i, err))
			continue
		}
		amount, err := strconv.ParseFloat(cells[2], 64)
		if err != nil {
			result.Issues = append(result.Issues, issuef(SeverityWarn, "row %d: bad amount: %v", i, err))
			continue
		}

		result.Records = append(result.Records, Transaction{
			Id:     uuid.NewString(),
			Date:   date,
			Text:   cells[1],
			Amount: amount,
		})
	}

	return result, nil
}
