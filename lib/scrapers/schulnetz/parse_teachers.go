package schulnetz

import (
	"snassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// ParseTeachers reads the teacher directory page. Expected shape: one
// table#uebersicht_lehrpersonen whose body rows have exactly the
// columns abbreviation, last name, first name, email.
func ParseTeachers(html string) (Result[Teacher], error) {
	var result Result[Teacher]

	doc, err := parseDocument(html)
	if err != nil {
		return result, err
	}
	table, err := htmlutil.SelectExactly(doc.Selection, "table#uebersicht_lehrpersonen", 1)
	if err != nil {
		return result, err
	}

	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := cellTexts(row)
		err := expectColumns(cells, 4, "teacher row")
		if err != nil {
			result.Issues = append(result.Issues, issuef(SeverityError, "row %d: %v", i, err))
			return
		}
		if cells[0] == "" {
			result.Issues = append(result.Issues, issuef(SeverityWarn, "row %d: empty teacher abbreviation", i))
			return
		}

		result.Records = append(result.Records, Teacher{
			Id:           uuid.NewString(),
			Abbreviation: cells[0],
			LastName:     cells[1],
			FirstName:    cells[2],
			Email:        cells[3],
		})
	})

	return result, nil
}
