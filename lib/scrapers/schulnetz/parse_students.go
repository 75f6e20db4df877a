package schulnetz

import (
	"snassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// ParseStudents reads the class roster page. Expected shape: one
// table#uebersicht_schueler whose body rows have exactly the columns
// last name, first name, gender, class, email.
func ParseStudents(html string) (Result[Student], error) {
	var result Result[Student]

	doc, err := parseDocument(html)
	if err != nil {
		return result, err
	}
	table, err := htmlutil.SelectExactly(doc.Selection, "table#uebersicht_schueler", 1)
	if err != nil {
		return result, err
	}

	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := cellTexts(row)
		err := expectColumns(cells, 5, "student row")
		if err != nil {
			result.Issues = append(result.Issues, issuef(SeverityError, "row %d: %v", i, err))
			return
		}
		if cells[0] == "" && cells[1] == "" {
			result.Issues = append(result.Issues, issuef(SeverityWarn, "row %d: student without a name", i))
			return
		}

		result.Records = append(result.Records, Student{
			Id:          uuid.NewString(),
			LastName:    cells[0],
			FirstName:   cells[1],
			Gender:      cells[2],
			SchoolClass: cells[3],
			Email:       cells[4],
		})
	})

	return result, nil
}
