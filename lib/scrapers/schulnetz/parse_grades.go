package schulnetz

import (
	"strconv"

	"snassist-backend/lib/htmlutil"
	"snassist-backend/lib/textutil"
	"snassist-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// ParseGrades reads the "Noten" page. Expected shape: one
// div#nl_container holding one div.nl_fach per subject, each with a
// .nl_fach_titel (abbreviation), a .nl_fach_name and a grade table
// whose rows have exactly the columns date, title, mark, weight.
//
// Grades reference their subject by abbreviation only, the id-based
// relation and the subject average are filled in by the linker.
func ParseGrades(html string) (subjects Result[Subject], grades Result[Grade], err error) {
	doc, err := parseDocument(html)
	if err != nil {
		return subjects, grades, err
	}
	container, err := htmlutil.SelectExactly(doc.Selection, "div#nl_container", 1)
	if err != nil {
		return subjects, grades, err
	}
	blocks, err := htmlutil.SelectAtLeast(container, "div.nl_fach", 1)
	if err != nil {
		return subjects, grades, err
	}

	blocks.Each(func(i int, block *goquery.Selection) {
		titles, err := htmlutil.SelectExactly(block, ".nl_fach_titel", 1)
		if err != nil {
			subjects.Issues = append(subjects.Issues, issuef(SeverityError, "subject %d: %v", i, err))
			return
		}
		abbreviation := textutil.CollapseWhitespace(htmlutil.InnerText(titles))
		if abbreviation == "" {
			subjects.Issues = append(subjects.Issues, issuef(SeverityWarn, "subject %d: empty abbreviation", i))
			return
		}
		name := textutil.CollapseWhitespace(htmlutil.InnerText(block.Find(".nl_fach_name")))

		subjects.Records = append(subjects.Records, Subject{
			Id:           uuid.NewString(),
			Abbreviation: abbreviation,
			Name:         name,
		})

		block.Find("table.nl_noten_tabelle tbody tr").Each(func(j int, row *goquery.Selection) {
			cells := cellTexts(row)
			err := expectColumns(cells, 4, "grade row")
			if err != nil {
				grades.Issues = append(grades.Issues, issuef(SeverityError, "%s row %d: %v", abbreviation, j, err))
				return
			}

			date, err := timezone.ParseDate(cells[0], timezone.LayoutDate)
			if err != nil {
				grades.Issues = append(grades.Issues, issuef(SeverityWarn, "%s row %d: bad date: %v", abbreviation, j, err))
				return
			}
			value, err := strconv.ParseFloat(cells[2], 64)
			if err != nil {
				grades.Issues = append(grades.Issues, issuef(SeverityWarn, "%s row %d: bad mark: %v", abbreviation, j, err))
				return
			}
			weight, err := strconv.ParseFloat(cells[3], 64)
			if err != nil {
				grades.Issues = append(grades.Issues, issuef(SeverityWarn, "%s row %d: bad weight: %v", abbreviation, j, err))
				return
			}

			grades.Records = append(grades.Records, Grade{
				Id:                  uuid.NewString(),
				SubjectAbbreviation: abbreviation,
				Title:               cells[1],
				Date:                date,
				Value:               value,
				Weight:              weight,
			})
		})
	})

	return subjects, grades, nil
}
