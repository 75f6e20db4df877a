package schulnetz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"snassist-backend/lib/htmlutil"
	"snassist-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// AbsenceData is everything the "Absenzen" page yields in one pass.
type AbsenceData struct {
	Absences     Result[Absence]
	Reports      Result[AbsenceReport]
	OpenAbsences Result[OpenAbsence]
	LateAbsences Result[LateAbsence]
}

// ParseAbsences reads the absence overview page. Expected shape: each
// of the four tables (absences, reports, open absences, late
// absences) present exactly once.
func ParseAbsences(html string) (AbsenceData, error) {
	var data AbsenceData

	doc, err := parseDocument(html)
	if err != nil {
		return data, err
	}

	absences, err := htmlutil.SelectExactly(doc.Selection, "table#uebersicht_absenzen", 1)
	if err != nil {
		return data, err
	}
	reports, err := htmlutil.SelectExactly(doc.Selection, "table#uebersicht_absenzmeldungen", 1)
	if err != nil {
		return data, err
	}
	open, err := htmlutil.SelectExactly(doc.Selection, "table#uebersicht_offene_absenzen", 1)
	if err != nil {
		return data, err
	}
	late, err := htmlutil.SelectExactly(doc.Selection, "table#uebersicht_verspaetungen", 1)
	if err != nil {
		return data, err
	}

	absences.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := cellTexts(row)
		err := expectColumns(cells, 6, "absence row")
		if err != nil {
			data.Absences.Issues = append(data.Absences.Issues, issuef(SeverityError, "row %d: %v", i, err))
			return
		}

		startDate, err := timezone.ParseDate(cells[1], timezone.LayoutDate)
		if err != nil {
			data.Absences.Issues = append(data.Absences.Issues, issuef(SeverityWarn, "row %d: bad start date: %v", i, err))
			return
		}
		endDate, err := timezone.ParseDate(cells[2], timezone.LayoutDate)
		if err != nil {
			data.Absences.Issues = append(data.Absences.Issues, issuef(SeverityWarn, "row %d: bad end date: %v", i, err))
			return
		}
		lessonCount, err := strconv.Atoi(cells[5])
		if err != nil {
			data.Absences.Issues = append(data.Absences.Issues, issuef(SeverityWarn, "row %d: bad lesson count: %v", i, err))
			return
		}

		data.Absences.Records = append(data.Absences.Records, Absence{
			Id:          uuid.NewString(),
			SourceId:    cells[0],
			StartDate:   startDate,
			EndDate:     endDate,
			Reason:      cells[3],
			Excused:     cells[4] == "Ja",
			LessonCount: lessonCount,
		})
	})

	reports.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := cellTexts(row)
		err := expectColumns(cells, 5, "absence report row")
		if err != nil {
			data.Reports.Issues = append(data.Reports.Issues, issuef(SeverityError, "row %d: %v", i, err))
			return
		}

		date, err := timezone.ParseDate(cells[1], timezone.LayoutDate)
		if err != nil {
			data.Reports.Issues = append(data.Reports.Issues, issuef(SeverityWarn, "row %d: bad date: %v", i, err))
			return
		}
		startTime, endTime, err := parseTimeRange(date, cells[2])
		if err != nil {
			data.Reports.Issues = append(data.Reports.Issues, issuef(SeverityWarn, "row %d: %v", i, err))
			return
		}

		data.Reports.Records = append(data.Reports.Records, AbsenceReport{
			Id:                 uuid.NewString(),
			AbsenceSourceId:    cells[0],
			Date:               date,
			StartTime:          startTime,
			EndTime:            endTime,
			LessonAbbreviation: cells[3],
			Comment:            cells[4],
		})
	})

	open.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := cellTexts(row)
		err := expectColumns(cells, 2, "open absence row")
		if err != nil {
			data.OpenAbsences.Issues = append(data.OpenAbsences.Issues, issuef(SeverityError, "row %d: %v", i, err))
			return
		}

		date, err := timezone.ParseDate(cells[0], timezone.LayoutDate)
		if err != nil {
			data.OpenAbsences.Issues = append(data.OpenAbsences.Issues, issuef(SeverityWarn, "row %d: bad date: %v", i, err))
			return
		}

		data.OpenAbsences.Records = append(data.OpenAbsences.Records, OpenAbsence{
			Id:                 uuid.NewString(),
			Date:               date,
			LessonAbbreviation: cells[1],
		})
	})

	late.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := cellTexts(row)
		err := expectColumns(cells, 4, "late absence row")
		if err != nil {
			data.LateAbsences.Issues = append(data.LateAbsences.Issues, issuef(SeverityError, "row %d: %v", i, err))
			return
		}

		date, err := timezone.ParseDate(cells[0], timezone.LayoutDate)
		if err != nil {
			data.LateAbsences.Issues = append(data.LateAbsences.Issues, issuef(SeverityWarn, "row %d: bad date: %v", i, err))
			return
		}
		duration, err := strconv.Atoi(strings.TrimSuffix(cells[1], "'"))
		if err != nil {
			data.LateAbsences.Issues = append(data.LateAbsences.Issues, issuef(SeverityWarn, "row %d: bad duration: %v", i, err))
			return
		}

		data.LateAbsences.Records = append(data.LateAbsences.Records, LateAbsence{
			Id:       uuid.NewString(),
			Date:     date,
			Duration: duration,
			Reason:   cells[2],
			Excused:  cells[3] == "Ja",
		})
	})

	return data, nil
}

// parseTimeRange parses "07:45 - 08:30" anchored to the given day.
func parseTimeRange(day time.Time, text string) (time.Time, time.Time, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected '<from> - <to>', got %q", text)
	}
	from, err := timezone.ParseDate(parts[0], timezone.LayoutTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad start time: %w", err)
	}
	to, err := timezone.ParseDate(parts[1], timezone.LayoutTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad end time: %w", err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), from.Hour(), from.Minute(), 0, 0, timezone.Location)
	end := time.Date(day.Year(), day.Month(), day.Day(), to.Hour(), to.Minute(), 0, 0, timezone.Location)
	return start, end, nil
}
