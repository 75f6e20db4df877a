package studentdata

import "snassist-backend/lib/scrapers/schulnetz"

// Graph is one fully cross-referenced snapshot of everything the
// portal exposes for an account.
type Graph struct {
	Teachers       []schulnetz.Teacher       `json:"teachers"`
	Students       []schulnetz.Student       `json:"students"`
	Subjects       []schulnetz.Subject       `json:"subjects"`
	Grades         []schulnetz.Grade         `json:"grades"`
	Absences       []schulnetz.Absence       `json:"absences"`
	AbsenceReports []schulnetz.AbsenceReport `json:"absence_reports"`
	OpenAbsences   []schulnetz.OpenAbsence   `json:"open_absences"`
	LateAbsences   []schulnetz.LateAbsence   `json:"late_absences"`
	Transactions   []schulnetz.Transaction   `json:"transactions"`
}
