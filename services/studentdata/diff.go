package studentdata

import "snassist-backend/lib/scrapers/schulnetz"

// DiffResult describes how one record set changed between two
// snapshots of the same conceptual entity.
type DiffResult[T any] struct {
	Added []T
	// pairs of [previous, current] for records whose identity matched
	// but whose content differs
	Modified [][2]T
	Removed  []T
}

func (d DiffResult[T]) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// DiffRecords pairs records of two snapshots by sameEntity and
// classifies them. Pairing is greedy first-match in list order, not an
// optimal bipartite matching: when duplicate identity keys exist the
// pairing may be non-minimal, ties go to the earlier list entry.
func DiffRecords[T any](previous, current []T, sameEntity, sameContent func(a, b T) bool) DiffResult[T] {
	var result DiffResult[T]

	matched := make([]bool, len(current))
	for _, old := range previous {
		found := false
		for i, now := range current {
			if matched[i] || !sameEntity(old, now) {
				continue
			}
			matched[i] = true
			found = true
			if !sameContent(old, now) {
				result.Modified = append(result.Modified, [2]T{old, now})
			}
			break
		}
		if !found {
			result.Removed = append(result.Removed, old)
		}
	}

	for i, now := range current {
		if !matched[i] {
			result.Added = append(result.Added, now)
		}
	}

	return result
}

// GraphDiff is the change set between two snapshots of the same
// account.
type GraphDiff struct {
	Teachers     DiffResult[schulnetz.Teacher]
	Students     DiffResult[schulnetz.Student]
	Subjects     DiffResult[schulnetz.Subject]
	Grades       DiffResult[schulnetz.Grade]
	Absences     DiffResult[schulnetz.Absence]
	LateAbsences DiffResult[schulnetz.LateAbsence]
	Transactions DiffResult[schulnetz.Transaction]
}

func (d GraphDiff) Empty() bool {
	return d.Teachers.Empty() &&
		d.Students.Empty() &&
		d.Subjects.Empty() &&
		d.Grades.Empty() &&
		d.Absences.Empty() &&
		d.LateAbsences.Empty() &&
		d.Transactions.Empty()
}

// DiffGraphs compares two snapshots. Identity and comparison keys are
// natural keys only: the process-local record ids differ between runs
// by construction and never participate.
func DiffGraphs(previous, current Graph) GraphDiff {
	return GraphDiff{
		Teachers: DiffRecords(previous.Teachers, current.Teachers,
			func(a, b schulnetz.Teacher) bool { return a.Abbreviation == b.Abbreviation },
			func(a, b schulnetz.Teacher) bool {
				return a.LastName == b.LastName && a.FirstName == b.FirstName && a.Email == b.Email
			}),
		Students: DiffRecords(previous.Students, current.Students,
			func(a, b schulnetz.Student) bool { return a.Email == b.Email },
			func(a, b schulnetz.Student) bool {
				return a.LastName == b.LastName && a.FirstName == b.FirstName &&
					a.Gender == b.Gender && a.SchoolClass == b.SchoolClass
			}),
		// Average is derived from the grades and deliberately not a
		// comparison key, grade changes already show up on their own
		Subjects: DiffRecords(previous.Subjects, current.Subjects,
			func(a, b schulnetz.Subject) bool { return a.Abbreviation == b.Abbreviation },
			func(a, b schulnetz.Subject) bool { return a.Name == b.Name }),
		Grades: DiffRecords(previous.Grades, current.Grades,
			func(a, b schulnetz.Grade) bool {
				return a.SubjectAbbreviation == b.SubjectAbbreviation &&
					a.Title == b.Title && a.Date.Equal(b.Date)
			},
			func(a, b schulnetz.Grade) bool {
				return a.Value == b.Value && a.Weight == b.Weight
			}),
		Absences: DiffRecords(previous.Absences, current.Absences,
			func(a, b schulnetz.Absence) bool { return a.SourceId == b.SourceId },
			func(a, b schulnetz.Absence) bool {
				return a.StartDate.Equal(b.StartDate) && a.EndDate.Equal(b.EndDate) &&
					a.Reason == b.Reason && a.Excused == b.Excused &&
					a.LessonCount == b.LessonCount
			}),
		LateAbsences: DiffRecords(previous.LateAbsences, current.LateAbsences,
			func(a, b schulnetz.LateAbsence) bool { return a.Date.Equal(b.Date) },
			func(a, b schulnetz.LateAbsence) bool {
				return a.Duration == b.Duration && a.Reason == b.Reason && a.Excused == b.Excused
			}),
		Transactions: DiffRecords(previous.Transactions, current.Transactions,
			func(a, b schulnetz.Transaction) bool {
				return a.Date.Equal(b.Date) && a.Text == b.Text
			},
			func(a, b schulnetz.Transaction) bool { return a.Amount == b.Amount }),
	}
}
