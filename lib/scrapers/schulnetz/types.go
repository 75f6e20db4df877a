package schulnetz

import "time"

// Severity classifies a recoverable parse or link problem.
type Severity int

const (
	// log only, the record is kept
	SeverityInfo Severity = iota
	// the current record is dropped
	SeverityWarn
	// the current record is dropped, reported on the error channel
	SeverityError
	// the current record is dropped and the problem indicates the
	// source data itself is inconsistent
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// Issue is one recoverable problem encountered while parsing or
// linking. Fatal issues abort the current record, never the whole
// batch.
type Issue struct {
	Severity Severity
	Err      error
}

func (i Issue) Error() string {
	return i.Severity.String() + ": " + i.Err.Error()
}

// Result carries the successfully produced records of one parse pass
// together with every recoverable issue, so the caller can decide
// whether a partial result is usable.
type Result[T any] struct {
	Records []T
	Issues  []Issue
}

func (r Result[T]) HasFatal() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Every record carries a process-local unique Id assigned at parse
// time; the portal does not expose stable identifiers for most of
// these entities. Relationship id lists are populated by the linker,
// never by the parsers.

type Teacher struct {
	Id           string
	Abbreviation string
	LastName     string
	FirstName    string
	Email        string

	SubjectIds []string
}

type Student struct {
	Id          string
	LastName    string
	FirstName   string
	Gender      string
	SchoolClass string
	Email       string
}

type Subject struct {
	Id string
	// e.g. "MA-2a-HUB", the trailing segment embeds the teacher
	// abbreviation
	Abbreviation string
	Name         string
	// weighted mean over the subject's grades, derived by the linker
	Average float64

	TeacherId  string
	GradeIds   []string
	AbsenceIds []string
}

type Grade struct {
	Id                  string
	SubjectAbbreviation string
	Title               string
	Date                time.Time
	Value               float64
	Weight              float64

	SubjectId string
}

type Absence struct {
	Id string
	// identifier printed by the portal, referenced by absence reports
	SourceId  string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	Excused   bool
	// number of school lessons missed
	LessonCount int

	SubjectIds []string
	ReportIds  []string
}

// AbsenceReport is one reported lesson belonging to an absence. A
// report that cannot be matched to its parent absence is a fatal data
// integrity error.
type AbsenceReport struct {
	Id              string
	AbsenceSourceId string
	Date            time.Time
	StartTime       time.Time
	EndTime         time.Time
	// abbreviation of the subject whose lesson was missed
	LessonAbbreviation string
	Comment            string

	AbsenceId string
}

// OpenAbsence is an absence the student still has to hand in a excuse
// form for.
type OpenAbsence struct {
	Id                 string
	Date               time.Time
	LessonAbbreviation string

	SubjectId string
}

type LateAbsence struct {
	Id   string
	Date time.Time
	// minutes of the lesson missed
	Duration int
	Reason   string
	Excused  bool
}

type Transaction struct {
	Id     string
	Date   time.Time
	Text   string
	Amount float64
}
