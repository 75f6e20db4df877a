package studentdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snassist-backend/lib/scrapers/schulnetz"
	"snassist-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// teacher abbreviations embedded in subject abbreviations do not
// always match the directory spelling exactly, accept close matches
const teacherMatchThreshold = 0.9

// Link cross-references the independently parsed record sets by their
// natural keys and fills in the id-based relationship lists, mutating
// the graph in place.
//
// Unmatched optional relations are logged and skipped. The exception
// is the absence report <-> absence relation: a report whose absence
// id matches no known absence is a fatal data-integrity issue and the
// report is dropped from the graph.
func Link(ctx context.Context, graph *Graph) []schulnetz.Issue {
	var issues []schulnetz.Issue

	teacherByAbbr := map[string]*schulnetz.Teacher{}
	for i := range graph.Teachers {
		teacherByAbbr[graph.Teachers[i].Abbreviation] = &graph.Teachers[i]
	}
	subjectByAbbr := map[string]*schulnetz.Subject{}
	for i := range graph.Subjects {
		subjectByAbbr[graph.Subjects[i].Abbreviation] = &graph.Subjects[i]
	}

	// subject <-> teacher, via the abbreviation embedded in the
	// subject abbreviation
	for i := range graph.Subjects {
		subject := &graph.Subjects[i]
		teacher := findTeacher(ctx, teacherByAbbr, subject.Abbreviation)
		if teacher == nil {
			issues = append(issues, schulnetz.Issue{
				Severity: schulnetz.SeverityInfo,
				Err:      fmt.Errorf("no teacher found for subject %q", subject.Abbreviation),
			})
			continue
		}
		subject.TeacherId = teacher.Id
		teacher.SubjectIds = append(teacher.SubjectIds, subject.Id)
	}

	// grade <-> subject, plus the derived weighted average
	totals := map[string]struct{ sum, weight float64 }{}
	for i := range graph.Grades {
		grade := &graph.Grades[i]
		subject, ok := subjectByAbbr[grade.SubjectAbbreviation]
		if !ok {
			slog.WarnContext(ctx, "grade references unknown subject",
				"subject", grade.SubjectAbbreviation, "title", grade.Title)
			issues = append(issues, schulnetz.Issue{
				Severity: schulnetz.SeverityWarn,
				Err:      fmt.Errorf("grade %q references unknown subject %q", grade.Title, grade.SubjectAbbreviation),
			})
			continue
		}
		grade.SubjectId = subject.Id
		subject.GradeIds = append(subject.GradeIds, grade.Id)

		total := totals[subject.Id]
		total.sum += grade.Value * grade.Weight
		total.weight += grade.Weight
		totals[subject.Id] = total
	}
	for i := range graph.Subjects {
		subject := &graph.Subjects[i]
		total := totals[subject.Id]
		if total.weight > 0 {
			subject.Average = total.sum / total.weight
		}
	}

	// absence report -> absence is mandatory
	absenceBySourceId := map[string]*schulnetz.Absence{}
	for i := range graph.Absences {
		absenceBySourceId[graph.Absences[i].SourceId] = &graph.Absences[i]
	}

	var linkedReports []schulnetz.AbsenceReport
	for _, report := range graph.AbsenceReports {
		absence, ok := absenceBySourceId[report.AbsenceSourceId]
		if !ok {
			slog.ErrorContext(ctx, "absence report references unknown absence",
				"absence_id", report.AbsenceSourceId, "date", report.Date)
			issues = append(issues, schulnetz.Issue{
				Severity: schulnetz.SeverityFatal,
				Err:      fmt.Errorf("absence report references unknown absence %q", report.AbsenceSourceId),
			})
			continue
		}
		report.AbsenceId = absence.Id
		absence.ReportIds = append(absence.ReportIds, report.Id)

		if subject, ok := subjectByAbbr[report.LessonAbbreviation]; ok {
			if !contains(absence.SubjectIds, subject.Id) {
				absence.SubjectIds = append(absence.SubjectIds, subject.Id)
			}
			if !contains(subject.AbsenceIds, absence.Id) {
				subject.AbsenceIds = append(subject.AbsenceIds, absence.Id)
			}
		} else {
			slog.DebugContext(ctx, "absence report lesson matches no subject",
				"lesson", report.LessonAbbreviation)
		}

		linkedReports = append(linkedReports, report)
	}
	graph.AbsenceReports = linkedReports

	// open absence -> subject is optional
	for i := range graph.OpenAbsences {
		open := &graph.OpenAbsences[i]
		subject, ok := subjectByAbbr[open.LessonAbbreviation]
		if !ok {
			slog.DebugContext(ctx, "open absence lesson matches no subject",
				"lesson", open.LessonAbbreviation)
			continue
		}
		open.SubjectId = subject.Id
	}

	return issues
}

// findTeacher resolves the trailing segment of a subject abbreviation
// ("MA-2a-HUB" -> "HUB") against the teacher directory, falling back
// to the closest JaroWinkler match above the threshold.
func findTeacher(ctx context.Context, teacherByAbbr map[string]*schulnetz.Teacher, subjectAbbr string) *schulnetz.Teacher {
	segments := strings.Split(subjectAbbr, "-")
	abbr := segments[len(segments)-1]
	if abbr == "" {
		return nil
	}

	teacher, ok := teacherByAbbr[abbr]
	if ok {
		return teacher
	}

	var mostSimilar *schulnetz.Teacher
	var mostSimilarity float64
	for candidate, t := range teacherByAbbr {
		similarity := matchr.JaroWinkler(
			textutil.NormalizeName(abbr),
			textutil.NormalizeName(candidate),
			false,
		)
		if similarity > mostSimilarity {
			mostSimilarity = similarity
			mostSimilar = t
		}
	}
	if mostSimilarity < teacherMatchThreshold {
		return nil
	}

	slog.DebugContext(ctx, "fuzzy-matched teacher abbreviation",
		"subject", subjectAbbr,
		"teacher", mostSimilar.Abbreviation,
		"similarity", mostSimilarity)
	return mostSimilar
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
