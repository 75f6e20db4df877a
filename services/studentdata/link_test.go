package studentdata

import (
	"context"
	"testing"

	"snassist-backend/lib/scrapers/schulnetz"

	"github.com/stretchr/testify/require"
)

func testGraph() Graph {
	return Graph{
		Teachers: []schulnetz.Teacher{
			{Id: "t1", Abbreviation: "HUB", LastName: "Huber", FirstName: "Anna"},
			{Id: "t2", Abbreviation: "MEI", LastName: "Meier", FirstName: "Beat"},
		},
		Subjects: []schulnetz.Subject{
			{Id: "s1", Abbreviation: "MA-2a-HUB", Name: "Mathematik"},
			{Id: "s2", Abbreviation: "E-2a-MEI", Name: "Englisch"},
		},
		Grades: []schulnetz.Grade{
			{Id: "g1", SubjectAbbreviation: "MA-2a-HUB", Title: "Algebra", Value: 5.5, Weight: 1},
			{Id: "g2", SubjectAbbreviation: "MA-2a-HUB", Title: "Geometrie", Value: 4.5, Weight: 0.5},
		},
		Absences: []schulnetz.Absence{
			{Id: "a1", SourceId: "778", Reason: "Krankheit"},
		},
		AbsenceReports: []schulnetz.AbsenceReport{
			{Id: "r1", AbsenceSourceId: "778", LessonAbbreviation: "MA-2a-HUB"},
		},
		OpenAbsences: []schulnetz.OpenAbsence{
			{Id: "o1", LessonAbbreviation: "E-2a-MEI"},
		},
	}
}

func TestLink(t *testing.T) {
	graph := testGraph()
	issues := Link(context.Background(), &graph)
	require.Empty(t, issues)

	// subject <-> teacher
	require.Equal(t, "t1", graph.Subjects[0].TeacherId)
	require.Equal(t, "t2", graph.Subjects[1].TeacherId)
	require.Equal(t, []string{"s1"}, graph.Teachers[0].SubjectIds)

	// grade <-> subject and the weighted average
	require.Equal(t, "s1", graph.Grades[0].SubjectId)
	require.Equal(t, []string{"g1", "g2"}, graph.Subjects[0].GradeIds)
	require.InDelta(t, (5.5*1+4.5*0.5)/1.5, graph.Subjects[0].Average, 1e-9)
	require.Zero(t, graph.Subjects[1].Average)

	// absence report <-> absence, and the subject ids filled through
	// the report's lesson
	require.Equal(t, "a1", graph.AbsenceReports[0].AbsenceId)
	require.Equal(t, []string{"r1"}, graph.Absences[0].ReportIds)
	require.Equal(t, []string{"s1"}, graph.Absences[0].SubjectIds)
	require.Equal(t, []string{"a1"}, graph.Subjects[0].AbsenceIds)

	// open absence -> subject
	require.Equal(t, "s2", graph.OpenAbsences[0].SubjectId)
}

func TestLinkFuzzyTeacherMatch(t *testing.T) {
	graph := Graph{
		Teachers: []schulnetz.Teacher{
			// directory spells the abbreviation slightly differently
			{Id: "t1", Abbreviation: "HUBE"},
		},
		Subjects: []schulnetz.Subject{
			{Id: "s1", Abbreviation: "MA-2a-HUB"},
		},
	}
	issues := Link(context.Background(), &graph)
	require.Empty(t, issues)
	require.Equal(t, "t1", graph.Subjects[0].TeacherId)
}

func TestLinkUnknownTeacher(t *testing.T) {
	graph := Graph{
		Teachers: []schulnetz.Teacher{
			{Id: "t1", Abbreviation: "MEI"},
		},
		Subjects: []schulnetz.Subject{
			{Id: "s1", Abbreviation: "MA-2a-XYZ"},
		},
	}
	issues := Link(context.Background(), &graph)
	require.Len(t, issues, 1)
	require.Equal(t, schulnetz.SeverityInfo, issues[0].Severity)
	require.Empty(t, graph.Subjects[0].TeacherId)
}

func TestLinkOrphanedAbsenceReport(t *testing.T) {
	graph := Graph{
		Absences: []schulnetz.Absence{
			{Id: "a1", SourceId: "778"},
		},
		AbsenceReports: []schulnetz.AbsenceReport{
			{Id: "r1", AbsenceSourceId: "778"},
			{Id: "r2", AbsenceSourceId: "999"},
		},
	}
	issues := Link(context.Background(), &graph)

	// the orphan is a fatal issue and gets dropped, the matched report
	// survives
	require.Len(t, issues, 1)
	require.Equal(t, schulnetz.SeverityFatal, issues[0].Severity)
	require.Len(t, graph.AbsenceReports, 1)
	require.Equal(t, "r1", graph.AbsenceReports[0].Id)
}

func TestLinkGradeUnknownSubject(t *testing.T) {
	graph := Graph{
		Grades: []schulnetz.Grade{
			{Id: "g1", SubjectAbbreviation: "PH-2a-ABC", Title: "Optik"},
		},
	}
	issues := Link(context.Background(), &graph)
	require.Len(t, issues, 1)
	require.Equal(t, schulnetz.SeverityWarn, issues[0].Severity)
	require.Empty(t, graph.Grades[0].SubjectId)
}
