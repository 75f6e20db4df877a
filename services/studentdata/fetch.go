package studentdata

import (
	"context"

	"snassist-backend/lib/scrapers/schulnetz"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/studentdata")

// Fetch logs in (if necessary), walks the portal pages in a fixed
// order, parses them and links the results into one graph.
//
// The navigation pages rotate the server-side transaction id, so they
// are fetched with changesState set; the CSV export is a plain
// download and runs as a state-preserving read.
func Fetch(ctx context.Context, client *schulnetz.Client) (Graph, []schulnetz.Issue, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	var graph Graph
	var issues []schulnetz.Issue

	err := client.Login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return graph, nil, err
	}

	studentsHtml, err := client.FetchPage(ctx, schulnetz.PageStudents, true, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch student roster")
		return graph, nil, err
	}
	teachersHtml, err := client.FetchPage(ctx, schulnetz.PageTeachers, true, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch teacher directory")
		return graph, nil, err
	}
	gradesHtml, err := client.FetchPage(ctx, schulnetz.PageGrades, true, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch grades")
		return graph, nil, err
	}
	absencesHtml, err := client.FetchPage(ctx, schulnetz.PageAbsences, true, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch absences")
		return graph, nil, err
	}
	transactionsCsv, err := client.FetchPage(ctx, schulnetz.PageTransactions, false, map[string]string{
		"csv": "1",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch transactions")
		return graph, nil, err
	}

	students, err := schulnetz.ParseStudents(studentsHtml)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse student roster")
		return graph, nil, err
	}
	teachers, err := schulnetz.ParseTeachers(teachersHtml)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse teacher directory")
		return graph, nil, err
	}
	subjects, grades, err := schulnetz.ParseGrades(gradesHtml)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse grades")
		return graph, nil, err
	}
	absences, err := schulnetz.ParseAbsences(absencesHtml)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse absences")
		return graph, nil, err
	}
	transactions, err := schulnetz.ParseTransactions(transactionsCsv)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse transactions")
		return graph, nil, err
	}

	graph = Graph{
		Teachers:       teachers.Records,
		Students:       students.Records,
		Subjects:       subjects.Records,
		Grades:         grades.Records,
		Absences:       absences.Absences.Records,
		AbsenceReports: absences.Reports.Records,
		OpenAbsences:   absences.OpenAbsences.Records,
		LateAbsences:   absences.LateAbsences.Records,
		Transactions:   transactions.Records,
	}
	issues = append(issues, students.Issues...)
	issues = append(issues, teachers.Issues...)
	issues = append(issues, subjects.Issues...)
	issues = append(issues, grades.Issues...)
	issues = append(issues, absences.Absences.Issues...)
	issues = append(issues, absences.Reports.Issues...)
	issues = append(issues, absences.OpenAbsences.Issues...)
	issues = append(issues, absences.LateAbsences.Issues...)
	issues = append(issues, transactions.Issues...)

	issues = append(issues, Link(ctx, &graph)...)

	return graph, issues, nil
}
