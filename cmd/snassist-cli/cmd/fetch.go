package cmd

import (
	"context"
	"fmt"
	"log"

	"snassist-backend/lib/scrapers/schulnetz"
	"snassist-backend/lib/timezone"
	"snassist-backend/services/studentdata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Logs in, scrapes every page once and prints the result.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		graph, issues, err := fetchGraph(ctx)
		if err != nil {
			log.Fatal(err)
		}

		printGraph(graph)
		printIssues(issues)
	},
}

func fetchGraph(ctx context.Context) (studentdata.Graph, []schulnetz.Issue, error) {
	client, err := schulnetz.NewClient(ctx, schulnetz.ClientOptions{
		BaseUrl:  config.Portal.BaseUrl,
		Login:    config.Portal.Login,
		Password: config.Portal.Password,
	})
	if err != nil {
		return studentdata.Graph{}, nil, err
	}
	defer client.Logout(context.WithoutCancel(ctx))

	return studentdata.Fetch(ctx, client)
}

func printGraph(graph studentdata.Graph) {
	subjects := newTable()
	subjects.AppendHeader(table.Row{"Subject", "Name", "Grades", "Average"})
	for _, subject := range graph.Subjects {
		average := ""
		if subject.Average > 0 {
			average = fmt.Sprintf("%.2f", subject.Average)
		}
		subjects.AppendRow(table.Row{
			subject.Abbreviation, subject.Name, len(subject.GradeIds), average,
		})
	}
	subjects.Render()

	grades := newTable()
	grades.AppendHeader(table.Row{"Date", "Subject", "Title", "Value", "Weight"})
	for _, grade := range graph.Grades {
		grades.AppendRow(table.Row{
			grade.Date.Format(timezone.LayoutDate),
			grade.SubjectAbbreviation, grade.Title, grade.Value, grade.Weight,
		})
	}
	grades.Render()

	absences := newTable()
	absences.AppendHeader(table.Row{"From", "To", "Reason", "Excused", "Lessons", "Reports"})
	for _, absence := range graph.Absences {
		absences.AppendRow(table.Row{
			absence.StartDate.Format(timezone.LayoutDate),
			absence.EndDate.Format(timezone.LayoutDate),
			absence.Reason, absence.Excused, absence.LessonCount,
			len(absence.ReportIds),
		})
	}
	absences.Render()

	transactions := newTable()
	transactions.AppendHeader(table.Row{"Date", "Text", "Amount"})
	for _, tx := range graph.Transactions {
		transactions.AppendRow(table.Row{
			tx.Date.Format(timezone.LayoutDate), tx.Text, fmt.Sprintf("%.2f", tx.Amount),
		})
	}
	transactions.Render()
}

func printIssues(issues []schulnetz.Issue) {
	if len(issues) == 0 {
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"Severity", "Issue"})
	for _, issue := range issues {
		t.AppendRow(table.Row{issue.Severity.String(), issue.Err.Error()})
	}
	t.Render()
}
