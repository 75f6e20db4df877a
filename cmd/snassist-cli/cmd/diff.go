package cmd

import (
	"errors"
	"fmt"
	"log"

	"snassist-backend/lib/timezone"
	"snassist-backend/services/studentdata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Scrapes once, prints what changed since the last stored snapshot and stores the new one.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		db, err := config.Store.OpenDB()
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		store, err := studentdata.NewStore(db)
		if err != nil {
			log.Fatal(err)
		}

		graph, issues, err := fetchGraph(ctx)
		if err != nil {
			log.Fatal(err)
		}
		printIssues(issues)

		previous, at, err := store.PullLatest(ctx, config.Portal.Login)
		if errors.Is(err, studentdata.ErrNoSnapshot) {
			fmt.Println("no previous snapshot, storing the first one")
			err = store.Push(ctx, config.Portal.Login, timezone.Now(), graph)
			if err != nil {
				log.Fatal(err)
			}
			return
		}
		if err != nil {
			log.Fatal(err)
		}

		diff := studentdata.DiffGraphs(previous, graph)
		printDiff(diff, at.Format(timezone.LayoutDateTime))

		err = store.Push(ctx, config.Portal.Login, timezone.Now(), graph)
		if err != nil {
			log.Fatal(err)
		}
	},
}

func printDiff(diff studentdata.GraphDiff, since string) {
	if diff.Empty() {
		fmt.Printf("no changes since %s\n", since)
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"Records", "Added", "Changed", "Removed"})
	row := func(name string, added, modified, removed int) {
		if added == 0 && modified == 0 && removed == 0 {
			return
		}
		t.AppendRow(table.Row{name, added, modified, removed})
	}
	row("Grades", len(diff.Grades.Added), len(diff.Grades.Modified), len(diff.Grades.Removed))
	row("Subjects", len(diff.Subjects.Added), len(diff.Subjects.Modified), len(diff.Subjects.Removed))
	row("Absences", len(diff.Absences.Added), len(diff.Absences.Modified), len(diff.Absences.Removed))
	row("Late arrivals", len(diff.LateAbsences.Added), len(diff.LateAbsences.Modified), len(diff.LateAbsences.Removed))
	row("Transactions", len(diff.Transactions.Added), len(diff.Transactions.Modified), len(diff.Transactions.Removed))
	row("Teachers", len(diff.Teachers.Added), len(diff.Teachers.Modified), len(diff.Teachers.Removed))
	row("Students", len(diff.Students.Added), len(diff.Students.Modified), len(diff.Students.Removed))
	t.Render()

	for _, grade := range diff.Grades.Added {
		fmt.Printf("new grade: %s  %s (%s): %.2f\n",
			grade.Date.Format(timezone.LayoutDate),
			grade.Title, grade.SubjectAbbreviation, grade.Value)
	}
}
