package schulnetz

// the portal routes everything through index.php?pageid=<n>, these are
// the page identifiers the fetcher needs
const (
	// "Verwaltung > Listen" student roster
	PageStudents = "22250"
	// teacher directory
	PageTeachers = "22352"
	// "Noten" current grades per subject
	PageGrades = "21311"
	// "Absenzen" overview including reports, open and late absences
	PageAbsences = "21111"
	// account transactions, served as a CSV export
	PageTransactions = "21411"

	pageLogout = "9999"
)
