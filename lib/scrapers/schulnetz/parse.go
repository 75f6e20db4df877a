package schulnetz

import (
	"fmt"
	"strings"

	"snassist-backend/lib/htmlutil"
	"snassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// Parsers are pure text -> record functions. They enforce a strict
// expected shape on their input document: top-level violations (a
// missing table) are returned as errors, per-record violations are
// collected as issues and abort only that record. Records are
// constructed in one step after all of their fields validated, a
// half-parsed record never escapes.

func parseDocument(text string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cellTexts extracts the trimmed direct text of every td in a row.
func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, textutil.CollapseWhitespace(htmlutil.InnerText(cell)))
	})
	return cells
}

func issuef(severity Severity, format string, args ...any) Issue {
	return Issue{Severity: severity, Err: fmt.Errorf(format, args...)}
}

func expectColumns(cells []string, n int, context string) error {
	if len(cells) != n {
		return fmt.Errorf("%s: expected %d columns, got %d", context, n, len(cells))
	}
	return nil
}
