package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustParse(t *testing.T, text string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestInnerText(t *testing.T) {
	doc := mustParse(t, `<div id="x">one<br>two<span>ignored</span>three</div>`)
	got := InnerText(doc.Find("#x"))
	want := "one\ntwothree"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSelectExactly(t *testing.T) {
	doc := mustParse(t, `<ul><li>a</li><li>b</li></ul>`)

	_, err := SelectExactly(doc.Selection, "li", 2)
	if err != nil {
		t.Fatal(err)
	}
	_, err = SelectExactly(doc.Selection, "li", 3)
	if err == nil {
		t.Fatal("expected a shape error")
	}
}

func TestAttr(t *testing.T) {
	doc := mustParse(t, `<a href="/x">link</a>`)
	if got := Attr(doc.Find("a"), "href"); got != "/x" {
		t.Fatalf("got %q", got)
	}
	if got := Attr(doc.Find("a"), "target"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
