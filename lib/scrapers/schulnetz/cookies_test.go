package schulnetz

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSetCookie(t *testing.T) {
	testCases := []struct {
		header   string
		expected map[string]string
	}{
		{
			header:   `a=1; Path=/; b=2, c=3; Secure`,
			expected: map[string]string{"a": "1", "b": "2", "c": "3"},
		},
		{
			header: `session=f00f; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Path=/, layout=wide`,
			expected: map[string]string{
				"session": "f00f",
				"layout":  "wide",
			},
		},
		{
			header:   `token=abc=def; HttpOnly`,
			expected: map[string]string{"token": "abc=def"},
		},
		{
			// cookies following an attribute in the same chained header
			// are kept, every known attribute name is dropped
			header:   `a=1; Max-Age=60; b=2; SameSite=Lax; Partitioned, c=3; Priority=High`,
			expected: map[string]string{"a": "1", "b": "2", "c": "3"},
		},
		{
			header:   ``,
			expected: map[string]string{},
		},
	}

	for _, test := range testCases {
		jar := map[string]string{}
		parseSetCookie(test.header, jar)
		diff := cmp.Diff(test.expected, jar)
		if diff != "" {
			t.Fatalf("header %q: %s", test.header, diff)
		}
	}
}

func TestParseSetCookieMerges(t *testing.T) {
	jar := map[string]string{"a": "old", "keep": "me"}
	parseSetCookie("a=new", jar)

	diff := cmp.Diff(map[string]string{"a": "new", "keep": "me"}, jar)
	if diff != "" {
		t.Fatal(diff)
	}
}
