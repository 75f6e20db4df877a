package schulnetz

import "strings"

// cookie metadata attributes that must not end up in the jar.
//
// attributes are recognized by name rather than by tracking an
// in-metadata mode: real cookies may legitimately follow an attribute
// within the same chained header (`a=1; Path=/; b=2`), so a mode flag
// would drop them. the cost is that an attribute name missing from
// this set would be stored as a cookie.
var cookieAttributes = map[string]struct{}{
	"path":        {},
	"domain":      {},
	"expires":     {},
	"max-age":     {},
	"secure":      {},
	"httponly":    {},
	"samesite":    {},
	"priority":    {},
	"partitioned": {},
}

// parseSetCookie merges the combined Set-Cookie response header value
// into the jar. The header chains multiple cookies separated by `,`
// and per-cookie metadata attributes separated by `;`.
//
// This is a hand-rolled scanner rather than a split on `;`/`,` because
// attribute values may themselves contain delimiters, most notably the
// comma inside Expires dates. Scanning left to right on the first of
// `;`, `=` or `,`: a token followed by `=` is a key whose value runs
// until the next `;` or `,`; keys naming a metadata attribute are
// skipped; bare tokens without `=` (flags like Secure, or the tail of
// a comma-containing date) are skipped; everything else is stored.
// A missing header is a no-op.
func parseSetCookie(header string, jar map[string]string) {
	i := 0
	for i < len(header) {
		j := strings.IndexAny(header[i:], ";=,")
		if j == -1 {
			// trailing token without a delimiter, nothing left to store
			return
		}
		delim := header[i+j]
		token := strings.TrimSpace(header[i : i+j])
		i += j + 1

		if delim != '=' {
			continue
		}

		// value runs until the end of this cookie or attribute
		k := strings.IndexAny(header[i:], ";,")
		var value string
		if k == -1 {
			value = header[i:]
			i = len(header)
		} else {
			value = header[i : i+k]
			i += k + 1
		}

		if token == "" {
			continue
		}
		_, isAttribute := cookieAttributes[strings.ToLower(token)]
		if isAttribute {
			continue
		}
		jar[token] = strings.TrimSpace(value)
	}
}

// cookieHeader renders the jar as a request Cookie header value.
func cookieHeader(jar map[string]string) string {
	var buffer strings.Builder
	for name, value := range jar {
		if buffer.Len() > 0 {
			buffer.WriteString("; ")
		}
		buffer.WriteString(name)
		buffer.WriteString("=")
		buffer.WriteString(value)
	}
	return buffer.String()
}
