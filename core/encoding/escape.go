// Package encoding provides shared text escaping for serialized markup.
package encoding

import "strings"

var (
	xmlTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	xmlAttrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
		"\t", "&#x9;", "\n", "&#xA;", "\r", "&#xD;")
)

// EscapeXMLText escapes character data for XML element content. Non-ASCII
// characters are written as themselves, never as references.
func EscapeXMLText(s string) string {
	return xmlTextEscaper.Replace(s)
}

// EscapeXMLAttr escapes a value for a double-quoted XML attribute.
// Whitespace other than spaces is written as a character reference so
// that attribute normalization does not change it on re-parse.
func EscapeXMLAttr(s string) string {
	return xmlAttrEscaper.Replace(s)
}
