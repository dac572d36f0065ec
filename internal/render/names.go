package render

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.Und, cases.NoLower)

// words splits an identifier on separators and lower-to-upper boundaries.
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// pascal turns "posted_utterance" into "PostedUtterance". Existing inner
// capitals are kept.
func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		// Only the leading rune is cased so "2fa" does not become "2Fa".
		first, rest := []rune(w)[:1], []rune(w)[1:]
		b.WriteString(titler.String(string(first)))
		b.WriteString(string(rest))
	}
	out := b.String()
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "_" + out
	}
	return out
}

// camel turns "voice_id" into "voiceId" and "URLPath" into "urlPath".
func camel(s string) string {
	p := pascal(s)
	if p == "" {
		return p
	}
	runes := []rune(p)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
	case n == 1 || n == len(runes):
		for i := 0; i < n; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	default:
		// Leading acronym: keep the capital that starts the next word.
		for i := 0; i < n-1; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	return escapeKeyword(string(runes))
}

var swiftKeywords = map[string]bool{
	"as": true, "case": true, "class": true, "default": true, "enum": true,
	"extension": true, "func": true, "import": true, "in": true, "internal": true,
	"is": true, "let": true, "operator": true, "private": true, "protocol": true,
	"public": true, "repeat": true, "return": true, "self": true, "struct": true,
	"switch": true, "var": true, "where": true, "while": true,
}

func escapeKeyword(s string) string {
	if swiftKeywords[s] {
		return "`" + s + "`"
	}
	return s
}

// bare strips keyword escaping so names can be compared and recorded.
func bare(s string) string { return strings.Trim(s, "`") }

// namespaceDir is the directory segment for a schema namespace.
func namespaceDir(namespace string) string {
	if namespace == "" {
		return "Shared"
	}
	return strings.ToUpper(namespace)
}
