// Package normalize cleans free text from GitHub (release names, bodies,
// topics) before it is written to a dataset.
//
// Text keeps case and line structure:
//  1. drop control bytes and invalid UTF-8 (Sanitize)
//  2. NFKC
//  3. strip format characters (zero width joiners, BOM)
//  4. fold fullwidth forms
//  5. collapse whitespace, keeping single newlines
//
// Topic additionally case folds and keeps only [a-z0-9-]
package normalize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var textChains = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

var foldChains = sync.Pool{
	New: func() any { return transform.Chain(norm.NFKC, cases.Fold()) },
}

// Text returns the cleaned form of s
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)

	tr := textChains.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	textChains.Put(tr)
	if err != nil {
		out = s
	}
	return collapseSpaces(out)
}

// Truncate cuts s to at most n runes without splitting a rune. n <= 0 disables it
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Topic returns the canonical GitHub topic form: lower case, [a-z0-9-] only
func Topic(s string) string {
	s = strings.TrimSpace(Sanitize(s))
	if s == "" {
		return ""
	}
	tr := foldChains.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	foldChains.Put(tr)
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Topics normalizes and dedupes a topic list, keeping first-seen order
func Topics(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = Topic(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// collapseSpaces turns whitespace runs into one space, or one newline when the
// run contained a line break, and trims the edges
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS, sawNL := false, false
	flush := func() {
		if !inWS {
			return
		}
		if b.Len() > 0 {
			if sawNL {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		inWS, sawNL = false, false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			if r == '\n' || r == '\r' {
				sawNL = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	return b.String()
}
