package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reBlankLines    = regexp.MustCompile(`\n{3,}`)
	reTrailingWS    = regexp.MustCompile(`[ \t]+\n`)
	reAnyWhitespace = regexp.MustCompile(`\s+`)
)

// stripControl drops control and format characters except tab and newline.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func SanitizeTitle(input string) string {
	return Pipeline{
		normalizeNewlines,
		stripControl,
		TrimAndNormalize,
	}.Apply(input)
}

func SanitizeText(input string) string {
	return Pipeline{
		normalizeNewlines,
		stripControl,
		func(s string) string { return strings.ReplaceAll(s, "\t", " ") },
		func(s string) string { return reTrailingWS.ReplaceAllString(s, "\n") },
		func(s string) string { return reBlankLines.ReplaceAllString(s, "\n\n") },
		strings.TrimSpace,
	}.Apply(input)
}

func SanitizeID(input string) string {
	return reAnyWhitespace.ReplaceAllString(stripControl(input), "")
}
