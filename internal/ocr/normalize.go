package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)
	// a letter O read inside a digit run, e.g. "1,1O9.50"
	reLetterO = regexp.MustCompile(`(\d)[Oo](\d)`)
)

var minusLike = strings.NewReplacer(
	"−", "-", // minus sign
	"‒", "-", // figure dash
	"–", "-", // en dash
	"﹣", "-",
	"－", "-",
)

// Normalize collapses noisy whitespace and fixes common recognition artifacts
// in numbers. Line breaks are kept; runs of blank lines become one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")

	s = minusLike.Replace(s)
	for {
		next := reLetterO.ReplaceAllString(s, "${1}0${2}")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}
