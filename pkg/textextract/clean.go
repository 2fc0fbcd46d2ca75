package textextract

import (
	"regexp"
	"strings"
)

// Scanned judgments come out of the converter full of artifacts: page
// banners, hyphenated line breaks, stray control characters. Clean strips
// them without touching the legal text itself.

var (
	pageBannerRe  = regexp.MustCompile(`(?im)^\s*(page\s+\d+(\s+of\s+\d+)?|-\s*\d+\s*-)\s*$`)
	hyphenBreakRe = regexp.MustCompile(`(\pL)-\n(\pL)`)
	multiSpaceRe  = regexp.MustCompile(`[ \t]{2,}`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
	controlRe     = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
)

// Clean normalizes converter output for downstream chunking and review.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = controlRe.ReplaceAllString(text, "")
	text = pageBannerRe.ReplaceAllString(text, "")
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
