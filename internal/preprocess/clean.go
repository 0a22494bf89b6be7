package preprocess

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Bracketed numeric citations: [12], [1,3-5], [7–9].
	bracketCitationRe = regexp.MustCompile(`\[\d+(?:\s*[,;–-]\s*\d+)*\]`)
	// Parenthesized author-year citations: (Smith et al., 2020),
	// (Jones and Lee 1998; Kim et al. 2005).
	authorYearRe = regexp.MustCompile(`\((?:[A-Z][A-Za-z'’-]+(?:\s+(?:et al\.?|and\s+[A-Z][A-Za-z'’-]+))?,?\s+(?:19|20)\d{2}[a-z]?(?:\s*;\s*)?)+\)`)
	// Figure/table captions at line starts and inline pointers to them.
	captionLineRe   = regexp.MustCompile(`(?m)^(?:Figure|Fig\.?|Table|Supplementary\s+(?:Figure|Table))\s+\S+[.:].*$`)
	figurePointerRe = regexp.MustCompile(`\(\s*(?:see\s+)?(?:Figure|Fig\.?|Table|Supplementary\s+(?:Figure|Table))\s+[A-Za-z0-9]+(?:[A-Za-z0-9,\s-]*)\)`)
	whitespaceRe    = regexp.MustCompile(`[ \t]+`)
	blankLinesRe    = regexp.MustCompile(`\n{2,}`)
)

// Clean applies the ordered cleaning rules to raw scientific text: citation
// markers, figure/table captions and pointers, whitespace collapse, and
// Unicode normalization. Greek letters and hyphenated tokens survive.
func Clean(text string, removeCitations bool) string {
	s := text
	if removeCitations {
		s = bracketCitationRe.ReplaceAllString(s, "")
		s = authorYearRe.ReplaceAllString(s, "")
	}
	s = captionLineRe.ReplaceAllString(s, "")
	s = figurePointerRe.ReplaceAllString(s, "")
	s = norm.NFC.String(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	// Collapse space left hanging before punctuation by marker removal.
	s = strings.ReplaceAll(s, " .", ".")
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, " ;", ";")
	return strings.TrimSpace(s)
}
