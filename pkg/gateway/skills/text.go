package skills

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tokenize normalizes text for overlap matching: lower-case, fold alef
// variants and teh marbuta to one canonical form, keep only word characters
// and the Arabic block, and drop tokens shorter than three runes. The folding
// is a search-time approximation, not an orthographic correction.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case 'أ', 'إ', 'آ':
			r = 'ا'
		case 'ة':
			r = 'ه'
		}
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	toks := fields[:0]
	for _, tok := range fields {
		if utf8.RuneCountInString(tok) > 2 {
			toks = append(toks, tok)
		}
	}
	return toks
}

func isWordRune(r rune) bool {
	if r >= 0x0600 && r <= 0x06FF {
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func tokenSet(text string) map[string]struct{} {
	toks := tokenize(text)
	set := make(map[string]struct{}, len(toks))
	for _, tok := range toks {
		set[tok] = struct{}{}
	}
	return set
}

// bestMatch scores each paragraph by the size of its token-set intersection
// with the question and returns the best one. Ties keep the first paragraph
// encountered.
func bestMatch(question string, paras []string) (text string, score int) {
	qToks := tokenSet(question)
	if len(qToks) == 0 {
		return "", 0
	}
	for _, para := range paras {
		pToks := tokenSet(para)
		overlap := 0
		for tok := range qToks {
			if _, ok := pToks[tok]; ok {
				overlap++
			}
		}
		if overlap > score {
			score = overlap
			text = para
		}
	}
	return text, score
}

// truncateAnswer cuts an overlong answer at the last whitespace boundary at
// or before maxChars (runes, not bytes) and appends an ellipsis so spoken
// output is never clipped mid-word.
func truncateAnswer(ans string, maxChars int) string {
	runes := []rune(ans)
	if maxChars <= 0 || len(runes) <= maxChars {
		return ans
	}
	cut := string(runes[:maxChars])
	if idx := strings.LastIndex(cut, " "); idx >= 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
