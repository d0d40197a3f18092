package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default segment budgets, in characters.
const (
	DefaultMaxSegmentChars  = 2000
	DefaultMinSentenceChars = 30
)

// synthesisBreaks are the characters a synthesis segment may be cut after.
const synthesisBreaks = ".?:!-"

// SegmentForSynthesis splits text into chunks of at most maxChars characters
// for the speech endpoint. Cuts happen only after a run of sentence-break
// characters. Sentences are accumulated greedily; a sentence that alone
// exceeds maxChars is emitted as its own oversized segment and never cut.
// Chunks without any letter or digit are dropped.
//
// Joining the result reproduces text in order, minus dropped chunks.
func SegmentForSynthesis(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxSegmentChars
	}

	var (
		segments []string
		buf      strings.Builder
		bufLen   int
	)
	flush := func() {
		if bufLen == 0 {
			return
		}
		if s := buf.String(); hasAlphanumeric(s) {
			segments = append(segments, s)
		}
		buf.Reset()
		bufLen = 0
	}

	for _, sentence := range splitSynthesisSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if bufLen > 0 && bufLen+n > maxChars {
			flush()
		}
		buf.WriteString(sentence)
		bufLen += n
	}
	flush()

	return segments
}

// splitSynthesisSentences cuts text after each run of break characters,
// keeping the breaks with the preceding sentence.
func splitSynthesisSentences(text string) []string {
	var (
		out   []string
		start int
		inRun bool
	)
	for i, r := range text {
		isBreak := strings.ContainsRune(synthesisBreaks, r)
		if inRun && !isBreak {
			out = append(out, text[start:i])
			start = i
		}
		inRun = isBreak
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Oversized returns the indices of segments longer than maxChars.
func Oversized(segments []string, maxChars int) []int {
	var idx []int
	for i, s := range segments {
		if utf8.RuneCountInString(s) > maxChars {
			idx = append(idx, i)
		}
	}
	return idx
}

// SegmentForDisplay splits text into sentence-level chunks for highlighting.
// A sentence ends at '.', '!', '?' or '…' followed by whitespace; the
// punctuation stays with the sentence. Adjacent sentences are joined until
// the chunk reaches minChars. A short trailing chunk is still emitted.
// No returned chunk is empty after trimming.
func SegmentForDisplay(text string, minChars int) []string {
	if minChars <= 0 {
		minChars = DefaultMinSentenceChars
	}

	var (
		segments []string
		buf      []string
		bufLen   int
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		segments = append(segments, strings.Join(buf, " "))
		buf = buf[:0]
		bufLen = 0
	}

	for _, sentence := range splitDisplaySentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if len(buf) > 0 {
			bufLen++ // joining space
		}
		buf = append(buf, sentence)
		bufLen += utf8.RuneCountInString(sentence)
		if bufLen >= minChars {
			flush()
		}
	}
	flush()

	return segments
}

func splitDisplaySentences(text string) []string {
	var (
		out     []string
		start   int
		prevEnd bool
	)
	for i, r := range text {
		if prevEnd && unicode.IsSpace(r) {
			out = append(out, text[start:i])
			start = i
		}
		prevEnd = isSentenceEnd(r)
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
