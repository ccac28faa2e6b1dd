package tools

import (
	"strings"
	"unicode"
)

// containsTrigger reports whether trigger occurs in text. Both must already be
// lower-cased. Triggers that start or end with a letter or digit only match on
// word boundaries, so "date" does not fire inside "update"; symbol triggers
// such as "+" match anywhere.
func containsTrigger(text, trigger string) bool {
	if trigger == "" {
		return false
	}
	first := []rune(trigger)[0]
	last := []rune(trigger)[len([]rune(trigger))-1]
	checkStart := isWordRune(first)
	checkEnd := isWordRune(last)

	offset := 0
	for {
		idx := strings.Index(text[offset:], trigger)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(trigger)
		if (!checkStart || !wordRuneBefore(text, start)) && (!checkEnd || !wordRuneAt(text, end)) {
			return true
		}
		offset = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordRuneBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r := []rune(text[:i])
	return isWordRune(r[len(r)-1])
}

func wordRuneAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	for _, r := range text[i:] {
		return isWordRune(r)
	}
	return false
}

var determiners = map[string]bool{"the": true, "a": true, "an": true, "my": true, "this": true, "that": true, "some": true}

// skipDeterminers drops leading articles and determiners from words.
func skipDeterminers(words []string) []string {
	for len(words) > 0 && determiners[strings.ToLower(trimPunct(words[0]))] {
		words = words[1:]
	}
	return words
}
