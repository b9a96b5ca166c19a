package wordcount

import (
	"strings"
	"unicode"

	"WordCount/internal/types"
)

// Punctuation is the ASCII punctuation set removed from every line.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var punctuation [128]bool

func init() {
	for i := 0; i < len(Punctuation); i++ {
		punctuation[Punctuation[i]] = true
	}
}

// Normalize lowercases line, deletes punctuation and splits it on white space
// and the ASCII separator controls.
// Punctuation is deleted rather than replaced, so "don't" becomes "dont".
func Normalize(line string) []string {
	line = strings.Map(func(r rune) rune {
		if r < 128 && punctuation[r] {
			return -1
		}
		return r
	}, strings.ToLower(line))

	return strings.FieldsFunc(line, isSeparator)
}

// isSeparator reports Unicode white space plus the ASCII file, group, record
// and unit separators (0x1c-0x1f), which also delimit words.
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Counter implements the Mapper interface for word count.
type Counter struct{}

// Map emits (token, 1) for every normalized token of the record's line.
// The record source is ignored.
func (Counter) Map(rec types.Record, emit func(key string, value int)) {
	for _, token := range Normalize(rec.Line) {
		emit(token, 1)
	}
}
