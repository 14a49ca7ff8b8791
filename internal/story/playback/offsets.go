package playback

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Separator joins sentences into one utterance text.
const Separator = " "

// Offset locates one sentence of an utterance. Local is the sentence position within
// the utterance, Start and End are rune offsets into the joined text with End exclusive.
type Offset struct {
	Local int
	Start int
	End   int
}

// Table maps character positions of a joined utterance back to its sentences.
type Table struct {
	Text       string
	Offsets    []Offset
	TotalChars int
}

// BuildOffsets joins sentences with a single space and records where each one lies.
func BuildOffsets(sentences []string) Table {
	offsets := make([]Offset, len(sentences))
	pos := 0
	for i, s := range sentences {
		n := utf8.RuneCountInString(s)
		offsets[i] = Offset{Local: i, Start: pos, End: pos + n}
		pos += n + 1
	}

	text := strings.Join(sentences, Separator)
	return Table{
		Text:       text,
		Offsets:    offsets,
		TotalChars: utf8.RuneCountInString(text),
	}
}

// Resolve returns the local sentence that contains charIndex.
//
// A position on the separator after a sentence belongs to the following sentence,
// a position past the last sentence belongs to the last one and negative positions
// belong to the first. It reports false only for an empty table.
func (t Table) Resolve(charIndex int) (int, bool) {
	if len(t.Offsets) == 0 {
		return 0, false
	}
	// First sentence whose end lies beyond charIndex.
	i := sort.Search(len(t.Offsets), func(i int) bool {
		return t.Offsets[i].End > charIndex
	})
	if i == len(t.Offsets) {
		i = len(t.Offsets) - 1
	}
	return t.Offsets[i].Local, true
}
