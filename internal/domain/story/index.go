package story

// NoSentence marks the absence of a highlighted or addressed sentence.
const NoSentence = -1

// Coord addresses a sentence by paragraph and position within that paragraph.
type Coord struct {
	Paragraph int
	Sentence  int
}

// TotalSentences sums the lengths of all paragraphs. A nil set has zero sentences.
func TotalSentences(paragraphs Paragraphs) int {
	total := 0
	for _, paragraph := range paragraphs {
		total += len(paragraph)
	}
	return total
}

// ToGlobalIndex converts paragraph coordinates into a flat sentence index.
// Callers are responsible for passing coordinates that are in range.
func ToGlobalIndex(paragraph, sentence int, paragraphs Paragraphs) int {
	global := 0
	for i := 0; i < paragraph; i++ {
		global += len(paragraphs[i])
	}
	return global + sentence
}

// FromGlobalIndex converts a flat sentence index back into paragraph coordinates.
// It reports false for negative indices (including NoSentence) and for indices past the end.
func FromGlobalIndex(global int, paragraphs Paragraphs) (Coord, bool) {
	if global < 0 {
		return Coord{}, false
	}

	seen := 0
	for p, paragraph := range paragraphs {
		if global < seen+len(paragraph) {
			return Coord{Paragraph: p, Sentence: global - seen}, true
		}
		seen += len(paragraph)
	}

	return Coord{}, false
}
