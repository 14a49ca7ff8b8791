package story

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyStory is returned when a story carries no paragraphs at all.
	ErrEmptyStory = errors.New("story has no paragraphs")
	// ErrMisaligned is returned when the two languages do not line up paragraph by paragraph.
	ErrMisaligned = errors.New("received misaligned or improperly formatted paragraph data")
)

// Paragraphs is an ordered list of paragraphs, each an ordered list of sentences.
type Paragraphs [][]string

// Flatten returns every sentence in reading order.
func (p Paragraphs) Flatten() []string {
	sentences := make([]string, 0, TotalSentences(p))
	for _, paragraph := range p {
		sentences = append(sentences, paragraph...)
	}
	return sentences
}

// Sentence returns the sentence at a global index, or "" when out of range.
func (p Paragraphs) Sentence(global int) string {
	coord, ok := FromGlobalIndex(global, p)
	if !ok {
		return ""
	}
	return p[coord.Paragraph][coord.Sentence]
}

// Content is one generated story in both the learner's native language and the target language.
type Content struct {
	EnglishParagraphs Paragraphs `json:"englishParagraphs"`
	TargetParagraphs  Paragraphs `json:"targetParagraphs"`
}

// Validate checks that both paragraph sets are non-empty and aligned sentence for sentence.
func (c *Content) Validate() error {
	if c == nil || len(c.EnglishParagraphs) == 0 {
		return ErrEmptyStory
	}
	if len(c.EnglishParagraphs) != len(c.TargetParagraphs) {
		return fmt.Errorf("%w: %d english paragraphs, %d target paragraphs",
			ErrMisaligned, len(c.EnglishParagraphs), len(c.TargetParagraphs))
	}

	for i := range c.EnglishParagraphs {
		eng, target := c.EnglishParagraphs[i], c.TargetParagraphs[i]
		if len(eng) == 0 || len(eng) != len(target) {
			return fmt.Errorf("%w: sentences within paragraph %d", ErrMisaligned, i+1)
		}
		for j := range eng {
			if strings.TrimSpace(eng[j]) == "" || strings.TrimSpace(target[j]) == "" {
				return fmt.Errorf("%w: empty sentence %d in paragraph %d", ErrMisaligned, j+1, i+1)
			}
		}
	}

	return nil
}

// TotalSentences is the sentence count of the target-language text.
func (c *Content) TotalSentences() int {
	if c == nil {
		return 0
	}
	return TotalSentences(c.TargetParagraphs)
}
