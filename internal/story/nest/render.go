package nest

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"linguanest/internal/cli/scheme/colours"
	"linguanest/internal/domain/story"
	"linguanest/internal/story/playback"
)

const (
	wrapWidth   = 78
	barWidth    = 20
	transIndent = 4
)

// renderStory prints every paragraph with 1-based global sentence numbers, the
// highlighted sentence coloured and, when wanted, the English text underneath.
func renderStory(w io.Writer, content *story.Content, highlight int, showEnglish bool) {
	global := 0
	for p, paragraph := range content.TargetParagraphs {
		var b strings.Builder
		for s, sentence := range paragraph {
			if s > 0 {
				b.WriteString(" ")
			}
			label := fmt.Sprintf("[%d] %s", global+1, sentence)
			if global == highlight {
				label = colours.Highlight.Sprint(label)
			}
			b.WriteString(label)
			global++
		}
		fmt.Fprintln(w, wordwrap.String(b.String(), wrapWidth))

		if showEnglish && p < len(content.EnglishParagraphs) {
			english := strings.Join(content.EnglishParagraphs[p], " ")
			colours.Translation.Fprintln(w, indent.String(wordwrap.String(english, wrapWidth-transIndent), transIndent))
		}
		fmt.Fprintln(w)
	}
}

func progressBar(pct int) string {
	pct = min(max(pct, 0), 100)
	filled := pct * barWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

var stateIcons = map[playback.AudioState]string{
	playback.Idle:          "⏹️ ",
	playback.LoadingSpeech: "⏳",
	playback.Playing:       "▶️ ",
	playback.Paused:        "⏸️ ",
	playback.Error:         "❌",
}

func statusLine(snap Snapshot) string {
	line := fmt.Sprintf("%s %-8s %s %3d%%", stateIcons[snap.State], snap.State, progressBar(snap.Progress), snap.Progress)
	if total := snap.Story.TotalSentences(); total > 0 && snap.Highlight >= 0 {
		line += fmt.Sprintf("  sentence %d/%d", snap.Highlight+1, total)
	}
	return line
}

// renderSentence prints the sentence being spoken and, when wanted, its translation.
func renderSentence(w io.Writer, snap Snapshot, showEnglish bool) {
	target, english, ok := snap.HighlightedPair()
	if !ok {
		return
	}
	fmt.Fprintf(w, "%3d  ", snap.Highlight+1)
	colours.Highlight.Fprintln(w, target)
	if showEnglish {
		colours.Translation.Fprintln(w, indent.String(english, 5))
	}
}
