package tts

import (
	"time"
	"unicode"
)

// defaultWordsPerMinute is the nominal speaking speed of the command line synthesizers at rate 1.0
const defaultWordsPerMinute = 175

// speechClock estimates how far into an utterance a synthesizer is, for drivers that
// report nothing but start and exit. Paused time is not counted.
type speechClock struct {
	wordStarts   []int
	wordsPerSec  float64
	elapsed      time.Duration
	runningSince time.Time
	running      bool
	now          func() time.Time
}

func newSpeechClock(text string, wordsPerMinute, rate float64, now func() time.Time) *speechClock {
	if rate <= 0 {
		rate = 1
	}
	if now == nil {
		now = time.Now
	}
	return &speechClock{
		wordStarts:  wordStarts(text),
		wordsPerSec: wordsPerMinute * rate / 60,
		now:         now,
	}
}

// wordStarts returns the rune offset of the first letter of every word.
func wordStarts(text string) []int {
	var starts []int
	inWord := false
	i := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			starts = append(starts, i)
			inWord = true
		}
		i++
	}
	return starts
}

func (c *speechClock) Start() {
	if c.running {
		return
	}
	c.runningSince = c.now()
	c.running = true
}

func (c *speechClock) Pause() {
	if !c.running {
		return
	}
	c.elapsed += c.now().Sub(c.runningSince)
	c.running = false
}

func (c *speechClock) Elapsed() time.Duration {
	if c.running {
		return c.elapsed + c.now().Sub(c.runningSince)
	}
	return c.elapsed
}

// Position returns the rune offset of the word currently being spoken, or -1 before any word.
func (c *speechClock) Position() int {
	if len(c.wordStarts) == 0 {
		return -1
	}
	word := int(c.Elapsed().Seconds() * c.wordsPerSec)
	if word >= len(c.wordStarts) {
		word = len(c.wordStarts) - 1
	}
	return c.wordStarts[word]
}
