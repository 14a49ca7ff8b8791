package library

import (
	"time"

	"linguanest/internal/domain/story"
)

// Entry is one generated story kept in the local library
type Entry struct {
	ID        string         `json:"id"`
	Topic     string         `json:"topic"`
	Language  story.Language `json:"language"`
	Level     story.Level    `json:"level"`
	Content   story.Content  `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// StoryLibrary represents a collection of generated stories from one source
type StoryLibrary struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}
