package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linguanest/internal/domain/story"
)

// StoryGenerator produces aligned bilingual stories for a topic.
type StoryGenerator interface {
	Generate(ctx context.Context, req Request) (*story.Content, error)
}

// Request describes the story a learner asked for
type Request struct {
	Topic    string
	Language story.Language
	Level    story.Level
}

func (r Request) String() string {
	return fmt.Sprintf("%q (%s, %s)", r.Topic, r.Language, r.Level)
}

// ErrorKind classifies provider failures so callers do not have to parse messages.
type ErrorKind int

const (
	// Transient failures only block the current attempt.
	Transient ErrorKind = iota
	// Configuration failures (missing or rejected credential) persist until the setup is fixed.
	Configuration
	// Malformed means the provider answered but the story could not be used.
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Malformed:
		return "malformed"
	default:
		return "transient"
	}
}

// ProviderError is the error type returned by every StoryGenerator in this package.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " provider error"
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func configurationError(msg string, err error) *ProviderError {
	return &ProviderError{Kind: Configuration, Message: msg, Err: err}
}

func transientError(msg string, err error) *ProviderError {
	return &ProviderError{Kind: Transient, Message: msg, Err: err}
}

func malformedError(msg string, err error) *ProviderError {
	return &ProviderError{Kind: Malformed, Message: msg, Err: err}
}

// IsConfigurationIssue reports whether err means generation cannot work until the setup changes.
// Untyped errors are classified by looking for an API key mention in the message.
func IsConfigurationIssue(err error) bool {
	if err == nil {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr.Kind == Configuration {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api_key")
}
