package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"linguanest/internal/domain/story"
)

const alignedStory = `{"englishParagraphs":[["The sun rises.","Birds sing."]],"targetParagraphs":[["Le soleil se lève.","Les oiseaux chantent."]]}`

func geminiEnvelope(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(body)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGemini(GeminiConfig{
		APIKey:            "test-key",
		Endpoint:          srv.URL,
		Model:             "test-model",
		RequestsPerMinute: 60000,
	})
}

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		fmt.Fprint(w, geminiEnvelope("```json\n"+alignedStory+"\n```"))
	})

	content, err := g.Generate(context.Background(), Request{Topic: "morning", Language: story.French, Level: story.Beginner})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	want := &story.Content{
		EnglishParagraphs: story.Paragraphs{{"The sun rises.", "Birds sing."}},
		TargetParagraphs:  story.Paragraphs{{"Le soleil se lève.", "Les oiseaux chantent."}},
	}
	if diff := cmp.Diff(want, content); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}

	if gotPath != "/test-model:generateContent" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key query = %q", gotKey)
	}
	if gotBody.GenerationConfig.ResponseMimeType != "application/json" || gotBody.GenerationConfig.TopK != 40 {
		t.Errorf("unexpected generation config: %+v", gotBody.GenerationConfig)
	}
	prompt := gotBody.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, `"morning"`) || !strings.Contains(prompt, "French") || !strings.Contains(prompt, "Beginner") {
		t.Errorf("prompt does not mention topic, language and level:\n%s", prompt)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"rejected key", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, Configuration, msgBadKey},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"permission denied"}}`, Configuration, msgBadKey},
		{"server error", http.StatusServiceUnavailable, `overloaded`, Transient, ""},
		{"not json", http.StatusOK, geminiEnvelope("Once upon a time..."), Malformed, msgBadJSON},
		{"misaligned", http.StatusOK, geminiEnvelope(`{"englishParagraphs":[["A."]],"targetParagraphs":[]}`), Malformed, msgMisaligned},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, Malformed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := g.Generate(context.Background(), Request{Topic: "x", Language: story.Spanish, Level: story.Expert})

			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProviderError, got %T (%v)", err, err)
			}
			if perr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", perr.Kind, tt.wantKind)
			}
			if tt.wantMsg != "" && perr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", perr.Message, tt.wantMsg)
			}
		})
	}
}

func TestGeminiMissingKey(t *testing.T) {
	g := NewGemini(GeminiConfig{})

	_, err := g.Generate(context.Background(), Request{Topic: "x", Language: story.French})
	if !IsConfigurationIssue(err) {
		t.Fatalf("expected configuration issue, got %v", err)
	}
	if err.Error() != msgMissingKey {
		t.Errorf("message = %q", err.Error())
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json {\"a\":1} ```  ", `{"a":1}`},
	}

	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
