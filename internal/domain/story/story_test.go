package story

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContentValidate(t *testing.T) {
	tests := []struct {
		name    string
		content *Content
		wantErr error
	}{
		{
			name: "aligned",
			content: &Content{
				EnglishParagraphs: Paragraphs{{"Hello.", "Bye."}, {"Yes."}},
				TargetParagraphs:  Paragraphs{{"Bonjour.", "Au revoir."}, {"Oui."}},
			},
		},
		{"nil", nil, ErrEmptyStory},
		{"empty", &Content{}, ErrEmptyStory},
		{
			name: "paragraph count differs",
			content: &Content{
				EnglishParagraphs: Paragraphs{{"Hello."}, {"Yes."}},
				TargetParagraphs:  Paragraphs{{"Bonjour."}},
			},
			wantErr: ErrMisaligned,
		},
		{
			name: "sentence count differs",
			content: &Content{
				EnglishParagraphs: Paragraphs{{"Hello.", "Bye."}},
				TargetParagraphs:  Paragraphs{{"Bonjour."}},
			},
			wantErr: ErrMisaligned,
		},
		{
			name: "empty paragraph",
			content: &Content{
				EnglishParagraphs: Paragraphs{{}},
				TargetParagraphs:  Paragraphs{{}},
			},
			wantErr: ErrMisaligned,
		},
		{
			name: "blank sentence",
			content: &Content{
				EnglishParagraphs: Paragraphs{{"Hello."}},
				TargetParagraphs:  Paragraphs{{"  "}},
			},
			wantErr: ErrMisaligned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.content.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestContentJSON(t *testing.T) {
	raw := `{"englishParagraphs":[["One.","Two."]],"targetParagraphs":[["Uno.","Dos."]]}`

	var content Content
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	want := Content{
		EnglishParagraphs: Paragraphs{{"One.", "Two."}},
		TargetParagraphs:  Paragraphs{{"Uno.", "Dos."}},
	}
	if diff := cmp.Diff(want, content); diff != "" {
		t.Errorf("decoded content mismatch (-want +got):\n%s", diff)
	}
	if content.TotalSentences() != 2 {
		t.Errorf("TotalSentences() = %d, want 2", content.TotalSentences())
	}
}

func TestParagraphsFlattenAndSentence(t *testing.T) {
	want := []string{"a", "b", "c", "d", "e", "f"}
	if diff := cmp.Diff(want, threeParagraphs.Flatten()); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}

	if got := threeParagraphs.Sentence(3); got != "d" {
		t.Errorf("Sentence(3) = %q, want %q", got, "d")
	}
	if got := threeParagraphs.Sentence(NoSentence); got != "" {
		t.Errorf("Sentence(NoSentence) = %q, want empty", got)
	}
}
