package tts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestESpeakArgs(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		u      Utterance
		want   []string
	}{
		{
			name:   "locale voice",
			config: Config{Volume: 1},
			u:      Utterance{Text: "Bonjour.", Locale: "fr-FR", Rate: 0.9},
			want:   []string{"-v", "fr", "-s", "157", "-a", "100", "Bonjour."},
		},
		{
			name:   "explicit voice",
			config: Config{Voice: "es+f3", Volume: 0.5},
			u:      Utterance{Text: "Hola.", Locale: "es-ES", Rate: 1},
			want:   []string{"-v", "es+f3", "-s", "175", "-a", "50", "Hola."},
		},
		{
			name:   "defaults",
			config: Config{Voice: "default"},
			u:      Utterance{Text: "Hi."},
			want:   []string{"-s", "175", "-a", "100", "Hi."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, espeakArgs(tt.config, tt.u)); diff != "" {
				t.Errorf("espeakArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseESpeakVoices(t *testing.T) {
	output := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  es              --/M      Spanish_(Spain)    roa/es
 5  fr-fr           --/M      French_(France)    roa/fr               (fr 5)

`
	want := []string{"Spanish_(Spain) (es)", "French_(France) (fr-fr)"}
	if diff := cmp.Diff(want, parseESpeakVoices(output)); diff != "" {
		t.Errorf("parseESpeakVoices() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitIntoChunks(t *testing.T) {
	chunks := splitIntoChunks("ééééé", 2)
	want := []string{"éé", "éé", "é"}
	if diff := cmp.Diff(want, chunks); diff != "" {
		t.Errorf("splitIntoChunks() mismatch (-want +got):\n%s", diff)
	}
}
