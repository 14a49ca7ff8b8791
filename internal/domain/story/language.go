package story

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a target language a story can be generated in.
type Language string

const (
	French  Language = "fr"
	Spanish Language = "es"
)

// SupportedLanguages lists the target languages in display order.
var SupportedLanguages = []Language{French, Spanish}

var speechRegions = map[Language]language.Region{
	French:  language.MustParseRegion("FR"),
	Spanish: language.MustParseRegion("ES"),
}

func (l Language) String() string {
	return string(l)
}

// Tag returns the BCP 47 tag used for speech synthesis, e.g. fr-FR.
func (l Language) Tag() language.Tag {
	base := language.Make(string(l))
	region, ok := speechRegions[l]
	if !ok {
		return base
	}
	tag, err := language.Compose(base, region)
	if err != nil {
		return base
	}
	return tag
}

// Locale is the speech locale string handed to the driver.
func (l Language) Locale() string {
	return l.Tag().String()
}

// FullName is the English name of the language, e.g. "French".
func (l Language) FullName() string {
	return display.English.Languages().Name(language.Make(string(l)))
}

// NativeName is the language's name for itself, e.g. "français".
func (l Language) NativeName() string {
	return display.Self.Name(language.Make(string(l)))
}

// ParseLanguage resolves user input such as "fr", "French" or "span" to a supported language.
func ParseLanguage(input string) (Language, error) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return "", fmt.Errorf("no language given")
	}

	names := make([]string, 0, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		if needle == string(l) || needle == strings.ToLower(l.FullName()) || needle == strings.ToLower(l.Locale()) {
			return l, nil
		}
		names = append(names, strings.ToLower(l.FullName()))
	}

	matches := fuzzy.Find(needle, names)
	if len(matches) == 0 {
		return "", fmt.Errorf("unsupported language %q", input)
	}
	return SupportedLanguages[matches[0].Index], nil
}

// Level is the learner's proficiency, used to tune story difficulty.
type Level string

const (
	Beginner     Level = "Beginner"
	Intermediate Level = "Intermediate"
	Expert       Level = "Expert"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = Intermediate

// Levels lists the proficiency levels in ascending order.
var Levels = []Level{Beginner, Intermediate, Expert}

var levelLabels = map[Level]string{
	Beginner:     "Beginner (A1-A2)",
	Intermediate: "Intermediate (B1-B2)",
	Expert:       "Expert (C1-C2)",
}

func (l Level) String() string {
	return string(l)
}

// Label includes the CEFR band, e.g. "Beginner (A1-A2)".
func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return string(l)
}

// ParseLevel resolves user input such as "beginner", "b1" or "exp" to a level.
func ParseLevel(input string) (Level, error) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return DefaultLevel, nil
	}

	labels := make([]string, 0, len(Levels))
	for _, l := range Levels {
		if needle == strings.ToLower(string(l)) {
			return l, nil
		}
		labels = append(labels, strings.ToLower(l.Label()))
	}

	matches := fuzzy.Find(needle, labels)
	if len(matches) == 0 {
		return "", fmt.Errorf("unknown level %q", input)
	}
	return Levels[matches[0].Index], nil
}
