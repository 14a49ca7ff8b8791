package generator

import (
	"context"
	"fmt"

	"github.com/sahilm/fuzzy"

	"linguanest/internal/domain/story"
)

type sampleStory struct {
	Title   string
	English story.Paragraphs
	Target  map[story.Language]story.Paragraphs
}

var sampleStories = []sampleStory{
	{
		Title: "the market",
		English: story.Paragraphs{
			{"Marie goes to the market on Saturday.", "She buys apples and bread.", "The baker smiles at her."},
			{"It starts to rain.", "Marie opens her red umbrella.", "She walks home happily."},
		},
		Target: map[story.Language]story.Paragraphs{
			story.French: {
				{"Marie va au marché le samedi.", "Elle achète des pommes et du pain.", "Le boulanger lui sourit."},
				{"Il commence à pleuvoir.", "Marie ouvre son parapluie rouge.", "Elle rentre chez elle joyeusement."},
			},
			story.Spanish: {
				{"María va al mercado el sábado.", "Compra manzanas y pan.", "El panadero le sonríe."},
				{"Empieza a llover.", "María abre su paraguas rojo.", "Vuelve a casa feliz."},
			},
		},
	},
	{
		Title: "the lost cat",
		English: story.Paragraphs{
			{"Tom has a small grey cat.", "One morning the cat is gone.", "Tom looks everywhere in the house."},
			{"He hears a noise in the garden.", "The cat is sleeping under a tree.", "Tom laughs and picks it up."},
		},
		Target: map[story.Language]story.Paragraphs{
			story.French: {
				{"Tom a un petit chat gris.", "Un matin, le chat a disparu.", "Tom cherche partout dans la maison."},
				{"Il entend un bruit dans le jardin.", "Le chat dort sous un arbre.", "Tom rit et le prend dans ses bras."},
			},
			story.Spanish: {
				{"Tom tiene un gato gris pequeño.", "Una mañana el gato no está.", "Tom busca por toda la casa."},
				{"Oye un ruido en el jardín.", "El gato duerme debajo de un árbol.", "Tom se ríe y lo levanta."},
			},
		},
	},
}

// Sample serves built-in stories without network access.
type Sample struct{}

// NewSample creates the offline story generator.
func NewSample() *Sample {
	return &Sample{}
}

// Generate picks the built-in story whose title best matches the topic.
func (s *Sample) Generate(ctx context.Context, req Request) (*story.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, transientError("story request cancelled", err)
	}

	chosen := sampleStories[0]
	titles := make([]string, len(sampleStories))
	for i, st := range sampleStories {
		titles[i] = st.Title
	}
	if matches := fuzzy.Find(req.Topic, titles); len(matches) > 0 {
		chosen = sampleStories[matches[0].Index]
	}

	target, ok := chosen.Target[req.Language]
	if !ok {
		metricRequests.WithLabelValues("sample", Malformed.String()).Inc()
		return nil, malformedError(fmt.Sprintf("No sample story available in %s.", req.Language.FullName()), nil)
	}

	metricRequests.WithLabelValues("sample", "ok").Inc()
	return &story.Content{
		EnglishParagraphs: chosen.English,
		TargetParagraphs:  target,
	}, nil
}
