package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// answerTemplate is the structured persona prompt. Placeholders:
// soil type, location, retrieved context, formatted history, question,
// introduction instruction.
const answerTemplate = `# 🎯 IDENTITÉ ET MANDAT
Vous êtes **` + AssistantName + `**, un expert agricole sénégalais virtuel. Votre mission est d'accompagner les agriculteurs avec des conseils pratiques, précis et bienveillants, exclusivement centrés sur l'agriculture au Sénégal.

# 📜 RÈGLES DE FONCTIONNEMENT
## DOMAINE D'EXPERTISE (NON-NÉGOCIABLE)
- ✅ **SUJETS AUTORISÉS** : Agriculture sénégalaise, cultures locales, sols, climat, météo, saisons, irrigation, fertilisation, protection des cultures, calendriers culturaux
- ❌ **SUJETS REFUSÉS** : Toute question hors agriculture sénégalaise, politique, économie générale, santé humaine, technologie hors agriculture
- **RÈGLE D'OR** : Si une question sort de votre domaine, répondez chaleureusement mais fermement : *"` + OutOfScopeMessage + `"*

## QUALITÉS REQUISES
- **Praticité** : Toujours donner des conseils applicables immédiatement
- **Précision** : Utiliser les données contextuelles (sol, localisation)
- **Empathie** : Comprendre les difficultés des agriculteurs
- **Clarté** : Expliquer les termes techniques simplement

# 📊 CONTEXTE UTILISATEUR (PERSONNALISATION)
**Profil agricole :**
- 🌱 **Type de sol** : %[1]s
- 📍 **Localisation** : %[2]s

# 📚 BASE DE CONNAISSANCES (CONTEXTE RÉCUPÉRÉ)
%[3]s

# 💬 HISTORIQUE DE CONVERSATION (POUR RÉFÉRENCE)
%[4]s

# 🎤 QUESTION (CONSOLIDÉE)
%[5]s

# ✨ INSTRUCTIONS DE RÉPONSE
0. **%[6]s**
1. **Accueil chaleureux** (Rapide si ce n'est pas le début)
2. **Réponse structurée** basée sur le contexte et votre expertise
3. **Application locale** liée à %[1]s et %[2]s
4. **Citation des sources** (ex: "Selon les données météo...")

**Commencez maintenant votre réponse :
`

// Introduction instruction, chosen by whether this is the first turn.
const (
	introFirstContact = "Présentez-vous brièvement comme " + AssistantName + "."
	introFollowUp     = "NE VOUS PRÉSENTEZ PAS. Répondez directement à la question."
)

// GenerateInput carries everything the answer prompt needs.
type GenerateInput struct {
	Question string
	Context  string // retrieved chunks, already formatted
	History  []Exchange
	SoilType string
	Location string
}

// ChunkFunc receives each answer fragment as the model produces it.
// Returning an error aborts the stream.
type ChunkFunc func(ctx context.Context, text string) error

// Generator produces the final streamed answer from the persona prompt.
type Generator struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewGenerator creates a generator for the given provider-qualified model
// name. A nil limiter gets a default of 10 req/s with burst 30.
func NewGenerator(g *genkit.Genkit, modelName string, temperature float32, limiter *rate.Limiter, logger *slog.Logger) *Generator {
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	return &Generator{g: g, modelName: modelName, temperature: temperature, limiter: limiter, logger: logger}
}

// Stream generates the answer, forwarding each fragment to emit as it
// arrives, and returns the full answer text once the model finishes.
func (gen *Generator) Stream(ctx context.Context, in GenerateInput, emit ChunkFunc) (string, error) {
	if err := gen.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	prompt := buildAnswerPrompt(in)
	gen.logger.Debug("generating answer",
		"model", gen.modelName,
		"history_turns", len(in.History),
		"context_len", len(in.Context),
	)

	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.modelName),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(gen.temperature),
		}),
		ai.WithPrompt(prompt),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return emit(ctx, chunk.Text())
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return resp.Text(), nil
}

// buildAnswerPrompt fills the persona template, defaulting the farm
// profile and picking the introduction instruction from the history.
func buildAnswerPrompt(in GenerateInput) string {
	soil := in.SoilType
	if soil == "" {
		soil = DefaultSoilType
	}
	location := in.Location
	if location == "" {
		location = DefaultLocation
	}
	intro := introFirstContact
	if len(in.History) > 0 {
		intro = introFollowUp
	}
	return fmt.Sprintf(answerTemplate, soil, location, in.Context, FormatHistory(in.History), in.Question, intro)
}
