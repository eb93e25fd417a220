package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// contextualizePrompt asks the model to rewrite a follow-up question into
// a standalone one the retriever can understand without history.
const contextualizePrompt = `Étant donné l'historique de la conversation et la question actuelle de l'utilisateur,
si la question fait référence à des éléments précédents, reformulez-la en une question autonome
qui peut être comprise sans l'historique. Ne répondez pas à la question, reformulez-la simplement.
Si la question est déjà autonome, renvoyez-la telle quelle.

HISTORIQUE :
%[1]s

QUESTION ACTUELLE : %[2]s

QUESTION AUTONOME REFORMULÉE :
`

// Contextualizer rewrites follow-up questions against the conversation
// history so retrieval works on self-contained queries.
type Contextualizer struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewContextualizer creates a contextualizer using the given
// provider-qualified model name.
func NewContextualizer(g *genkit.Genkit, modelName string, logger *slog.Logger) *Contextualizer {
	return &Contextualizer{g: g, modelName: modelName, logger: logger}
}

// Standalone returns a self-contained version of question. With an empty
// history the question is already standalone and is returned as-is without
// any model call. Model failures propagate to the caller.
func (c *Contextualizer) Standalone(ctx context.Context, question string, history []Exchange) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	prompt := fmt.Sprintf(contextualizePrompt, FormatHistory(history), question)

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}

	standalone := strings.TrimSpace(resp.Text())
	if standalone == "" {
		// A blank rewrite would make retrieval useless; fall back to the
		// original question.
		return question, nil
	}

	c.logger.Info("rewrote follow-up question", "standalone", standalone)
	return standalone, nil
}
