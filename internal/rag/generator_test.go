package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/tewou-sn/tewou/internal/testutil"
)

func TestBuildAnswerPromptDefaults(t *testing.T) {
	prompt := buildAnswerPrompt(GenerateInput{
		Question: "Quand semer le mil ?",
		Context:  "Le mil se sème en début d'hivernage.",
	})

	if !strings.Contains(prompt, "**Type de sol** : "+DefaultSoilType) {
		t.Error("prompt should default the soil type")
	}
	if !strings.Contains(prompt, "**Localisation** : "+DefaultLocation) {
		t.Error("prompt should default the location")
	}
	if !strings.Contains(prompt, introFirstContact) {
		t.Error("first turn should ask the model to introduce itself")
	}
	if !strings.Contains(prompt, OutOfScopeMessage) {
		t.Error("prompt should carry the fixed refusal sentence")
	}
	if !strings.Contains(prompt, "Le mil se sème en début d'hivernage.") {
		t.Error("prompt should embed the retrieved context")
	}
	if !strings.Contains(prompt, "Quand semer le mil ?") {
		t.Error("prompt should embed the question")
	}
}

func TestBuildAnswerPromptProfile(t *testing.T) {
	prompt := buildAnswerPrompt(GenerateInput{
		Question: "Quelle variété choisir ?",
		SoilType: "Sablonneux",
		Location: "Kaolack",
		History:  []Exchange{{User: "q", Assistant: "r"}},
	})

	if !strings.Contains(prompt, "**Type de sol** : Sablonneux") {
		t.Error("prompt should carry the caller's soil type")
	}
	if !strings.Contains(prompt, "**Localisation** : Kaolack") {
		t.Error("prompt should carry the caller's location")
	}
	if !strings.Contains(prompt, "liée à Sablonneux et Kaolack") {
		t.Error("the local-application instruction should repeat the profile")
	}
	if !strings.Contains(prompt, introFollowUp) {
		t.Error("follow-up turns should suppress the introduction")
	}
	if !strings.Contains(prompt, "Utilisateur: q\nAssistant: r\n") {
		t.Error("prompt should embed the formatted history")
	}
}

func TestGeneratorStream(t *testing.T) {
	const answer = "Le mil se sème entre juin et juillet selon la zone."

	mock := testutil.NewMockLLM("")
	mock.AddResponse("identité et mandat", answer)

	g := genkit.Init(context.Background())
	mock.RegisterModel(g)
	gen := NewGenerator(g, testutil.MockModelName, 0.7, nil, testutil.NewLogger(t))

	var chunks []string
	full, err := gen.Stream(context.Background(), GenerateInput{
		Question: "Quand semer le mil ?",
		Context:  "contexte",
	}, func(_ context.Context, text string) error {
		chunks = append(chunks, text)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if full != answer {
		t.Errorf("Stream() returned %q, want the full answer", full)
	}
	if len(chunks) < 2 {
		t.Errorf("expected several streamed fragments, got %d", len(chunks))
	}
	if got := strings.Join(chunks, ""); got != answer {
		t.Errorf("concatenated fragments = %q, want %q", got, answer)
	}
}

func TestGeneratorPassesTemperature(t *testing.T) {
	mock := testutil.NewMockLLM("réponse")

	g := genkit.Init(context.Background())
	mock.RegisterModel(g)
	gen := NewGenerator(g, testutil.MockModelName, 0.25, nil, testutil.NewLogger(t))

	_, err := gen.Stream(context.Background(), GenerateInput{
		Question: "Quand semer le mil ?",
		Context:  "contexte",
	}, func(context.Context, string) error { return nil })
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(calls))
	}
	cfg, ok := calls[0].Config.(*genai.GenerateContentConfig)
	if !ok {
		t.Fatalf("model call config = %T, want *genai.GenerateContentConfig", calls[0].Config)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.25 {
		t.Errorf("temperature = %v, want 0.25", cfg.Temperature)
	}
}
