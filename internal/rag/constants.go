// Package rag constants.go defines the fixed French strings of the
// assistant: pipeline status messages, canned answers, and shared defaults.
package rag

// Status messages emitted as a query advances through the pipeline.
// The CLI renders them as transient progress lines.
const (
	StatusCheckingIndex   = "Vérification de la base de connaissances..."
	StatusContextualizing = "Compréhension du contexte..."
	StatusRetrieving      = "Recherche d'informations pertinentes..."
	StatusGenerating      = "Rédaction de la réponse..."
)

// Canned user-facing answers.
const (
	// IndexUnavailableMessage is streamed as the only answer chunk when
	// the vector index cannot be opened.
	IndexUnavailableMessage = "Désolé, la base de connaissances n'est pas disponible actuellement."

	// OutOfScopeMessage is the exact refusal the persona prompt instructs
	// the model to use for questions outside Senegalese agriculture.
	OutOfScopeMessage = "Je suis désolé, je suis spécialisé uniquement dans l'agriculture sénégalaise. Je peux vous aider avec des questions sur les cultures, le sol, la météo ou les pratiques agricoles au Sénégal."
)

// AssistantName is the persona the model answers as.
const AssistantName = "Tèwou Agro-Assistant"

// Defaults applied when the caller leaves the farm profile empty.
const (
	DefaultSoilType = "Non spécifié"
	DefaultLocation = "Sénégal"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3
