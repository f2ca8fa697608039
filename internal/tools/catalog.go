package tools

import (
	"github.com/bigdata-coss/agent-mcp/internal/gemini"
	"github.com/bigdata-coss/agent-mcp/internal/httptool"
	"github.com/bigdata-coss/agent-mcp/internal/lmstudio"
	"github.com/bigdata-coss/agent-mcp/internal/ollama"
	"github.com/bigdata-coss/agent-mcp/internal/openai"
	"github.com/bigdata-coss/agent-mcp/internal/sparql"
)

// Backends bundles the clients the catalog is built from.
type Backends struct {
	SPARQL        *sparql.Client
	SPARQLDefault sparql.Config
	Ollama        *ollama.Client
	LMStudio      *lmstudio.Client
	HTTP          *httptool.Client
	OpenAI        *openai.Client
	Gemini        *gemini.Client
}

// Catalog builds the full registry in its advertised order.
func Catalog(b Backends) (*Registry, error) {
	return NewBuilder().
		Add(SPARQLTools(b.SPARQL, b.SPARQLDefault)...).
		Add(OllamaTools(b.Ollama)...).
		Add(LMStudioTools(b.LMStudio)...).
		Add(HTTPTools(b.HTTP)...).
		Add(OpenAITools(b.OpenAI)...).
		Add(GeminiTools(b.Gemini)...).
		Build()
}
