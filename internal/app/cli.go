package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet.
// Defaults are zero values on purpose: the real defaults live in the
// settings loader, and an unchanged flag must not shadow them.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	flags.StringP("llm-model", "m", "", "Completion model name")
	flags.Float64("llm-temperature", 0, "Sampling temperature between 0.0 and 1.0")
	flags.String("llm-api-key", "", "API key for the model provider")
	flags.String("llm-base-url", "", "Base URL for an OpenAI-compatible API")
	flags.Int("llm-max-tokens", 0, "Maximum tokens per completion")
	flags.String("llm-embedding-model", "", "Embedding model name")
	flags.Int("llm-requests-per-minute", 0, "Rate limit for model API calls")

	flags.StringP("index-base-dir", "d", "", "Directory for term base persistence")
	flags.String("index-collection", "", "Vector index collection name")

	flags.String("extract-instruction", "", "Default term extraction instruction")
	flags.Int("extract-chunk-size", 0, "Character count per chunk when splitting large inputs")
	flags.Int("extract-chunk-overlap", 0, "Character overlap between consecutive chunks")
	flags.Int64("extract-max-file-size", 0, "Maximum readable file size in bytes")

	flags.Int("query-top-k", 0, "Number of documents retrieved per question")
	flags.Int("query-context-size", 0, "Character budget for stuffing context into one prompt")
}
