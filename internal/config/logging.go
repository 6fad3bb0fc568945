package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: llm.model", "value", s.LLM.Model)
	logger.InfoContext(ctx, "Config: llm.temperature", "value", s.LLM.Temperature)
	logger.InfoContext(ctx, "Config: llm.api_key", "configured", s.LLM.APIKey != "")
	if s.LLM.BaseURL != "" {
		logger.InfoContext(ctx, "Config: llm.base_url", "value", s.LLM.BaseURL)
	}
	logger.InfoContext(ctx, "Config: llm.max_tokens", "value", s.LLM.MaxTokens)
	logger.InfoContext(ctx, "Config: llm.embedding_model", "value", s.LLM.EmbeddingModel)

	logger.InfoContext(ctx, "Config: index.base_dir", "value", s.Index.BaseDir)
	logger.InfoContext(ctx, "Config: index.collection", "value", s.Index.Collection)

	logger.InfoContext(ctx, "Config: extract.chunk_size", "value", s.Extract.ChunkSize)
	logger.InfoContext(ctx, "Config: extract.chunk_overlap", "value", s.Extract.ChunkOverlap)
	logger.InfoContext(ctx, "Config: extract.max_file_size", "value", s.Extract.MaxFileSize)

	logger.InfoContext(ctx, "Config: query.top_k", "value", s.Query.TopK)
	logger.InfoContext(ctx, "Config: query.context_size", "value", s.Query.ContextSize)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// LLMSettingsLogValue returns a slog.Value for LLMSettings with masked data
func LLMSettingsLogValue(s LLMSettings) slog.Value {
	return slog.GroupValue(
		slog.String("model", s.Model),
		slog.Float64("temperature", s.Temperature),
		slog.String("api_key", "****"),
		slog.String("base_url", s.BaseURL),
		slog.Int("max_tokens", s.MaxTokens),
		slog.String("embedding_model", s.EmbeddingModel),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("llm", LLMSettingsLogValue(s.LLM)),
	)
}
