package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// DefaultExtractInstruction is the extraction prompt used when the client
// does not supply one.
const DefaultExtractInstruction = "Make a list of terms and definitions that are defined in the context, " +
	"with one pair on each line. " +
	"If a term is missing its definition, use your best judgment. " +
	"Write each line as follows:\nTerm: <term> Definition: <definition>"

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LLMSettings configuration for the completion and embedding models
type LLMSettings struct {
	Model             string  `mapstructure:"model"`
	Temperature       float64 `mapstructure:"temperature"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

// IndexSettings configuration for the persistent term index
type IndexSettings struct {
	BaseDir    string `mapstructure:"base_dir"`
	Collection string `mapstructure:"collection"`
}

// ExtractSettings configuration for term extraction
type ExtractSettings struct {
	Instruction  string `mapstructure:"instruction"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	MaxFileSize  int64  `mapstructure:"max_file_size"`
}

// QuerySettings configuration for answering questions against the index
type QuerySettings struct {
	TopK        int `mapstructure:"top_k"`
	ContextSize int `mapstructure:"context_size"`
}

// Settings application settings
type Settings struct {
	Transport string          `mapstructure:"transport"`
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	Auth      AuthSettings    `mapstructure:"auth"`
	LLM       LLMSettings     `mapstructure:"llm"`
	Index     IndexSettings   `mapstructure:"index"`
	Extract   ExtractSettings `mapstructure:"extract"`
	Query     QuerySettings   `mapstructure:"query"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// LLM defaults
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.requests_per_minute", 50)

	// Index defaults
	v.SetDefault("index.base_dir", defaultBaseDir())
	v.SetDefault("index.collection", "terms")

	// Extraction defaults
	v.SetDefault("extract.instruction", DefaultExtractInstruction)
	v.SetDefault("extract.chunk_size", 1024)
	v.SetDefault("extract.chunk_overlap", 20)
	v.SetDefault("extract.max_file_size", int64(4*1024*1024)) // 4MB

	// Query defaults
	v.SetDefault("query.top_k", 5)
	v.SetDefault("query.context_size", 4096)

	// Environment variables
	v.SetEnvPrefix("TERMBASE_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "TERMBASE_MCP_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "TERMBASE_MCP_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "TERMBASE_MCP_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "TERMBASE_MCP_AUTH_API_KEYS")

	// LLM env var bindings. The API key also falls back to the conventional
	// OPENAI_API_KEY so the server picks up an already-exported key.
	_ = v.BindEnv("llm.model", "TERMBASE_MCP_LLM_MODEL")
	_ = v.BindEnv("llm.temperature", "TERMBASE_MCP_LLM_TEMPERATURE")
	_ = v.BindEnv("llm.api_key", "TERMBASE_MCP_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.base_url", "TERMBASE_MCP_LLM_BASE_URL")
	_ = v.BindEnv("llm.max_tokens", "TERMBASE_MCP_LLM_MAX_TOKENS")
	_ = v.BindEnv("llm.embedding_model", "TERMBASE_MCP_LLM_EMBEDDING_MODEL")
	_ = v.BindEnv("llm.requests_per_minute", "TERMBASE_MCP_LLM_REQUESTS_PER_MINUTE")

	// Index env var bindings
	_ = v.BindEnv("index.base_dir", "TERMBASE_MCP_INDEX_BASE_DIR")
	_ = v.BindEnv("index.collection", "TERMBASE_MCP_INDEX_COLLECTION")

	// Extraction env var bindings
	_ = v.BindEnv("extract.instruction", "TERMBASE_MCP_EXTRACT_INSTRUCTION")
	_ = v.BindEnv("extract.chunk_size", "TERMBASE_MCP_EXTRACT_CHUNK_SIZE")
	_ = v.BindEnv("extract.chunk_overlap", "TERMBASE_MCP_EXTRACT_CHUNK_OVERLAP")
	_ = v.BindEnv("extract.max_file_size", "TERMBASE_MCP_EXTRACT_MAX_FILE_SIZE")

	// Query env var bindings
	_ = v.BindEnv("query.top_k", "TERMBASE_MCP_QUERY_TOP_K")
	_ = v.BindEnv("query.context_size", "TERMBASE_MCP_QUERY_CONTEXT_SIZE")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.basic.username", flags.Lookup("auth-basic-username"))
		_ = v.BindPFlag("auth.basic.password", flags.Lookup("auth-basic-password"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))

		// LLM CLI flags
		_ = v.BindPFlag("llm.model", flags.Lookup("llm-model"))
		_ = v.BindPFlag("llm.temperature", flags.Lookup("llm-temperature"))
		_ = v.BindPFlag("llm.api_key", flags.Lookup("llm-api-key"))
		_ = v.BindPFlag("llm.base_url", flags.Lookup("llm-base-url"))
		_ = v.BindPFlag("llm.max_tokens", flags.Lookup("llm-max-tokens"))
		_ = v.BindPFlag("llm.embedding_model", flags.Lookup("llm-embedding-model"))
		_ = v.BindPFlag("llm.requests_per_minute", flags.Lookup("llm-requests-per-minute"))

		// Index CLI flags
		_ = v.BindPFlag("index.base_dir", flags.Lookup("index-base-dir"))
		_ = v.BindPFlag("index.collection", flags.Lookup("index-collection"))

		// Extraction CLI flags
		_ = v.BindPFlag("extract.instruction", flags.Lookup("extract-instruction"))
		_ = v.BindPFlag("extract.chunk_size", flags.Lookup("extract-chunk-size"))
		_ = v.BindPFlag("extract.chunk_overlap", flags.Lookup("extract-chunk-overlap"))
		_ = v.BindPFlag("extract.max_file_size", flags.Lookup("extract-max-file-size"))

		// Query CLI flags
		_ = v.BindPFlag("query.top_k", flags.Lookup("query-top-k"))
		_ = v.BindPFlag("query.context_size", flags.Lookup("query-context-size"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("TERMBASE_MCP_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}

	// Expand home directory in base_dir
	settings.Index.BaseDir = expandHomeDir(settings.Index.BaseDir)

	return &settings, nil
}

// defaultBaseDir returns the default base directory for index persistence
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".termbase-mcp"
	}
	return filepath.Join(home, ".termbase-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete
// auth config, or out-of-range model and index parameters.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := validateLLMSettings(&s.LLM); err != nil {
		return err
	}

	if err := validateIndexSettings(&s.Index); err != nil {
		return err
	}

	if err := validateExtractSettings(&s.Extract); err != nil {
		return err
	}

	if err := validateQuerySettings(&s.Query); err != nil {
		return err
	}

	return nil
}

// validateLLMSettings validates the model configuration.
// A missing API key is not a validation error: the server starts without the
// term base service and reports it unavailable instead.
func validateLLMSettings(l *LLMSettings) error {
	if l.Model == "" {
		return errors.New("llm-model cannot be empty")
	}

	if l.Temperature < 0 || l.Temperature > 1 {
		return errors.New("llm-temperature must be between 0.0 and 1.0")
	}

	if l.MaxTokens <= 0 {
		return errors.New("llm-max-tokens must be positive")
	}

	if l.EmbeddingModel == "" {
		return errors.New("llm-embedding-model cannot be empty")
	}

	if l.RequestsPerMinute <= 0 {
		return errors.New("llm-requests-per-minute must be positive")
	}

	return nil
}

// validateIndexSettings validates the index persistence configuration
func validateIndexSettings(i *IndexSettings) error {
	if i.BaseDir == "" {
		return errors.New("index-base-dir cannot be empty")
	}

	if i.Collection == "" {
		return errors.New("index-collection cannot be empty")
	}

	return nil
}

// validateExtractSettings validates the extraction configuration
func validateExtractSettings(e *ExtractSettings) error {
	if e.Instruction == "" {
		return errors.New("extract-instruction cannot be empty")
	}

	if e.ChunkSize <= 0 {
		return errors.New("extract-chunk-size must be positive")
	}

	if e.ChunkOverlap < 0 || e.ChunkOverlap >= e.ChunkSize {
		return errors.New("extract-chunk-overlap must be non-negative and smaller than extract-chunk-size")
	}

	if e.MaxFileSize <= 0 {
		return errors.New("extract-max-file-size must be positive")
	}

	return nil
}

// validateQuerySettings validates the question-answering configuration
func validateQuerySettings(q *QuerySettings) error {
	if q.TopK <= 0 {
		return errors.New("query-top-k must be positive")
	}

	if q.ContextSize <= 0 {
		return errors.New("query-context-size must be positive")
	}

	return nil
}
