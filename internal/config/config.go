package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// SourcesConfig locates the crawl sources file and the ingestion state file.
type SourcesConfig struct {
	File      string   `yaml:"file"`
	StateFile string   `yaml:"state_file"`
	SeedURLs  []string `yaml:"seed_urls,omitempty"`
}

// IngestConfig bounds a single crawl run.
type IngestConfig struct {
	MaxPages         int    `yaml:"max_pages"`
	CrawlDelayMS     int    `yaml:"crawl_delay_ms"`
	MinChunkChars    int    `yaml:"min_chunk_chars"`
	MinPageChars     int    `yaml:"min_page_chars"`
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
	FollowLinks      bool   `yaml:"follow_links"`
	UserAgent        string `yaml:"user_agent"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes"`
}

// SchedulerConfig drives recurring ingestion.
type SchedulerConfig struct {
	Enabled          bool `yaml:"enabled"`
	OnStartup        bool `yaml:"on_startup"`
	StartupDelaySecs int  `yaml:"startup_delay_secs"`
	IntervalMinutes  int  `yaml:"interval_minutes"`
	WatchSources     bool `yaml:"watch_sources"`
}

// GeminiConfig holds Generative Language API settings shared by the
// embedder and the generator.
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	APIKey      string `yaml:"-"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIConfig holds configuration for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string        `yaml:"type"`
	Model     string        `yaml:"model"`
	OutputDim int           `yaml:"output_dim"`
	Gemini    *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI    *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects the completion provider and its model chain.
type GeneratorConfig struct {
	Type           string        `yaml:"type"`
	Model          string        `yaml:"model"`
	FallbackModels []string      `yaml:"fallback_models"`
	Gemini         *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI         *OpenAIConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL                string `yaml:"url"`
	APIKey             string `yaml:"api_key"`
	Collection         string `yaml:"collection"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
	RecreateOnMismatch bool   `yaml:"recreate_on_mismatch"`
}

// RetrieverConfig configures query-time retrieval.
type RetrieverConfig struct {
	Mode           string   `yaml:"mode"`
	TopK           int      `yaml:"top_k"`
	LegacyLimit    int      `yaml:"legacy_limit"`
	AdhocMinChars  int      `yaml:"adhoc_min_chars"`
	TrustedDomains []string `yaml:"trusted_domains"`
}

// CacheConfig configures the query result cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// HistoryConfig locates the search history database.
type HistoryConfig struct {
	Dir string `yaml:"dir"`
}

// SummarizerConfig configures source excerpts.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Sources     SourcesConfig     `yaml:"sources"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	Cache       CacheConfig       `yaml:"cache"`
	History     HistoryConfig     `yaml:"history"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// DefaultTrustedDomains are the sites answers may be grounded on.
var DefaultTrustedDomains = []string{
	"abukhadeejah.com",
	"bakkah.net",
	"troid.org",
	"abuiyaad.com",
	"abuhakeem.com",
	"mpubs.org",
	"mtws.posthaven.com",
}

// DefaultFallbackModels are tried in order after the primary model.
var DefaultFallbackModels = []string{"gemini-2.0-flash", "gemini-1.5-flash-8b"}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Keys missing from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/eidrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/eidrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "eidrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Port: "5000"},
		Sources: SourcesConfig{File: "rag_sources.json", StateFile: filepath.Join(".data", "ingest_state.json")},
		Ingest: IngestConfig{
			MaxPages:         50,
			CrawlDelayMS:     500,
			MinChunkChars:    200,
			MinPageChars:     500,
			ChunkSize:        1200,
			ChunkOverlap:     200,
			FollowLinks:      true,
			UserAgent:        "Eid-RAG-Bot/0.1",
			FetchTimeoutSecs: 20,
			MaxBodyBytes:     2_000_000,
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			OnStartup:        true,
			StartupDelaySecs: 2,
			IntervalMinutes:  24 * 60,
			WatchSources:     true,
		},
		Embedder: EmbedderConfig{
			Type:   "gemini",
			Model:  "gemini-embedding-001",
			Gemini: &GeminiConfig{},
		},
		Generator: GeneratorConfig{
			Type:           "gemini",
			Model:          "gemini-1.5-flash",
			FallbackModels: append([]string(nil), DefaultFallbackModels...),
			Gemini:         &GeminiConfig{},
		},
		VectorStore: VectorStoreConfig{
			Type:   "qdrant",
			Qdrant: &QdrantConfig{Collection: "islamic_chunks", TimeoutSecs: 15},
		},
		Retriever: RetrieverConfig{
			Mode:           "vector",
			TopK:           6,
			LegacyLimit:    10,
			AdhocMinChars:  200,
			TrustedDomains: append([]string(nil), DefaultTrustedDomains...),
		},
		Cache:      CacheConfig{TTLMinutes: 30},
		History:    HistoryConfig{Dir: ".data"},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 2},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Ingest.MaxPages <= 0 {
		cfg.Ingest.MaxPages = 50
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 1200
	}
	if cfg.Retriever.TopK <= 0 {
		cfg.Retriever.TopK = 6
	}
	if cfg.Retriever.LegacyLimit <= 0 {
		cfg.Retriever.LegacyLimit = 10
	}
	if len(cfg.Retriever.TrustedDomains) == 0 {
		cfg.Retriever.TrustedDomains = append([]string(nil), DefaultTrustedDomains...)
	}
	if cfg.Cache.TTLMinutes <= 0 {
		cfg.Cache.TTLMinutes = 30
	}
	if cfg.Embedder.Type == "gemini" && cfg.Embedder.Gemini == nil {
		cfg.Embedder.Gemini = &GeminiConfig{}
	}
	if cfg.Generator.Type == "gemini" && cfg.Generator.Gemini == nil {
		cfg.Generator.Gemini = &GeminiConfig{}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIConfig{}
	}
	if cfg.Generator.Type == "openai" && cfg.Generator.OpenAI == nil {
		cfg.Generator.OpenAI = &OpenAIConfig{}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{}
	}
	if q := cfg.VectorStore.Qdrant; q != nil && q.Collection == "" {
		q.Collection = "islamic_chunks"
	}
	if cfg.Generator.FallbackModels == nil {
		cfg.Generator.FallbackModels = append([]string(nil), DefaultFallbackModels...)
	}
}

// ApplyEnv overlays environment settings on cfg. getenv is usually os.Getenv.
func ApplyEnv(cfg *AppConfig, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = strings.EqualFold(v, "true")
		}
	}

	str("PORT", &cfg.Server.Port)
	str("RAG_SOURCES_FILE", &cfg.Sources.File)
	str("RAG_STATE_FILE", &cfg.Sources.StateFile)
	if seeds := SplitCSV(getenv("RAG_SEED_URLS")); len(seeds) > 0 {
		cfg.Sources.SeedURLs = seeds
	}

	num("RAG_MAX_PAGES", &cfg.Ingest.MaxPages)
	num("RAG_CRAWL_DELAY_MS", &cfg.Ingest.CrawlDelayMS)
	num("RAG_MIN_CHUNK_CHARS", &cfg.Ingest.MinChunkChars)
	flag("RAG_FOLLOW_LINKS", &cfg.Ingest.FollowLinks)

	flag("RAG_AUTO_INDEX", &cfg.Scheduler.Enabled)
	flag("RAG_INGEST_ON_STARTUP", &cfg.Scheduler.OnStartup)
	num("RAG_INGEST_INTERVAL_MINUTES", &cfg.Scheduler.IntervalMinutes)

	str("RAG_RETRIEVER", &cfg.Retriever.Mode)
	str("RAG_HISTORY_DB", &cfg.History.Dir)

	for _, g := range []*GeminiConfig{cfg.Embedder.Gemini, cfg.Generator.Gemini} {
		if g == nil {
			continue
		}
		str("GEMINI_API_KEY", &g.APIKey)
		if g.APIKeyEnv != "" {
			str(g.APIKeyEnv, &g.APIKey)
		}
	}
	str("GEMINI_EMBED_MODEL", &cfg.Embedder.Model)
	num("GEMINI_EMBED_OUTPUT_DIM", &cfg.Embedder.OutputDim)
	str("GEMINI_CHAT_MODEL", &cfg.Generator.Model)
	if fb := SplitCSV(getenv("GEMINI_FALLBACK_MODELS")); len(fb) > 0 {
		cfg.Generator.FallbackModels = fb
	}

	if v := strings.TrimSpace(getenv("QDRANT_URL")); v != "" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{Collection: "islamic_chunks"}
		}
		cfg.VectorStore.Qdrant.URL = v
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		str("QDRANT_API_KEY", &q.APIKey)
		str("RAG_VECTOR_COLLECTION", &q.Collection)
		flag("QDRANT_RECREATE_COLLECTION_ON_MISMATCH", &q.RecreateOnMismatch)
	}
}

// SplitCSV splits a comma-separated list, dropping blanks.
func SplitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
