package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is built once in main and handed to every component that needs it.
type Settings struct {
	ListenAddr string
	IsProd     bool
	LogLevel   slog.Level

	AuthToken    string
	NoAuthBypass bool

	GoogleAPIKey       string
	GeminiModel        string
	GeminiStreaming    bool
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int32
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	EmbeddingURL       string
	EmbeddingAPIKey    string

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantUseTLS bool

	RedisAddr     string
	RedisPassword string

	CacheBackend   string
	CacheTTL       time.Duration
	ChunkMaxChars  int
	MatchThreshold float32
	BlobRoot       string
}

// Load seeds the process environment from the given .env files (missing files are
// skipped) and then reads Settings from it.
func Load(envFiles ...string) (Settings, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup reads Settings through lookup so tests don't have to touch the real environment.
func FromLookup(lookup func(string) (string, bool)) (Settings, error) {
	r := reader{lookup: lookup}

	s := Settings{
		ListenAddr:         r.str("LISTEN_ADDR", ServerListenAddr),
		IsProd:             strings.EqualFold(r.str("APP_ENV", "development"), "production"),
		AuthToken:          r.str("AUTH_TOKEN", ""),
		NoAuthBypass:       r.boolean("NO_AUTH_BYPASS", false),
		GoogleAPIKey:       r.str("GOOGLE_API_KEY", ""),
		GeminiModel:        r.str("GEMINI_MODEL", GeminiModelName),
		EmbeddingProvider:  strings.ToLower(r.str("EMBEDDING_PROVIDER", EmbeddingProviderGoogle)),
		EmbeddingDimension: int32(r.integer("EMBEDDING_DIM", int(EmbeddingOutputDimensionality))),
		OpenAIAPIKey:       r.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      r.str("OPENAI_BASE_URL", ""),
		EmbeddingURL:       r.str("EMBEDDING_URL", ""),
		EmbeddingAPIKey:    r.str("EMBEDDING_API_KEY", ""),
		GeminiStreaming:    r.boolean("GEMINI_STREAMING", ModelStreaming),
		QdrantHost:         r.str("QDRANT_HOST", QdrantHost),
		QdrantPort:         r.integer("QDRANT_PORT", QdrantGrpcPort),
		QdrantAPIKey:       r.str("QDRANT_API_KEY", ""),
		QdrantUseTLS:       r.boolean("QDRANT_USE_TLS", QdrantUseTLS),
		RedisAddr:          r.str("REDIS_ADDR", RedisAddr),
		RedisPassword:      r.str("REDIS_PASSWORD", ""),
		CacheBackend:       strings.ToLower(r.str("RAG_CACHE_BACKEND", CacheBackendMemory)),
		CacheTTL:           r.duration("RAG_CACHE_TTL", RetrievalCacheTTL),
		ChunkMaxChars:      r.integer("CHUNK_MAX_CHARS", ChunkMaxChars),
		MatchThreshold:     float32(r.float("MATCH_THRESHOLD", MatchThreshold)),
		BlobRoot:           r.str("BLOB_ROOT", BlobRoot),
	}

	defaultModel := GoogleEmbeddingModel
	if s.EmbeddingProvider == EmbeddingProviderOpenAI {
		defaultModel = OpenAIEmbeddingModel
	}
	s.EmbeddingModel = r.str("EMBEDDING_MODEL", defaultModel)

	s.LogLevel = slog.LevelDebug
	if s.IsProd {
		s.LogLevel = LOG_LEVEL_PROD
	}
	if lvl, ok := lookup("LOG_LEVEL"); ok && lvl != "" {
		if err := s.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			r.errs = append(r.errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if err := s.validate(); err != nil {
		r.errs = append(r.errs, err)
	}
	return s, errors.Join(r.errs...)
}

func (s Settings) validate() error {
	var errs []error
	switch s.EmbeddingProvider {
	case EmbeddingProviderGoogle, EmbeddingProviderOpenAI:
	case EmbeddingProviderHTTP:
		if s.EmbeddingURL == "" {
			errs = append(errs, errors.New("EMBEDDING_URL is required for the http embedding provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER: unknown provider %q", s.EmbeddingProvider))
	}
	switch s.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("RAG_CACHE_BACKEND: unknown backend %q", s.CacheBackend))
	}
	if s.ChunkMaxChars < 1 {
		errs = append(errs, fmt.Errorf("CHUNK_MAX_CHARS must be positive, got %d", s.ChunkMaxChars))
	}
	if s.EmbeddingDimension < 1 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", s.EmbeddingDimension))
	}
	if s.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("RAG_CACHE_TTL must be positive, got %s", s.CacheTTL))
	}
	if !s.NoAuthBypass && s.AuthToken == "" {
		errs = append(errs, errors.New("AUTH_TOKEN is required unless NO_AUTH_BYPASS is set"))
	}
	return errors.Join(errs...)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

// durations accept Go syntax ("5m") or plain seconds ("300")
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
