package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"medrag/internal/domain"
)

// Config is the immutable configuration surface of the service. Validate
// runs once at startup; a query is never processed with invalid values.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobUseSSL    bool
	BlobBucket    string
	BlobPrefix    string

	EmbedderURL    string
	EmbedderToken  string
	EmbeddingModel string

	LLMBaseURL string
	LLMModel   string

	ScoreThreshold         float64
	MaxChunks              int
	VectorSearchCandidates int
	DocSelectionChunks     int
	NormalizationMethod    string
	MinDocumentChunks      int
	MaxDocumentsReturned   int
	EmbeddingRetries       int
	EmbeddingDelaySeconds  int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "medrag-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "medrag_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "medrag_password"),
		DBName:     getEnv("DB_NAME", "medrag_db"),

		RedisAddr:     getEnv("REDIS_ADDR", "medrag-cache:6379"),
		RedisPassword: getSecret("REDIS_PASSWORD", "REDIS_PASSWORD_FILE", ""),

		BlobEndpoint:  getEnv("BLOB_ENDPOINT", "medrag-blob:9000"),
		BlobAccessKey: getEnv("BLOB_ACCESS_KEY", "medrag"),
		BlobSecretKey: getSecret("BLOB_SECRET_KEY", "BLOB_SECRET_KEY_FILE", "medrag_secret"),
		BlobUseSSL:    getEnvBool("BLOB_USE_SSL", false),
		BlobBucket:    getEnv("BLOB_BUCKET", "pdf-storage-for-rag"),
		BlobPrefix:    getEnv("BLOB_PREFIX", "extracted_data"),

		EmbedderURL:    getEnv("EMBEDDER_URL", "https://api-inference.huggingface.co"),
		EmbedderToken:  getSecret("EMBEDDER_TOKEN", "EMBEDDER_TOKEN_FILE", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "NeuML/pubmedbert-base-embeddings"),

		LLMBaseURL: getEnv("LLM_BASE_URL", "http://medrag-llm:1234/v1"),
		LLMModel:   getEnv("LLM_MODEL", "ii-medical-8b-1706@q4_k_m"),

		ScoreThreshold:         getEnvFloat("SCORE_THRESHOLD", 0.75),
		MaxChunks:              getEnvInt("MAX_CHUNKS", 5),
		VectorSearchCandidates: getEnvInt("VECTOR_SEARCH_CANDIDATES", 100),
		DocSelectionChunks:     getEnvInt("DOC_SELECTION_CHUNKS", 30),
		NormalizationMethod:    getEnv("NORMALIZATION_METHOD", "sqrt"),
		MinDocumentChunks:      getEnvInt("MIN_DOCUMENT_CHUNKS", 2),
		MaxDocumentsReturned:   getEnvInt("MAX_DOCUMENTS_RETURNED", 5),
		EmbeddingRetries:       getEnvInt("EMBEDDING_RETRIES", 3),
		EmbeddingDelaySeconds:  getEnvInt("EMBEDDING_DELAY", 5),
	}
}

// Validate rejects out-of-range values. Invalid configuration is fatal,
// never clamped.
func (c *Config) Validate() error {
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be between 0 and 1, got %v", c.ScoreThreshold)
	}
	if c.MaxChunks < 1 {
		return fmt.Errorf("max_chunks must be at least 1, got %d", c.MaxChunks)
	}
	if c.VectorSearchCandidates < 1 {
		return fmt.Errorf("vector_search_candidates must be at least 1, got %d", c.VectorSearchCandidates)
	}
	if c.DocSelectionChunks < 1 {
		return fmt.Errorf("doc_selection_chunks must be at least 1, got %d", c.DocSelectionChunks)
	}
	if _, err := domain.ParseNormalizationMethod(c.NormalizationMethod); err != nil {
		return err
	}
	if c.MinDocumentChunks < 1 {
		return fmt.Errorf("min_document_chunks must be at least 1, got %d", c.MinDocumentChunks)
	}
	if c.MaxDocumentsReturned < 1 {
		return fmt.Errorf("max_documents_returned must be at least 1, got %d", c.MaxDocumentsReturned)
	}
	if c.EmbeddingRetries < 1 {
		return fmt.Errorf("embedding_retries must be at least 1, got %d", c.EmbeddingRetries)
	}
	if c.EmbeddingDelaySeconds < 0 {
		return fmt.Errorf("embedding_delay must not be negative, got %d", c.EmbeddingDelaySeconds)
	}
	return nil
}

// Normalization returns the already validated method.
func (c *Config) Normalization() domain.NormalizationMethod {
	return domain.NormalizationMethod(c.NormalizationMethod)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
