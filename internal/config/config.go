package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every recognized environment key from the deployment
// configuration provider. Values are plain strings/ints/bools — no typed
// enums for SHAREPOINT_GEO or DEFAULT_SEARCH_MODE, resolving Open Question 3
// in favor of string.
type Config struct {
	// Identity / Azure AD
	ADTenantID     string
	ADClientID     string
	ADClientSecret string

	// LLM + embeddings
	AzureOpenAIEndpoint            string
	AzureOpenAIAPIKey              string
	AzureOpenAIAPIVersion          string
	AzureOpenAIDeployment          string
	AzureOpenAIEmbeddingDeployment string

	// Vector store
	AzureSearchEndpoint  string
	AzureSearchAdminKey  string
	AzureSearchIndexName string

	// Indexer
	KnowledgeIndexerEnabled    bool
	KnowledgeIndexerIntervalMs int64

	// Chat defaults
	SharePointGeo     string
	DefaultSearchMode string

	Port    string
	GinMode string

	CORSOrigins []string

	// Redis: OBO downstream-token cache, asynq broker
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// MongoDB: indexer run history + admin audit log only, never document chunks
	MongoURI string
	DBName   string

	// Chunking
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int

	// Timeouts
	ToolCallTimeoutSeconds int
	ChatTimeoutSeconds     int

	// knowledge_search retrieval
	KnowledgeSearchTopK int

	// Upstream-validated identity headers (trusted middleware contract)
	UserIDHeader    string
	UserNameHeader  string
	UserEmailHeader string
}

func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		ADTenantID:     getEnv("AD_TENANT_ID", ""),
		ADClientID:     getEnv("AD_CLIENT_ID", ""),
		ADClientSecret: getEnv("AD_CLIENT_SECRET", ""),

		AzureOpenAIEndpoint:            getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:              getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:          getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		AzureOpenAIDeployment:          getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
		AzureOpenAIEmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", ""),

		AzureSearchEndpoint:  getEnv("AZURE_SEARCH_ENDPOINT", ""),
		AzureSearchAdminKey:  getEnv("AZURE_SEARCH_ADMIN_KEY", ""),
		AzureSearchIndexName: getEnv("AZURE_SEARCH_INDEX_NAME", "knowledge-chunks"),

		KnowledgeIndexerEnabled:    getEnvBool("KNOWLEDGE_INDEXER_ENABLED", true),
		KnowledgeIndexerIntervalMs: getEnvInt64("KNOWLEDGE_INDEXER_INTERVAL_MS", 3_600_000),

		SharePointGeo:     getEnv("SHAREPOINT_GEO", "US"),
		DefaultSearchMode: getEnv("DEFAULT_SEARCH_MODE", "kql"),

		Port:    getEnv("PORT", "3000"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/knowledge_agent"),
		DBName:   getEnv("DB_NAME", "knowledge_agent"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),

		ToolCallTimeoutSeconds: getEnvInt("TOOL_CALL_TIMEOUT_SECONDS", 30),
		ChatTimeoutSeconds:     getEnvInt("CHAT_TIMEOUT_SECONDS", 120),

		KnowledgeSearchTopK: getEnvInt("KNOWLEDGE_SEARCH_TOP_K", 10),

		UserIDHeader:    getEnv("USER_ID_HEADER", "X-User-Id"),
		UserNameHeader:  getEnv("USER_NAME_HEADER", "X-User-Name"),
		UserEmailHeader: getEnv("USER_EMAIL_HEADER", "X-User-Email"),
	}

	if cfg.ADTenantID == "" || cfg.ADClientID == "" || cfg.ADClientSecret == "" {
		return nil, fmt.Errorf("AD_TENANT_ID, AD_CLIENT_ID and AD_CLIENT_SECRET are required")
	}

	if cfg.AzureOpenAIEndpoint == "" || cfg.AzureOpenAIAPIKey == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required")
	}

	if cfg.AzureSearchEndpoint == "" || cfg.AzureSearchAdminKey == "" {
		return nil, fmt.Errorf("AZURE_SEARCH_ENDPOINT and AZURE_SEARCH_ADMIN_KEY are required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
