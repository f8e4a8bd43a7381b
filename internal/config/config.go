package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	JWTSecret  string           `json:"jwt_secret"`
	LogConfig  logger.LogConfig `json:"log_config"`
	Database   DatabaseConfig   `json:"database"`
	FileStore  FileStoreConfig  `json:"file_store"`
	AI         AIConfig         `json:"ai"`
	Ingest     IngestConfig     `json:"ingest"`
	QA         QAConfig         `json:"qa"`
	Cache      CacheConfig      `json:"cache"`
	Pagination PaginationConfig `json:"pagination"`
	Jobs       JobsConfig       `json:"jobs"`
	CORSAllow  []string         `json:"cors_allow"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Providers        []AIProviderConfig `json:"providers"`
	Timeout          int                `json:"timeout"`
	MaxQuestionChars int                `json:"max_question_chars"`
}

// APIKeys is a comma-delimited credential list; every outbound call draws the
// next key in round-robin order.
type AIProviderConfig struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	EmbedModel string `json:"embed_model"`
	APIKeys    string `json:"api_keys"`
	BaseURL    string `json:"base_url"`
}

type IngestConfig struct {
	MaxFileSizeBytes  int64       `json:"max_file_size_bytes"`
	AllowedExtensions []string    `json:"allowed_extensions"`
	Chunk             ChunkConfig `json:"chunk"`
}

type ChunkConfig struct {
	MaxSize    int      `json:"max_size"`
	Overlap    int      `json:"overlap"`
	MinSize    int      `json:"min_size"`
	Method     string   `json:"method"`
	Separators []string `json:"separators"`
}

type QAConfig struct {
	HighConfidenceThreshold float64 `json:"high_confidence_threshold"`
	RelevanceThreshold      float64 `json:"relevance_threshold"`
	TopK                    int     `json:"top_k"`
	RecentPoolSize          int     `json:"recent_pool_size"`
	AskRateLimitSeconds     int     `json:"ask_rate_limit_seconds"` // 0 disables
}

type CacheConfig struct {
	LRUSize  int            `json:"lru_size"`
	TTLBands map[string]int `json:"ttl_bands"` // band name -> seconds
}

type PaginationConfig struct {
	DefaultLimit  int `json:"default_limit"`
	MaxLimit      int `json:"max_limit"`
	DefaultOffset int `json:"default_offset"`
}

type JobsConfig struct {
	EmbeddingCacheCleanupSpec string `json:"embedding_cache_cleanup_spec"`
	EmbeddingCacheMaxAgeDays  int    `json:"embedding_cache_max_age_days"`
	DocumentReaperSpec        string `json:"document_reaper_spec"`
	ProcessingDeadlineMinutes int    `json:"processing_deadline_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if len(cfg.AI.Providers) == 0 {
		return nil, fmt.Errorf("ai.providers is required")
	}
	for i, p := range cfg.AI.Providers {
		if strings.TrimSpace(p.Provider) == "" {
			return nil, fmt.Errorf("ai.providers[%d].provider is required", i)
		}
		if strings.TrimSpace(p.APIKeys) == "" {
			return nil, fmt.Errorf("ai.providers[%d].api_keys is required", i)
		}
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxQuestionChars == 0 {
		cfg.AI.MaxQuestionChars = 4096
	}
	if cfg.Ingest.MaxFileSizeBytes == 0 {
		cfg.Ingest.MaxFileSizeBytes = 10 << 20
	}
	if len(cfg.Ingest.AllowedExtensions) == 0 {
		cfg.Ingest.AllowedExtensions = []string{".txt", ".md"}
	}
	if cfg.Ingest.Chunk.MaxSize == 0 {
		cfg.Ingest.Chunk.MaxSize = 1000
	}
	if cfg.Ingest.Chunk.Overlap == 0 {
		cfg.Ingest.Chunk.Overlap = 100
	}
	if cfg.Ingest.Chunk.MinSize == 0 {
		cfg.Ingest.Chunk.MinSize = 100
	}
	if cfg.Ingest.Chunk.Method == "" {
		cfg.Ingest.Chunk.Method = "separator"
	}
	if len(cfg.Ingest.Chunk.Separators) == 0 {
		cfg.Ingest.Chunk.Separators = []string{"\n\n", "\n", ". ", "! ", "? "}
	}
	if cfg.QA.HighConfidenceThreshold == 0 {
		cfg.QA.HighConfidenceThreshold = 0.92
	}
	if cfg.QA.RelevanceThreshold == 0 {
		cfg.QA.RelevanceThreshold = 0.6
	}
	if cfg.QA.TopK == 0 {
		cfg.QA.TopK = 4
	}
	if cfg.QA.RecentPoolSize == 0 {
		cfg.QA.RecentPoolSize = 200
	}
	if cfg.Cache.LRUSize == 0 {
		cfg.Cache.LRUSize = 10000
	}
	if len(cfg.Cache.TTLBands) == 0 {
		cfg.Cache.TTLBands = map[string]int{
			"short":  60,
			"medium": 3600,
			"day":    86400,
		}
	}
	if cfg.Pagination.DefaultLimit == 0 {
		cfg.Pagination.DefaultLimit = 20
	}
	if cfg.Pagination.MaxLimit == 0 {
		cfg.Pagination.MaxLimit = 100
	}
	if cfg.Jobs.EmbeddingCacheCleanupSpec == "" {
		cfg.Jobs.EmbeddingCacheCleanupSpec = "0 3 * * *"
	}
	if cfg.Jobs.EmbeddingCacheMaxAgeDays == 0 {
		cfg.Jobs.EmbeddingCacheMaxAgeDays = 30
	}
	if cfg.Jobs.DocumentReaperSpec == "" {
		cfg.Jobs.DocumentReaperSpec = "*/10 * * * *"
	}
	if cfg.Jobs.ProcessingDeadlineMinutes == 0 {
		cfg.Jobs.ProcessingDeadlineMinutes = 30
	}
	return &cfg, nil
}
