package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askgate/internal/ai"
	"github.com/xxxsen/askgate/internal/cache"
)

// WrapTTLCacheToEmbedder memoizes embeddings of repeated text in the given
// band of the process-local TTL cache.
func WrapTTLCacheToEmbedder(e ai.IEmbedder, ttlCache *cache.TTLCache[[]float32], band string) ai.IEmbedder {
	if e == nil || ttlCache == nil {
		return e
	}
	return &ttlEmbedder{next: e, cache: ttlCache, band: band}
}

type ttlEmbedder struct {
	next  ai.IEmbedder
	cache *cache.TTLCache[[]float32]
	band  string
}

func (l *ttlEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	cacheKey, _, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (ttl)", zap.String("task_type", taskType))
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Put(cacheKey, cloneEmbedding(res), l.band); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (l *ttlEmbedder) ModelName() string {
	return l.next.ModelName()
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}

func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}
