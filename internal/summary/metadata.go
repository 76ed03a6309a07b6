package summary

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
)

// MetadataProvider resolves the {projectName, projectActivity, category,
// scope, location, methodology} join (spec §4.7 step 2) for every active
// project of a client, keyed by projectId.
type MetadataProvider interface {
	ProjectMetadata(clientID string) (map[string]project.Metadata, error)
}

// repoMetadataProvider reads straight from the project repository.
type repoMetadataProvider struct {
	projects repository.ProjectRepository
}

// NewMetadataProvider returns the uncached, repository-backed provider.
func NewMetadataProvider(projects repository.ProjectRepository) MetadataProvider {
	return &repoMetadataProvider{projects: projects}
}

func (p *repoMetadataProvider) ProjectMetadata(clientID string) (map[string]project.Metadata, error) {
	projects, err := p.projects.List(clientID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]project.Metadata, len(projects))
	for _, pr := range projects {
		out[pr.ProjectID] = pr.ToMetadata()
	}
	return out, nil
}

// CachingMetadataProvider wraps a MetadataProvider with a short-lived cache
// of the per-client metadata join so a five-cadence Refresh run performs
// the project list/join exactly once. Backed by Redis when a client is
// configured; otherwise held in an in-process map with the same TTL
// semantics, so the Summary Engine behaves identically with or without a
// cache deployed.
type CachingMetadataProvider struct {
	inner MetadataProvider
	ttl   time.Duration

	redis *redis.Client

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	data    map[string]project.Metadata
	expires time.Time
}

// NewCachingMetadataProvider wraps inner with a cache of the given ttl.
// redisClient may be nil, in which case the in-process fallback is used
// exclusively.
func NewCachingMetadataProvider(inner MetadataProvider, redisClient *redis.Client, ttl time.Duration) *CachingMetadataProvider {
	return &CachingMetadataProvider{
		inner: inner,
		ttl:   ttl,
		redis: redisClient,
		local: make(map[string]localEntry),
	}
}

func (c *CachingMetadataProvider) cacheKey(clientID string) string {
	return "net-reduction:project-metadata:" + clientID
}

func (c *CachingMetadataProvider) ProjectMetadata(clientID string) (map[string]project.Metadata, error) {
	if data, ok := c.getCached(clientID); ok {
		return data, nil
	}

	data, err := c.inner.ProjectMetadata(clientID)
	if err != nil {
		return nil, err
	}
	c.setCached(clientID, data)
	return data, nil
}

func (c *CachingMetadataProvider) getCached(clientID string) (map[string]project.Metadata, bool) {
	if c.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		raw, err := c.redis.Get(ctx, c.cacheKey(clientID)).Bytes()
		if err == nil {
			var data map[string]project.Metadata
			if jsonErr := json.Unmarshal(raw, &data); jsonErr == nil {
				return data, true
			}
		}
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.local[clientID]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

func (c *CachingMetadataProvider) setCached(clientID string, data map[string]project.Metadata) {
	if c.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if raw, err := json.Marshal(data); err == nil {
			_ = c.redis.Set(ctx, c.cacheKey(clientID), raw, c.ttl).Err()
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[clientID] = localEntry{data: data, expires: time.Now().Add(c.ttl)}
}

var _ MetadataProvider = (*CachingMetadataProvider)(nil)
