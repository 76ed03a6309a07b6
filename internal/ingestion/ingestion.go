// Package ingestion implements the Ingestion Channel Controller (C9): the
// per-project channel state machine (switchInputType/disconnect/reconnect/
// apiKeyRequest) and the write-time ChannelMismatch guard every ingestion
// path runs through before an entry reaches the Methodology Evaluator.
package ingestion

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// ProjectStore is the narrow slice of repository.ProjectRepository the
// controller needs to load and persist channel state.
type ProjectStore interface {
	Get(clientID, projectID string) (*project.Project, error)
	Save(p *project.Project) error
}

// Controller owns the channel state machine and the per-project rate
// limiter guarding the API ingestion channel.
type Controller struct {
	projects ProjectStore

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

// Config tunes the per-project API rate limiter.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig matches the reference service layer's infra defaults.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 10, Burst: 20}
}

// New returns a Controller backed by projects.
func New(projects ProjectStore, cfg Config) *Controller {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Controller{
		projects: projects,
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
	}
}

func (c *Controller) limiterFor(clientID, projectID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := clientID + "|" + projectID
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[key] = l
	}
	return l
}

// VerifyChannel enforces spec §4.8's write-time guard: the requested
// channel must match the project's active inputType, and an API write must
// additionally respect the project's token bucket.
func (c *Controller) VerifyChannel(clientID, projectID string, requested project.InputType) error {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return err
	}
	if p.Channel.InputType != requested {
		return apperr.New(apperr.ChannelMismatch, "project %s active channel is %s, not %s", projectID, p.Channel.InputType, requested)
	}
	if requested == project.InputAPI && !c.limiterFor(clientID, projectID).Allow() {
		return apperr.New(apperr.ChannelMismatch, "project %s exceeded the API ingestion rate limit", projectID)
	}
	return nil
}

// SwitchInputType changes the project's active channel. Permitted only for
// the client-admin of that client (the caller enforces via
// internal/authz.CanManageChannel before calling this). Clears the opposite
// channel's credentials, sets originalInputType, and leaves any pending key
// request intact.
func (c *Controller) SwitchInputType(clientID, projectID string, next project.InputType) (*project.Project, error) {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}
	if next == project.InputCSV {
		return nil, apperr.New(apperr.ValidationError, "CSV is never an active channel")
	}

	p.Channel.OriginalInputType = p.Channel.InputType
	switch next {
	case project.InputAPI:
		p.Channel.IOTDeviceID = ""
		p.Channel.IOTStatus = false
	case project.InputIOT:
		p.Channel.APIEndpoint = ""
		p.Channel.APIKeyHash = ""
		p.Channel.APIStatus = false
	case project.InputManual:
		// manual clears nothing; both prior channel's credentials remain
		// so reconnect can restore them later.
	}
	p.Channel.InputType = next

	if err := c.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Disconnect flips the currently active API/IOT channel's status flag to
// false while preserving its credentials.
func (c *Controller) Disconnect(clientID, projectID string) (*project.Project, error) {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}
	switch p.Channel.InputType {
	case project.InputAPI:
		p.Channel.APIStatus = false
	case project.InputIOT:
		p.Channel.IOTStatus = false
	default:
		return nil, apperr.New(apperr.ValidationError, "project %s has no active API/IOT channel to disconnect", projectID)
	}
	if err := c.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reconnect requires credentials already present and flips the status flag
// back to true; for API, newEndpoint (if non-empty) replaces the stored
// endpoint.
func (c *Controller) Reconnect(clientID, projectID, newEndpoint string) (*project.Project, error) {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}
	switch p.Channel.InputType {
	case project.InputAPI:
		if p.Channel.APIKeyHash == "" {
			return nil, apperr.New(apperr.ValidationError, "project %s has no API credentials to reconnect with", projectID)
		}
		if newEndpoint != "" {
			p.Channel.APIEndpoint = newEndpoint
		}
		p.Channel.APIStatus = true
	case project.InputIOT:
		if p.Channel.IOTDeviceID == "" {
			return nil, apperr.New(apperr.ValidationError, "project %s has no IOT device bound to reconnect", projectID)
		}
		p.Channel.IOTStatus = true
	default:
		return nil, apperr.New(apperr.ValidationError, "project %s has no API/IOT channel to reconnect", projectID)
	}
	if err := c.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RequestAPIKey transitions apiKeyRequest none -> pending.
func (c *Controller) RequestAPIKey(clientID, projectID string) (*project.Project, error) {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}
	if p.Channel.APIKeyRequest != project.APIKeyRequestNone {
		return nil, apperr.New(apperr.Conflict, "project %s already has an api key request in state %s", projectID, p.Channel.APIKeyRequest)
	}
	p.Channel.APIKeyRequest = project.APIKeyRequestPending
	p.Channel.APIKeyRequestedAt = time.Now()
	if err := c.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApproveAPIKey transitions pending -> approved, hashes the caller-supplied
// plaintext key with bcrypt for storage,
// and binds the project's endpoint to a key-scoped URL that pre-validation
// endpoint synthesis must not overwrite afterward.
func (c *Controller) ApproveAPIKey(clientID, projectID, plaintextKey, keyScopedEndpoint string) (*project.Project, error) {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}
	if p.Channel.APIKeyRequest != project.APIKeyRequestPending {
		return nil, apperr.New(apperr.Conflict, "project %s has no pending api key request", projectID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "hashing api key")
	}

	p.Channel.APIKeyHash = string(hash)
	p.Channel.APIEndpoint = keyScopedEndpoint
	p.Channel.APIKeyRequest = project.APIKeyRequestApproved
	if err := c.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RejectAPIKey transitions pending -> rejected.
func (c *Controller) RejectAPIKey(clientID, projectID string) (*project.Project, error) {
	p, err := c.projects.Get(clientID, projectID)
	if err != nil {
		return nil, err
	}
	if p.Channel.APIKeyRequest != project.APIKeyRequestPending {
		return nil, apperr.New(apperr.Conflict, "project %s has no pending api key request", projectID)
	}
	p.Channel.APIKeyRequest = project.APIKeyRequestRejected
	if err := c.projects.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// VerifyAPIKey checks plaintextKey against the project's stored bcrypt
// hash, used by the HTTP edge to authenticate a synchronous API push.
func VerifyAPIKey(p *project.Project, plaintextKey string) bool {
	if p.Channel.APIKeyHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.Channel.APIKeyHash), []byte(plaintextKey)) == nil
}
