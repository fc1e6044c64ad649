package featureflag

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FeWoHub/fewohub/app/models"
)

// DefaultTTL is how long a fetched flag value is trusted before the source
// is consulted again.
const DefaultTTL = 5 * time.Minute

// Source supplies raw setting values. Satisfied by
// repository.SettingRepository.
type Source interface {
	GetValue(key string) (string, error)
}

// Provider serves the global "compensation enabled" flag with a short TTL
// cache. A missing key or a source error defaults to disabled; entitlement
// math must never fail because the config store is down.
type Provider struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	value     bool
	fetchedAt time.Time
	valid     bool
}

// NewProvider creates a flag provider over the given source.
func NewProvider(source Source, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewProviderWithClock is NewProvider with an injectable clock for tests.
func NewProviderWithClock(source Source, ttl time.Duration, now func() time.Time) *Provider {
	p := NewProvider(source, ttl)
	p.now = now
	return p
}

// CompensationEnabled reports whether review compensation is globally on.
func (p *Provider) CompensationEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.valid && now.Sub(p.fetchedAt) < p.ttl {
		return p.value
	}

	raw, err := p.source.GetValue(models.SettingCompensationEnabled)
	if err != nil {
		log.Warnf("[FeatureFlag] Could not read %s, defaulting to disabled: %v", models.SettingCompensationEnabled, err)
		// Keep serving the stale value if we ever had one.
		if p.valid {
			p.fetchedAt = now
			return p.value
		}
		return false
	}

	p.value = raw == "true" || raw == "1"
	p.fetchedAt = now
	p.valid = true
	return p.value
}
