package pipeline

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

const defaultDoctorTTL = 5 * time.Minute

// Capabilities is what the doctor found on this machine.
type Capabilities struct {
	HasFFmpeg        bool      `json:"has_ffmpeg"`
	HasFFprobe       bool      `json:"has_ffprobe"`
	OracleConfigured bool      `json:"oracle_configured"`
	ProbedAt         time.Time `json:"probed_at"`
}

// CanExport reports whether the full export pipeline can run.
func (c Capabilities) CanExport() bool {
	return c.HasFFmpeg && c.HasFFprobe
}

// Prober performs one doctor probe.
type Prober interface {
	Probe(ctx context.Context) (*Capabilities, error)
}

// ToolProber checks PATH for the media tools and reports the oracle's
// configuration state it was constructed with.
type ToolProber struct {
	oracleConfigured bool
}

func NewToolProber(oracleConfigured bool) *ToolProber {
	return &ToolProber{oracleConfigured: oracleConfigured}
}

func (p *ToolProber) Probe(ctx context.Context) (*Capabilities, error) {
	caps := &Capabilities{
		OracleConfigured: p.oracleConfigured,
		ProbedAt:         time.Now(),
	}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		caps.HasFFmpeg = true
	}
	if _, err := exec.LookPath("ffprobe"); err == nil {
		caps.HasFFprobe = true
	}
	return caps, nil
}

// CachedDoctor wraps a Prober to cache probe results with a TTL, so the
// status endpoint and job runner do not re-probe PATH on every call.
type CachedDoctor struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(prober Prober, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		prober: prober,
		ttl:    defaultDoctorTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness. A failed probe
// falls back to the stale cache when one exists.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.prober.Probe(ctx)
	if err != nil {
		d.logger.Warn("doctor probe failed", "error", err)
		if d.cached != nil {
			d.logger.Info("returning stale capabilities cache")
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
