package snapshot

import (
	"context"
	"fmt"
	"time"

	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/storage"
)

// Source tells where a loaded state came from.
type Source string

const (
	SourceStored    Source = "stored"
	SourceSeed      Source = "seed"
	SourceRecovered Source = "recovered" // stored snapshot was unreadable
)

// SeedFunc builds the initial dataset for a first run.
type SeedFunc func(now time.Time) core.State

// Persister loads and saves the state under StorageKey.
type Persister struct {
	kv     storage.KV
	seed   SeedFunc
	now    func() time.Time
	logger *applog.Logger
}

func NewPersister(kv storage.KV, seed SeedFunc, logger *applog.Logger) *Persister {
	if seed == nil {
		seed = DefaultSeed
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Persister{
		kv:     kv,
		seed:   seed,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentSnapshot),
	}
}

// Load returns the stored state. A missing snapshot yields the seed; an
// unreadable one is logged and also yields the seed. Only storage failures
// are returned as errors.
func (p *Persister) Load(ctx context.Context) (core.State, Source, error) {
	raw, ok, err := p.kv.Get(ctx, StorageKey)
	if err != nil {
		return core.State{}, "", fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		p.logger.InfoContext(ctx, "No stored snapshot, starting from seed data")
		return p.seed(p.now()), SourceSeed, nil
	}

	s, err := Decode([]byte(raw))
	if err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpLoad).
			WithError(err, applog.ErrorTypeCorrupt)
		fields[applog.FieldBytes] = len(raw)
		p.logger.WarnContext(ctx, "Stored snapshot is unreadable, falling back to seed data", fields.ToSlice()...)
		return p.seed(p.now()), SourceRecovered, nil
	}

	p.logger.DebugContext(ctx, "Loaded snapshot",
		"clients", len(s.Clients),
		"services", len(s.Services),
		"appointments", len(s.Appointments),
		"expenses", len(s.Expenses))
	return s, SourceStored, nil
}

// Save overwrites the stored snapshot with s.
func (p *Persister) Save(ctx context.Context, s core.State) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	p.logger.DebugContext(ctx, "Saved snapshot", applog.FieldBytes, len(data))
	return nil
}
