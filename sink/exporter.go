package sink

import (
	"context"
	"log"
	"time"

	"github.com/softee/managed/registry"
)

// Exporter periodically snapshots every registered object into a set of
// sinks. A failing sink is logged and skipped, never fatal.
type Exporter struct {
	registry *registry.Registry
	sinks    []Sink
	interval time.Duration
	stop     chan bool
}

func NewExporter(reg *registry.Registry, sinks []Sink, interval time.Duration) *Exporter {
	return &Exporter{
		registry: reg,
		sinks:    sinks,
		interval: interval,
		stop:     make(chan bool),
	}
}

// Start runs the export loop until Stop is called. Run it in a goroutine.
func (e *Exporter) Start() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.ExportOnce(context.Background())
		}
	}
}

// ExportOnce snapshots every registered object into every sink.
func (e *Exporter) ExportOnce(ctx context.Context) {
	takenAt := time.Now()
	for _, name := range e.registry.Names() {
		reg, ok := e.registry.Lookup(name)
		if !ok {
			continue
		}

		snap := Take(reg, takenAt)
		for _, s := range e.sinks {
			if err := s.Write(ctx, snap); err != nil {
				log.Printf("Failed to export %s to %s sink: %v", name, s.Name(), err)
			}
		}
	}
}

func (e *Exporter) Stop() {
	e.stop <- true
}
