// Package sink exports point-in-time snapshots of registered managed
// objects to external stores, so dashboards can read monitoring data
// without reaching into the process.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/softee/managed/registry"
)

// Snapshot is one evaluation of a managed object's attributes.
type Snapshot struct {
	ID         string         `json:"id"`
	ObjectName string         `json:"object_name"`
	TakenAt    time.Time      `json:"taken_at"`
	Attributes map[string]any `json:"attributes"`
}

// Sink persists snapshots somewhere external.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Take evaluates every attribute of a registration into a snapshot.
func Take(reg *registry.Registration, takenAt time.Time) *Snapshot {
	attrs := reg.Object.ManagedAttributes()
	snap := &Snapshot{
		ID:         uuid.New().String(),
		ObjectName: reg.Name.String(),
		TakenAt:    takenAt,
		Attributes: make(map[string]any, len(attrs)),
	}
	for _, attr := range attrs {
		snap.Attributes[attr.Name] = attr.Eval()
	}

	return snap
}

func (s *Snapshot) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func SnapshotFromJSON(data string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}

	return &snap, nil
}
