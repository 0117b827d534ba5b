package events

import (
	"context"

	"github.com/psd2hub/xs2a-engine/internal/core/ports"
)

// NoopRecorder drops every event. Used when event recording is disabled.
type NoopRecorder struct{}

func (NoopRecorder) Record(ctx context.Context, event ports.Event) {}
