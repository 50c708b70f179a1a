package storage

import (
	"fmt"
	"time"

	"github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementations satisfy interfaces.
var (
	_ storage.Router         = (*PartRouter)(nil)
	_ storage.RotationPolicy = (*CompositePolicy)(nil)
)

// PartRouter names output parts the way MapReduce map outputs are named.
type PartRouter struct {
	output    string
	extension string
}

// NewRouter creates a router writing .json parts under output.
func NewRouter(output string) *PartRouter {
	return &PartRouter{output: output, extension: ".json"}
}

// WithExtension returns a router that names parts with ext.
func (r *PartRouter) WithExtension(ext string) *PartRouter {
	return &PartRouter{output: r.output, extension: ext}
}

// Route returns the part location for an input and rotation sequence.
// Format: <output>/part-m-IIIII-SSSSS<ext>
func (r *PartRouter) Route(input, sequence int) string {
	return Join(r.output, fmt.Sprintf("part-m-%05d-%05d%s", input, sequence, r.extension))
}

// SchemaPath returns the location of the schema document next to the parts.
func (r *PartRouter) SchemaPath(name string) string {
	return Join(r.output, name)
}

// PolicyConfig configures rotation behavior.
type PolicyConfig struct {
	MaxPartSizeBytes   int64
	MaxRecordsPerPart  int
	MaxDurationSeconds int
}

// CompositePolicy rotates when any configured limit is reached. A zero
// limit is disabled.
type CompositePolicy struct {
	maxSizeBytes int64
	maxRecords   int
	maxDuration  time.Duration
}

// NewPolicy creates a new composite rotation policy.
func NewPolicy(config PolicyConfig) *CompositePolicy {
	return &CompositePolicy{
		maxSizeBytes: config.MaxPartSizeBytes,
		maxRecords:   config.MaxRecordsPerPart,
		maxDuration:  time.Duration(config.MaxDurationSeconds) * time.Second,
	}
}

// ShouldRotate returns true if any rotation condition is met.
func (p *CompositePolicy) ShouldRotate(stats storage.PartStats) bool {
	if p.maxSizeBytes > 0 && stats.SizeBytes >= p.maxSizeBytes {
		return true
	}

	if p.maxRecords > 0 && stats.RecordCount >= p.maxRecords {
		return true
	}

	if p.maxDuration > 0 && !stats.FirstWriteTime.IsZero() {
		if time.Since(stats.FirstWriteTime) >= p.maxDuration {
			return true
		}
	}

	return false
}
