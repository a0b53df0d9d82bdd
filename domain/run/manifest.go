// Package run records what an analysis consumed so it can be replayed.
package run

import (
	"encoding/json"
	"fmt"
	"strings"

	"gowave/domain/core"
	"gowave/domain/series"
)

// InputDigest identifies one input series by content.
type InputDigest struct {
	Name string    `json:"name"`
	N    int       `json:"n"`
	DT   float64   `json:"dt"`
	Hash core.Hash `json:"hash"`
}

// Digest hashes the values of ts.
func Digest(ts *series.TimeSeries) InputDigest {
	return InputDigest{
		Name: ts.Name(),
		N:    ts.Len(),
		DT:   ts.DT(),
		Hash: core.HashFloats(ts.Values()),
	}
}

// Manifest is the record of one analysis call. Two calls with the same
// operation, settings, seed and input values share a Fingerprint; RunID and
// CreatedAt differ per call.
type Manifest struct {
	RunID       core.RunID     `json:"run_id"`
	Operation   string         `json:"operation"`
	Inputs      []InputDigest  `json:"inputs"`
	ConfigHash  core.Hash      `json:"config_hash"`
	Seed        int64          `json:"seed"`
	Fingerprint core.Hash      `json:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// NewManifest digests the inputs and settings of an analysis. settings is
// hashed through its JSON encoding.
func NewManifest(runID core.RunID, operation string, settings interface{}, seed int64, inputs ...*series.TimeSeries) (*Manifest, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings for %s: %w", operation, err)
	}
	m := &Manifest{
		RunID:      runID,
		Operation:  operation,
		Inputs:     make([]InputDigest, len(inputs)),
		ConfigHash: core.NewHash(raw),
		Seed:       seed,
		CreatedAt:  core.Now(),
	}
	for i, ts := range inputs {
		m.Inputs[i] = Digest(ts)
	}
	m.Fingerprint = computeFingerprint(m)
	return m, nil
}

func computeFingerprint(m *Manifest) core.Hash {
	var b strings.Builder
	fmt.Fprintf(&b, "op:%s|config:%s|seed:%d", m.Operation, m.ConfigHash, m.Seed)
	for _, in := range m.Inputs {
		fmt.Fprintf(&b, "|input:%s:%d:%g:%s", in.Name, in.N, in.DT, in.Hash)
	}
	return core.NewHash([]byte(b.String()))
}

// Validate checks that the manifest is complete and its fingerprint matches
// its contents.
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewInvalidInputError("manifest: run_id cannot be empty")
	}
	if m.Operation == "" {
		return core.NewInvalidInputError("manifest: operation cannot be empty")
	}
	if len(m.Inputs) == 0 {
		return core.NewInvalidInputError("manifest: no inputs recorded")
	}
	if m.Fingerprint != computeFingerprint(m) {
		return core.NewInvalidInputError("manifest: fingerprint %s does not match contents", m.Fingerprint.Short())
	}
	return nil
}

// SameRun reports whether other replays m: same fingerprint.
func (m *Manifest) SameRun(other *Manifest) bool {
	return m.Fingerprint == other.Fingerprint
}
