// Package plan assembles the immutable build plan handed to an external executor.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/buildplan/internal/devshell"
	"git.home.luguber.info/inful/buildplan/internal/fingerprint"
	"git.home.luguber.info/inful/buildplan/internal/targets"
	"git.home.luguber.info/inful/buildplan/internal/trust"
)

// FormatVersion is bumped whenever the JSON layout of BuildPlan changes.
const FormatVersion = 1

// BuildUnit is the work for one target.
type BuildUnit struct {
	Target      string                  `json:"target"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Toolchain   string                  `json:"toolchain"`
	Policy      Policy                  `json:"policy"`
}

// Source describes the snapshot every unit builds from.
type Source struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Files       int                     `json:"files"`
}

// BuildPlan is the result of one compilation.
type BuildPlan struct {
	Version  int               `json:"version"`
	Source   Source            `json:"source"`
	Units    []BuildUnit       `json:"units"`
	DevShell devshell.Resolved `json:"devshell"`
	Trust    trust.Snapshot    `json:"trust"`
}

// Inputs gathers the outputs of the earlier stages.
type Inputs struct {
	Targets     []targets.Bound
	Fingerprint fingerprint.Fingerprint
	Files       int
	Policy      Policy
	DevShell    devshell.Resolved
	Trust       trust.Snapshot
}

// Assemble produces one unit per target, in target order. Every unit carries the
// same fingerprint and the same policy.
func Assemble(in Inputs) *BuildPlan {
	units := make([]BuildUnit, 0, len(in.Targets))
	for _, t := range in.Targets {
		units = append(units, BuildUnit{
			Target:      t.ID,
			Fingerprint: in.Fingerprint,
			Toolchain:   t.ToolchainRef,
			Policy:      in.Policy,
		})
	}
	tr := in.Trust
	if tr == nil {
		tr = trust.Snapshot{}
	}
	return &BuildPlan{
		Version:  FormatVersion,
		Source:   Source{Fingerprint: in.Fingerprint, Files: in.Files},
		Units:    units,
		DevShell: in.DevShell,
		Trust:    tr,
	}
}

// Targets returns the target of every unit in order.
func (p *BuildPlan) Targets() []string {
	out := make([]string, len(p.Units))
	for i, u := range p.Units {
		out[i] = u.Target
	}
	return out
}

// Marshal encodes the plan as indented JSON.
func (p *BuildPlan) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Hash is the hex sha256 of the compact JSON encoding. Equal plans hash equally.
func (p *BuildPlan) Hash() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Decode parses a plan produced by Marshal.
func Decode(data []byte) (*BuildPlan, error) {
	var p BuildPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if p.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported plan version %d", p.Version)
	}
	return &p, nil
}
