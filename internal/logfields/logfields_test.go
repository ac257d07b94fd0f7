package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "fingerprint", Stage("fingerprint")},
		{"Declaration", KeyDeclaration, "buildplan.yaml", Declaration("buildplan.yaml")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Target", KeyTarget, "wasm32-wasip2", Target("wasm32-wasip2")},
		{"Fingerprint", KeyFingerprint, "sha256-abc", Fingerprint("sha256-abc")},
		{"Overlay", KeyOverlay, "rust", Overlay("rust")},
		{"Package", KeyPackage, "cargo", Package("cargo")},
		{"Cache", KeyCache, "nixos", Cache("nixos")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if got := Count(3).Value.Int64(); got != 3 {
		t.Fatalf("Count: got %d", got)
	}
	if got := DurationMS(1.5).Value.Float64(); got != 1.5 {
		t.Fatalf("DurationMS: got %v", got)
	}
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("Error(nil): got %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Fatalf("Error: got %q", got)
	}
}
