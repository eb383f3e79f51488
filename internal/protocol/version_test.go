package protocol

import (
	"errors"
	"testing"
)

func TestNegotiate_PicksHighestCommon(t *testing.T) {
	tests := []struct {
		name    string
		offered []string
		want    Version
	}{
		{"all versions", []string{"1.0", "2.0", "3.0"}, V3},
		{"older server", []string{"1.0", "2.0"}, V2},
		{"oldest only", []string{"1.0"}, V1},
		{"unordered list", []string{"3.0", "1.0"}, V3},
		{"unknown versions ignored", []string{"4.0", "2.0"}, V2},
		{"duplicates", []string{"2.0", "2.0"}, V2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, features, err := Negotiate(tt.offered)
			if err != nil {
				t.Fatalf("Negotiate(%v): %v", tt.offered, err)
			}
			if got != tt.want {
				t.Errorf("Negotiate(%v) = %s, want %s", tt.offered, got, tt.want)
			}
			if features != tt.want.Features() {
				t.Errorf("feature set does not match negotiated version")
			}
		})
	}
}

func TestNegotiate_EmptyListAssumesLowest(t *testing.T) {
	got, features, err := Negotiate(nil)
	if err != nil {
		t.Fatalf("Negotiate(nil): %v", err)
	}
	if got != V1 {
		t.Errorf("expected lowest version %s, got %s", V1, got)
	}
	if !features.Tools || features.Resources {
		t.Errorf("unexpected feature set for %s: %+v", got, features)
	}
}

func TestNegotiate_NoOverlap(t *testing.T) {
	_, _, err := Negotiate([]string{"0.9", "4.0"})
	if err == nil {
		t.Fatal("expected error for disjoint version sets")
	}
	if !errors.Is(err, ErrNoCompatibleVersion) {
		t.Errorf("expected ErrNoCompatibleVersion, got %v", err)
	}
}

func TestNegotiate_MidVersionFeatures(t *testing.T) {
	got, features, err := Negotiate([]string{"1.0", "2.0"})
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got != V2 {
		t.Fatalf("expected %s, got %s", V2, got)
	}
	if !features.Streaming {
		t.Error("expected streaming support at 2.0")
	}
	if features.Batching {
		t.Error("did not expect batching support at 2.0")
	}
}

func TestFeatureSet_Supports(t *testing.T) {
	features := V2.Features()

	if !features.Supports("tools") || !features.Supports("resources") || !features.Supports("streaming") {
		t.Error("expected tools, resources, and streaming at 2.0")
	}
	if features.Supports("batching") {
		t.Error("did not expect batching at 2.0")
	}
	if features.Supports("holograms") {
		t.Error("unknown capability names must never be supported")
	}
}

func TestSupportedVersions_NewestFirst(t *testing.T) {
	if SupportedVersions[0] != V3 {
		t.Errorf("expected newest version first, got %s", SupportedVersions[0])
	}
	if SupportedVersions[len(SupportedVersions)-1] != V1 {
		t.Errorf("expected oldest version last, got %s", SupportedVersions[len(SupportedVersions)-1])
	}
}
