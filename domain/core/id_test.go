package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestNewRunIDNotEmpty(t *testing.T) {
	if NewRunID().String() == "" {
		t.Error("Expected run ID to be non-empty")
	}
}

func TestParseBandLabel(t *testing.T) {
	if _, err := ParseBandLabel(""); err == nil {
		t.Error("Expected error for empty band label")
	}
	label, err := ParseBandLabel("business-cycle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label.String() != "business-cycle" {
		t.Errorf("Expected business-cycle, got %s", label)
	}
}
