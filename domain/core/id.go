package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID     ID
	BandLabel ID
)

func (id RunID) String() string     { return ID(id).String() }
func (id BandLabel) String() string { return ID(id).String() }

// NewRunID tags a single analysis call so its log lines can be correlated.
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseBandLabel parses a string into BandLabel
func ParseBandLabel(s string) (BandLabel, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("band label cannot be empty")
	}
	return BandLabel(strings.TrimSpace(s)), nil
}
