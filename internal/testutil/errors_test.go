package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/docgen/internal/schema"
)

func TestMockErrors_Distinct(t *testing.T) {
	all := []error{ErrMockUpstream, ErrMockConflict, ErrMockConnReset, ErrMockHost}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
			}
		}
	}
}

func TestSchemaJSON_IsValid(t *testing.T) {
	s, err := schema.Parse(SchemaJSON)
	require.NoError(t, err)
	require.Len(t, s.Directories(), 1)
	assert.Equal(t, "src", s.Directories()[0].Path)
	assert.Len(t, s.EventFlows["src"], 1)
}
