package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc:  &Document{ID: "abc123", Title: "Radar sustainment"},
		},
		{
			name: "missing text is allowed",
			doc:  &Document{ID: "abc123"},
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty id",
			doc:     &Document{Title: "Radar sustainment"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "whitespace id",
			doc:     &Document{ID: "   "},
			wantErr: ErrEmptyID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestValidateVector(t *testing.T) {
	assert.NoError(t, ValidateVector(Vector{1, 2, 3}, 3))
	assert.NoError(t, ValidateVector(Vector{1, 2, 3}, 0), "zero dims accepts any width")
	assert.ErrorIs(t, ValidateVector(Vector{}, 0), ErrEmptyVector)
	assert.ErrorIs(t, ValidateVector(Vector{1, 2}, 3), ErrDimensionMismatch)
}

func TestValidateVectors(t *testing.T) {
	t.Run("learns width from first vector", func(t *testing.T) {
		dims, err := ValidateVectors([]Vector{{1, 0}, {0, 1}}, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, dims)
	})

	t.Run("rejects mixed widths", func(t *testing.T) {
		_, err := ValidateVectors([]Vector{{1, 0}, {0, 1, 0}}, 0)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("rejects declared width mismatch", func(t *testing.T) {
		_, err := ValidateVectors([]Vector{{1, 0}}, 4)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("empty input", func(t *testing.T) {
		dims, err := ValidateVectors(nil, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, dims)
	})
}
