package types

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		input Hash
		want  bool
	}{
		{name: "Valid Hash (64 chars)", input: Hash(strings.Repeat("a", 64)), want: true},
		{name: "Too Short", input: Hash("abc"), want: false},
		{name: "Empty", input: Hash(""), want: false},
		{name: "Too Long", input: Hash(strings.Repeat("a", 65)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.IsValid())
		})
	}
}

func TestID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b, "每次铸造的 ID 应该不同")
	assert.False(t, a.IsZero())

	var zero ID
	assert.True(t, zero.IsZero())
	assert.True(t, ID("  ").IsZero())
}

func TestUserKey_IsZero(t *testing.T) {
	assert.True(t, UserKey("").IsZero())
	assert.True(t, UserKey(" ").IsZero())
	assert.False(t, UserKey("alice@example.org").IsZero())
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		input   string
		want    Visibility
		wantErr bool
	}{
		{"", VisibilityRestricted, false},
		{"restricted", VisibilityRestricted, false},
		{"authenticated", VisibilityAuthenticated, false},
		{"open", VisibilityPublic, false},
		{"public", VisibilityPublic, false},
		{"secret", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("input=%q", tt.input), func(t *testing.T) {
			got, err := ParseVisibility(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	var empty AccessWindow
	assert.False(t, empty.UnderEmbargo(now))
	assert.False(t, empty.ActiveLease(now))

	w := AccessWindow{EmbargoReleaseDate: &future, LeaseExpirationDate: &past}
	assert.True(t, w.UnderEmbargo(now))
	assert.False(t, w.ActiveLease(now))
}

func TestValidate(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
		Mode string `validate:"omitempty,oneof=a b"`
	}

	assert.NoError(t, Validate(input{Name: "x"}))
	assert.NoError(t, Validate(&input{Name: "x", Mode: "b"}))

	err := Validate(input{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "input.Name")

	err = Validate(input{Name: "x", Mode: "c"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "'oneof'")
}
