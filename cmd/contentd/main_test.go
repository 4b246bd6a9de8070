package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPatterns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"*", []string{"*"}},
		{"vscode-*, git ,,untitled", []string{"vscode-*", "git", "untitled"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitPatterns(tt.in), "input %q", tt.in)
	}
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), "", "contentd")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
