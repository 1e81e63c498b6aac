package main

import (
	"go/parser"
	"go/token"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// container tooling belongs to tests, the service binary must not link it
func TestChatService_NoContainerToolingLinked(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "main.go", nil, parser.ImportsOnly)
	require.NoError(t, err)

	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		require.NoError(t, err)
		assert.NotEqual(t, "realtime_chat_service/pkg/test_tool", path)
		assert.NotContains(t, path, "testcontainers")
	}
}
