package profiling

import (
	"testing"

	"realtime_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestStartPprof_EmptyAddrDisabled(t *testing.T) {
	logger.SetNewNop()
	assert.False(t, StartPprof(""))
}
