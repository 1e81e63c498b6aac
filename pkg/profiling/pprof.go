package profiling

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof serve /debug/pprof on addr outside production, addr "" disables it.
// Bind to 127.0.0.1, the endpoints expose process internals.
func StartPprof(addr string) bool {
	if addr == "" || config.IsProduction() {
		logger.Log.Info("pprof disabled")
		return false
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Error("pprof server failed", zap.Error(err))
		}
	}()
	return true
}

// curl http://127.0.0.1:6060/debug/pprof/
// go tool pprof http://127.0.0.1:6060/debug/pprof/goroutine   # 連線數 ~ write pump goroutine 數
// go tool pprof http://127.0.0.1:6060/debug/pprof/mutex       # room lock / registry 競爭
