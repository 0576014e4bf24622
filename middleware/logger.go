package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger 記錄每個請求的狀態碼、耗時與寫出位元組數
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrapResponseWriter(w)

			start := time.Now()
			next.ServeHTTP(rw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"proto", r.Proto,
				"status", rw.status,
				"duration", time.Since(start),
				"bytes", rw.bytesWritten,
			)
		})
	}
}
