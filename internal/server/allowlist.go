package server

import (
	"net"
	"net/http"
	"strings"

	"mpesa-gateway-go/internal/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AllowlistMiddleware rejects callers whose address is not listed. The
// X-Forwarded-For header is trusted as-is, so the gateway must sit behind a
// proxy that sets it.
func AllowlistMiddleware(addresses []string) mux.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		allowed[address] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := clientIP(r)
			if err != nil {
				zap.L().Error("Unable to determine caller address",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
				return
			}

			if _, ok := allowed[ip]; !ok {
				zap.L().Warn("Rejected caller outside allowlist",
					zap.String("ip", ip),
					zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) (string, error) {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		return forwarded, nil
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	return host, nil
}
