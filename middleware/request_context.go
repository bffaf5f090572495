package middleware

import (
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/internal/shared"
)

// RequestIDHeader carries the request ID in and out
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestContext stores the request ID and caller metadata in the context.
// An incoming X-Request-ID is reused when present and reasonably sized.
// Mount it after chi's RealIP so RemoteAddr reflects the client.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := shared.WithRequestID(r.Context(), requestID)
		ctx = shared.WithClient(ctx, shared.Client{
			IPAddress: clientIP(r.RemoteAddr),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
