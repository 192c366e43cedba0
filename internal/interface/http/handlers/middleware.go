// Package handlers contains HTTP handler interfaces and implementations.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth provides API key authentication. Only bcrypt hashes of the
// accepted keys are held in memory; the plaintext key arrives per request.
type APIKeyAuth struct {
	headerName string
	hashedKeys [][]byte
	mu         sync.RWMutex
}

// NewAPIKeyAuth creates a new API key authenticator from bcrypt hashes.
func NewAPIKeyAuth(headerName string, hashedKeys []string) *APIKeyAuth {
	hashes := make([][]byte, 0, len(hashedKeys))
	for _, h := range hashedKeys {
		if h != "" {
			hashes = append(hashes, []byte(h))
		}
	}

	return &APIKeyAuth{
		headerName: headerName,
		hashedKeys: hashes,
	}
}

// AddKeyHash adds a bcrypt hash of an accepted API key.
func (a *APIKeyAuth) AddKeyHash(hash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hashedKeys = append(a.hashedKeys, []byte(hash))
}

// IsValid checks if an API key matches any of the stored hashes.
func (a *APIKeyAuth) IsValid(key string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, hash := range a.hashedKeys {
		if bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil {
			return true
		}
	}
	return false
}

// Middleware returns an HTTP middleware that checks for valid API keys.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(a.headerName)

		// Also check Authorization header with Bearer scheme
		if key == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			http.Error(w, `{"error":"missing_api_key","message":"API key is required"}`, http.StatusUnauthorized)
			return
		}

		if !a.IsValid(key) {
			http.Error(w, `{"error":"invalid_api_key","message":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMEOUT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// TimeoutMiddleware adds a timeout to request contexts.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			// Use a channel to track completion
			done := make(chan struct{})

			go func() {
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
				// Request completed normally
			case <-ctx.Done():
				// Timeout exceeded
				if ctx.Err() == context.DeadlineExceeded {
					http.Error(w, `{"error":"timeout","message":"Request timeout exceeded"}`, http.StatusGatewayTimeout)
				}
			}
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds security-related headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// XSS protection (legacy, but still useful)
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		// Referrer policy
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Content security policy for API
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, `{"error":"payload_too_large","message":"Request body too large"}`,
					http.StatusRequestEntityTooLarge)
				return
			}

			// Also limit the actual body reading
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain chains multiple middleware functions.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ChainHandler chains middleware and wraps a final handler.
func ChainHandler(handler http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	return Chain(middlewares...)(handler)
}
