package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the configured allowed origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", AnonymousIDHeader, "X-Requested-With"},
		ExposedHeaders:   []string{AnonymousIDHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
