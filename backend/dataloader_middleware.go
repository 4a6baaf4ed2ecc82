package main

import (
	"net/http"

	"github.com/kansalharshit22/solace-project/store"
)

// dataLoaderMiddleware gives every request its own batched user loader so
// repeated lookups within one response hit the store once.
func dataLoaderMiddleware(s store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := store.WithLoaders(r.Context(), store.NewLoaders(s))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
