package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// corsPolicy describes the CORS headers served to browser clients. The
// control API is a LAN-facing tool, so the default policy is permissive.
type corsPolicy struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// defaultCORSPolicy allows the methods and headers the destination,
// multistream and connection routes actually accept.
func defaultCORSPolicy() corsPolicy {
	return corsPolicy{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept"},
		MaxAge:       86400,
	}
}

// corsMiddleware stamps CORS headers on every response.
func corsMiddleware(policy corsPolicy) func(huma.Context, func(huma.Context)) {
	allowMethods := strings.Join(policy.AllowMethods, ", ")
	allowHeaders := strings.Join(policy.AllowHeaders, ", ")
	maxAge := strconv.Itoa(policy.MaxAge)

	return func(ctx huma.Context, next func(huma.Context)) {
		ctx.SetHeader("Access-Control-Allow-Origin", policy.AllowOrigin)
		ctx.SetHeader("Access-Control-Allow-Methods", allowMethods)
		ctx.SetHeader("Access-Control-Allow-Headers", allowHeaders)
		ctx.SetHeader("Access-Control-Max-Age", maxAge)

		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// registerCORSPreflight answers OPTIONS requests at the mux level. Huma
// middleware never sees OPTIONS because routing rejects the method first.
func registerCORSPreflight(mux *http.ServeMux, policy corsPolicy) {
	allowMethods := strings.Join(policy.AllowMethods, ", ")
	allowHeaders := strings.Join(policy.AllowHeaders, ", ")
	maxAge := strconv.Itoa(policy.MaxAge)

	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", policy.AllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", allowMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.Header().Set("Access-Control-Max-Age", maxAge)
		w.WriteHeader(http.StatusNoContent)
	})
}
