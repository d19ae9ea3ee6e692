// Package handler maps HTTP requests onto the domain services and renders
// their results as JSON.
package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/metric"

	"github.com/ecalcano/estore/internal/domain/auth"
	"github.com/ecalcano/estore/internal/domain/cart"
	"github.com/ecalcano/estore/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// LatestProductsLimit caps the number of products returned by the
	// product listing endpoint.
	LatestProductsLimit int

	// CartMutations counts cart add/remove operations, labeled by operation
	// and outcome. Optional.
	CartMutations metric.Int64Counter
}

// Handler serves the storefront API. Cart operations take their identity
// from the session cart cookie and the optional bearer token; everything
// else is stateless.
type Handler struct {
	cfg      Config
	products product.Repository
	carts    *cart.Service
	auth     *auth.Service
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, products product.Repository, carts *cart.Service, authSvc *auth.Service) *Handler {
	if cfg.LatestProductsLimit <= 0 {
		cfg.LatestProductsLimit = 6
	}
	return &Handler{
		cfg:      cfg,
		products: products,
		carts:    carts,
		auth:     authSvc,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{slug}", h.getProduct)
	mux.HandleFunc("POST /api/auth/sign-in", h.signIn)
	mux.HandleFunc("POST /api/auth/sign-up", h.signUp)
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.removeCartItem)
}

// writeJSON sends the encoder's buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError sends a {code, message} error body.
func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, code, &e)
}

// writeResult sends the structured {success, message} body every cart
// mutation returns, success or not.
func writeResult(w http.ResponseWriter, res cart.Result) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(res.Success) })
		e.Field("message", func(e *jx.Encoder) { e.Str(res.Message) })
	})
	writeJSON(w, http.StatusOK, &e)
}
