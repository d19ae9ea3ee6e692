package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ecalcano/estore/internal/domain/cart"
	"github.com/ecalcano/estore/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListLatest(r.Context(), h.cfg.LatestProductsLimit)
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range products {
			encodeProduct(e, &products[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	p, err := h.products.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.String("slug", slug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(p.Slug) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("brand", func(e *jx.Encoder) { e.Str(p.Brand) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("price", func(e *jx.Encoder) { e.Str(cart.FormatPrice(p.Price)) })
		e.Field("images", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, img := range p.Images {
					e.Str(img)
				}
			})
		})
		e.Field("isFeatured", func(e *jx.Encoder) { e.Bool(p.IsFeatured) })
		if p.Banner != "" {
			e.Field("banner", func(e *jx.Encoder) { e.Str(p.Banner) })
		}
	})
}
