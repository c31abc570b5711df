package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StockRoom/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Products   *ProductService
	Categories *CategoryService
	Store      Pinger
	Log        *zap.Logger
	// Gauges, when set, receive every report served.
	Gauges *ReportGauges
}

// Routes registers the API. writeMW wraps every route that mutates state.
func (s *Server) Routes(writeMW ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", s.listProducts)
		pr.Get("/metrics", s.inventoryReport)
		pr.Get("/{id}", s.getProduct)

		pr.Group(func(wr chi.Router) {
			wr.Use(writeMW...)
			wr.Post("/", s.createProduct)
			wr.Put("/{id}", s.updateProduct)
			wr.Delete("/{id}", s.deleteProduct)
			wr.Put("/{id}/instock", s.markInStock)
			wr.Put("/{id}/outofstock", s.markOutOfStock)
		})
	})

	r.Route("/categories", func(cr chi.Router) {
		cr.Get("/", s.listCategories)
		cr.Get("/{name}", s.getCategory)
		cr.With(writeMW...).Post("/", s.createCategory)
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Products.CreateProduct(r.Context(), &in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger().Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	in.ID = chi.URLParam(r, "id")

	p, err := s.Products.UpdateProduct(r.Context(), &in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.Products.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteNoContent(w)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad query", map[string]any{"cause": err.Error()})
		return
	}

	products, err := s.Products.FilterProducts(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) markInStock(w http.ResponseWriter, r *http.Request)    { s.setStock(w, r, true) }
func (s *Server) markOutOfStock(w http.ResponseWriter, r *http.Request) { s.setStock(w, r, false) }

func (s *Server) setStock(w http.ResponseWriter, r *http.Request, inStock bool) {
	id := chi.URLParam(r, "id")
	if err := s.Products.SetStock(r.Context(), id, inStock); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger().Info("stock changed", zap.String("product_id", id), zap.Bool("in_stock", inStock))
	kit.WriteNoContent(w)
}

func (s *Server) inventoryReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Products.InventoryReport(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Gauges != nil {
		s.Gauges.Observe(rep)
	}
	kit.WriteJSON(w, http.StatusOK, rep)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	c, err := s.Categories.CreateCategory(r.Context(), &in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger().Info("category created", zap.String("category", c.Name))
	kit.WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := s.Categories.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, cs)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	c, err := s.Categories.CategoryByName(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrAlreadyExists):
		kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.logger().Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}

// parseCriteria reads name, categories and inStock. categories may be repeated
// or comma separated.
func parseCriteria(r *http.Request) (Criteria, error) {
	q := r.URL.Query()

	c := Criteria{Name: strings.TrimSpace(q.Get("name"))}
	for _, raw := range q["categories"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Categories = append(c.Categories, name)
			}
		}
	}

	if raw := strings.TrimSpace(q.Get("inStock")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Criteria{}, errors.New("inStock must be true or false")
		}
		c.InStock = &v
	}
	return c, nil
}
