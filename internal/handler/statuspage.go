package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/kleen-pos/api/internal/orderstatus"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// StatusPageHandler serves the customer-facing order status page.
type StatusPageHandler struct {
	store OrderLookup
}

func NewStatusPageHandler(store OrderLookup) *StatusPageHandler {
	return &StatusPageHandler{store: store}
}

func (h *StatusPageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status/{orderId}", h.Page)
	r.Get("/status/{orderId}/photos/{index}", h.Photo)
}

type photoLink struct {
	Number int
	Src    string
	Link   string
}

type statusPage struct {
	Order      orderstatus.Projection
	Panel      orderstatus.Panel
	BadgeLabel string
	ToggleURL  string
	LiveURL    string
	Photos     []photoLink
}

type photoPage struct {
	Number   int
	Count    int
	Src      string
	PrevURL  string
	NextURL  string
	CloseURL string
}

func statusPath(orderID string) string {
	return "/status/" + url.PathEscape(orderID)
}

func photoPath(orderID string, i int) string {
	return fmt.Sprintf("%s/photos/%d", statusPath(orderID), i)
}

// load returns the projection for {orderId}, or renders the not-found page
// and reports false.
func (h *StatusPageHandler) load(w http.ResponseWriter, r *http.Request) (orderstatus.Projection, bool) {
	orderID := chi.URLParam(r, "orderId")
	order, err := h.store.GetOrderByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			render(w, http.StatusNotFound, "notfound", orderID)
			return orderstatus.Projection{}, false
		}
		logrus.WithError(err).WithField("order_id", orderID).Error("load status page")
		http.Error(w, "Terjadi kesalahan, coba lagi nanti", http.StatusInternalServerError)
		return orderstatus.Projection{}, false
	}
	return orderstatus.Project(toPublicOrder(order)), true
}

// Page renders the status page. ?collapsed=1 starts with the timeline
// panel collapsed.
func (h *StatusPageHandler) Page(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	var panel orderstatus.Panel
	toggle := statusPath(p.OrderID) + "?collapsed=1"
	if r.URL.Query().Get("collapsed") == "1" {
		panel.Toggle()
		toggle = statusPath(p.OrderID)
	}

	photos := make([]photoLink, len(p.Photos))
	for i, src := range p.Photos {
		photos[i] = photoLink{Number: i + 1, Src: src, Link: photoPath(p.OrderID, i)}
	}

	render(w, http.StatusOK, "status", statusPage{
		Order:      p,
		Panel:      panel,
		BadgeLabel: orderstatus.BadgeLabel(p.PaymentBadge),
		ToggleURL:  toggle,
		LiveURL:    "/ws/orders/" + url.PathEscape(p.OrderID),
		Photos:     photos,
	})
}

// Photo renders the lightbox open at photo {index}.
func (h *StatusPageHandler) Photo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	lb := orderstatus.NewLightbox(p.PhotoCount)
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || !lb.OpenAt(i) {
		http.NotFound(w, r)
		return
	}
	prev, next := lb.Neighbors(lb.Index())

	render(w, http.StatusOK, "photo", photoPage{
		Number:   lb.Index() + 1,
		Count:    lb.Len(),
		Src:      p.Photos[lb.Index()],
		PrevURL:  photoPath(p.OrderID, prev),
		NextURL:  photoPath(p.OrderID, next),
		CloseURL: statusPath(p.OrderID),
	})
}

func render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logrus.WithError(err).WithField("template", name).Error("render page")
		http.Error(w, "Terjadi kesalahan, coba lagi nanti", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
