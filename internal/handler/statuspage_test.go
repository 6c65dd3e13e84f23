package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kleen-pos/api/internal/handler"
	"github.com/kleen-pos/api/internal/ws"
)

func setupStatusPageRouter(t *testing.T) *chi.Mux {
	t.Helper()
	h := handler.NewStatusPageHandler(newMockOrderStore(demoOrder(t)))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func getPage(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestStatusPage(t *testing.T) {
	router := setupStatusPageRouter(t)

	rr := getPage(t, router, "/status/TZM251015091748056")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %s", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Priza",
		"Rabu, 15 Oktober 2025",
		"Rp 50.000",
		"BELUM LUNAS",
		"KLEEN Laundry &amp; General Cleaning",
		"https://wa.me/628119909933",
		"Cuci Lipat 1 hari",
		`data-state="expanded"`,
		"/status/TZM251015091748056/photos/2",
		"/ws/orders/TZM251015091748056",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestStatusPage_Collapsed(t *testing.T) {
	router := setupStatusPageRouter(t)

	body := getPage(t, router, "/status/TZM251015091748056?collapsed=1").Body.String()
	if !strings.Contains(body, `data-state="collapsed"`) {
		t.Error("panel should be collapsed")
	}
	if strings.Contains(body, "DianiMY") || strings.Contains(body, "Pengemasan") {
		t.Error("collapsed panel should hide timeline steps")
	}
	if !strings.Contains(body, "Lihat detail") {
		t.Error("collapsed panel should offer expand link")
	}
}

func TestStatusPage_NotFound(t *testing.T) {
	router := setupStatusPageRouter(t)

	rr := getPage(t, router, "/status/nonexistent-id")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Order tidak ditemukan") {
		t.Error("expected not-found page")
	}
}

func TestStatusPage_Photo(t *testing.T) {
	router := setupStatusPageRouter(t)

	tests := []struct {
		index      string
		wantStatus int
		wantPrev   string
		wantNext   string
	}{
		{"0", http.StatusOK, "/photos/2", "/photos/1"},
		{"2", http.StatusOK, "/photos/1", "/photos/0"},
		{"3", http.StatusNotFound, "", ""},
		{"-1", http.StatusNotFound, "", ""},
		{"x", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			rr := getPage(t, router, "/status/TZM251015091748056/photos/"+tt.index)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := rr.Body.String()
			prefix := `href="/status/TZM251015091748056`
			if !strings.Contains(body, `aria-label="Sebelumnya"`) || !strings.Contains(body, prefix+tt.wantPrev+`" aria-label="Sebelumnya"`) {
				t.Errorf("prev link should point to %s", tt.wantPrev)
			}
			if !strings.Contains(body, prefix+tt.wantNext+`" aria-label="Berikutnya"`) {
				t.Errorf("next link should point to %s", tt.wantNext)
			}
			if !strings.Contains(body, prefix+`" aria-label="Tutup"`) {
				t.Error("close link should return to the status page")
			}
		})
	}
}

// --- Live updates ---

type recordingHub struct {
	mu     sync.Mutex
	events map[string][]ws.Event
}

func (h *recordingHub) BroadcastToOrder(orderID string, event ws.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events == nil {
		h.events = map[string][]ws.Event{}
	}
	h.events[orderID] = append(h.events[orderID], event)
}

func TestOrderNotifier(t *testing.T) {
	hub := &recordingHub{}
	n := handler.NewOrderNotifier(hub)

	order := demoOrder(t)
	order.IsPaid = true
	n.OrderUpdated(order)

	events := hub.events["TZM251015091748056"]
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != ws.EventOrderUpdated {
		t.Errorf("type = %s", events[0].Type)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["orderId"] != "TZM251015091748056" || payload["isPaid"] != true {
		t.Errorf("payload = %v", payload)
	}
}

func TestLiveHandler_UnknownOrder(t *testing.T) {
	h := handler.NewLiveHandler(ws.NewHub(), newMockOrderStore())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := getPage(t, r, "/ws/orders/nonexistent-id")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
