package stream

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/passes"
	"github.com/caktalfraktal/ISS-Pass-Tracker-Northern-Ontario/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 2,
		KeepaliveInterval:  30 * time.Second,
		DefaultLatDeg:      46.5,
		DefaultLonDeg:      -81.0,
		DefaultAltM:        260,
		MaxHorizonHours:    8760,
		NORADID:            25544,
		Search:             passes.DefaultConfig(),
	}
}

func loadedStore(t *testing.T) *tle.Store {
	t.Helper()
	entries, err := tle.Parse(strings.NewReader("ISS (ZARYA)\n"+issLine1+"\n"+issLine2+"\n"), testLogger())
	if err != nil {
		t.Fatalf("parsing fixture TLE: %v", err)
	}
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Now(), entries))
	return store
}

func TestHandlePassesNoDataset(t *testing.T) {
	h := NewHandler(tle.NewStore(), testConfig(), testLogger())
	rec := httptest.NewRecorder()
	h.HandlePasses(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stream/passes", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandlePassesBadParams(t *testing.T) {
	h := NewHandler(loadedStore(t), testConfig(), testLogger())
	tests := []string{
		"/api/v1/stream/passes?lat=95",
		"/api/v1/stream/passes?lon=200",
		"/api/v1/stream/passes?alt=99999",
		"/api/v1/stream/passes?start=yesterday",
		"/api/v1/stream/passes?horizon_hours=0",
		"/api/v1/stream/passes?horizon_hours=999999",
	}
	for _, url := range tests {
		rec := httptest.NewRecorder()
		h.HandlePasses(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

// A short real search: the stream must open with a metadata message and end
// with a complete message regardless of how many passes occur in the window.
func TestHandlePassesStreamsToCompletion(t *testing.T) {
	h := NewHandler(loadedStore(t), testConfig(), testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/stream/passes?start=2025-02-14T12:00:00Z&horizon_hours=3", nil)
	h.HandlePasses(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "retry: ") {
		t.Error("missing retry hint")
	}
	metaIdx := strings.Index(body, `"type":"metadata"`)
	doneIdx := strings.Index(body, `"type":"complete"`)
	if metaIdx < 0 {
		t.Fatalf("missing metadata message:\n%s", body)
	}
	if doneIdx < 0 {
		t.Fatalf("missing complete message:\n%s", body)
	}
	if metaIdx > doneIdx {
		t.Error("metadata must precede completion")
	}
	if !strings.Contains(body, `"norad_id":25544`) {
		t.Error("metadata missing catalog number")
	}
}

func TestStreamLimiterPerIP(t *testing.T) {
	l := newStreamLimiter(2)

	if !l.acquire("1.2.3.4") || !l.acquire("1.2.3.4") {
		t.Fatal("first two acquisitions should succeed")
	}
	if l.acquire("1.2.3.4") {
		t.Error("third acquisition for the same IP should fail")
	}
	if !l.acquire("5.6.7.8") {
		t.Error("different IP should not be affected")
	}

	l.release("1.2.3.4")
	if !l.acquire("1.2.3.4") {
		t.Error("acquisition after release should succeed")
	}
	if got := l.count("1.2.3.4"); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestStreamLimiterGlobalCap(t *testing.T) {
	l := newStreamLimiter(5)
	l.maxTotal = 3

	ips := []string{"a", "b", "c"}
	for _, ip := range ips {
		if !l.acquire(ip) {
			t.Fatalf("acquire(%s) failed under the global cap", ip)
		}
	}
	if l.acquire("d") {
		t.Error("acquisition beyond the global cap should fail")
	}
	l.release("a")
	if !l.acquire("d") {
		t.Error("acquisition after release should succeed")
	}
}
