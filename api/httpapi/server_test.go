package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/book"
	"matchbook/infra/sequence"
	"matchbook/pricing"
	"matchbook/service"
)

func newTestServer(t *testing.T) (*gin.Engine, *Server, *service.BookService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conv, err := pricing.NewConverter("0.01")
	require.NoError(t, err)

	svc := service.New(book.NewBook(), sequence.New(0), nil, nil, nil, nil)
	srv := NewServer(svc, conv, nil)

	engine := gin.New()
	srv.RegisterRoutes(engine)
	return engine, srv, svc
}

func doJSON(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	engine, _, _ := newTestServer(t)
	rec := doJSON(engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAddAndQueryBook(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doJSON(engine, http.MethodPost, "/api/v1/orders",
		`{"side":"buy","price":"100.05","qty":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"seq":1`)

	rec = doJSON(engine, http.MethodPost, "/api/v1/orders",
		`{"side":"sell","price":"100.25","qty":20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(engine, http.MethodGet, "/api/v1/book", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"best_bid"`)
	assert.Contains(t, body, `"100.05"`)
	assert.Contains(t, body, `"best_ask"`)
	assert.Contains(t, body, `"100.25"`)
	assert.Contains(t, body, `"spread":"0.2"`)
}

func TestAddOrderValidation(t *testing.T) {
	engine, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad side", `{"side":"hold","price":"100.00","qty":10}`},
		{"off-tick price", `{"side":"buy","price":"100.005","qty":10}`},
		{"negative price", `{"side":"buy","price":"-1","qty":10}`},
		{"missing qty", `{"side":"buy","price":"100.00"}`},
		{"not json", `side=buy`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(engine, http.MethodPost, "/api/v1/orders", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRemoveOrderErrors(t *testing.T) {
	engine, _, _ := newTestServer(t)

	// Nothing resting yet.
	rec := doJSON(engine, http.MethodDelete, "/api/v1/orders",
		`{"side":"buy","price":"100.00","qty":10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(engine, http.MethodPost, "/api/v1/orders",
		`{"side":"buy","price":"100.00","qty":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// More than rests.
	rec = doJSON(engine, http.MethodDelete, "/api/v1/orders",
		`{"side":"buy","price":"100.00","qty":11}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(engine, http.MethodDelete, "/api/v1/orders",
		`{"side":"buy","price":"100.00","qty":10}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMatchEndpoint(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doJSON(engine, http.MethodPost, "/api/v1/orders",
		`{"side":"buy","price":"100.10","qty":50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(engine, http.MethodPost, "/api/v1/orders",
		`{"side":"sell","price":"100.00","qty":30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(engine, http.MethodPost, "/api/v1/match", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"qty":30`)
	assert.Contains(t, body, `"100"`, "executes at the resting ask price")
}

func TestDepthEndpoint(t *testing.T) {
	engine, _, _ := newTestServer(t)

	for _, o := range []string{
		`{"side":"buy","price":"100.00","qty":10}`,
		`{"side":"buy","price":"99.90","qty":10}`,
		`{"side":"sell","price":"100.10","qty":10}`,
	} {
		rec := doJSON(engine, http.MethodPost, "/api/v1/orders", o)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(engine, http.MethodGet, "/api/v1/book/depth?levels=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"100"`)
	assert.NotContains(t, body, `"99.9"`, "depth bounded to one level per side")

	rec = doJSON(engine, http.MethodGet, "/api/v1/book/depth?levels=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(engine, http.MethodGet, "/api/v1/book/depth?levels=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWSDepthStream(t *testing.T) {
	engine, srv, svc := newTestServer(t)

	ts := httptest.NewServer(engine)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/depth"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	// Registration happens just after the handshake; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	seq, err := svc.Add(book.Bid, 10000, 50)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"bids"`)
	assert.Contains(t, string(msg), `"100"`)
	// The stream stamps each view so subscribers can drop stale ones.
	assert.Contains(t, string(msg), fmt.Sprintf(`"seq":%d`, seq))
}
