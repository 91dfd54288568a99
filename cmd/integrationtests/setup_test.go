package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/closer"
	"auction-engine/internal/events"
	model "auction-engine/internal/models"
	"auction-engine/internal/realtime"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/internal/settlement"

	"github.com/gin-gonic/gin"
)

// testClock starts at a fixed instant and advances a millisecond per reading so bids
// placed by consecutive requests never share a timestamp
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestEnv is the full stack wired the way the serve command wires it
type TestEnv struct {
	Router    *gin.Engine
	Repo      *repository.MemoryRepo
	Hub       *realtime.Hub
	Closer    *closer.Closer
	Resources *settlement.Resources
	Clock     *testClock
}

// SetupTestEnv initializes the router with an in-memory repository seeded with users.
func SetupTestEnv(users ...string) *TestEnv {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, id := range users {
		repo.AddUser(model.User{UserID: id, Username: id})
	}

	clock := newTestClock()
	bus := events.NewBus()
	hub := realtime.NewHub()
	bus.Subscribe("realtime", hub.Handle)

	service := bidding.NewBiddingService(repo, bidding.WithPublisher(bus), bidding.WithClock(clock.Now))
	resources := settlement.NewResources()
	auctionCloser := closer.NewCloser(repo, settlement.NewDispatcher(resources, resources, resources),
		closer.WithPublisher(bus), closer.WithClock(clock.Now))

	return &TestEnv{
		Router:    server.SetupRouter(service, hub, nil),
		Repo:      repo,
		Hub:       hub,
		Closer:    auctionCloser,
		Resources: resources,
		Clock:     clock,
	}
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// CreateAuction lists an auction over HTTP and returns its id
func (e *TestEnv) CreateAuction(t *testing.T, body string) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.Router, "POST", "/auctions", body)
	if w.Code != 201 {
		t.Fatalf("create auction: status %d body %s", w.Code, w.Body.String())
	}
	return resp["data"].(map[string]any)["auction_id"].(string)
}
