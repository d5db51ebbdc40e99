//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/satyam-tomar/vending-machine-api/internal/adapters/memorystore"
	redis_a "github.com/satyam-tomar/vending-machine-api/internal/adapters/redis_adapter"
	"github.com/satyam-tomar/vending-machine-api/internal/core/services"
	"github.com/satyam-tomar/vending-machine-api/internal/handlers"
	"github.com/satyam-tomar/vending-machine-api/internal/handlers/middleware"
	"github.com/satyam-tomar/vending-machine-api/test/helpers"
)

type VendingE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testRedis *helpers.TestRedis
}

func (s *VendingE2ESuite) SetupSuite() {
	s.testRedis = helpers.SetupTestRedis(s.T())

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *VendingE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *VendingE2ESuite) TestCompleteVendingWorkflow() {
	// 1. Create a slot
	resp := s.makeRequest("POST", "/slots", map[string]interface{}{
		"code":     "W1",
		"capacity": 10,
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var slot map[string]interface{}
	s.decodeResponse(resp, &slot)
	slotID := slot["id"].(string)
	s.NotEmpty(slotID)

	// 2. Duplicate code is rejected
	resp = s.makeRequest("POST", "/slots", map[string]interface{}{
		"code":     "W1",
		"capacity": 5,
	})
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 3. Stock the slot
	resp = s.makeRequest("POST", fmt.Sprintf("/slots/%s/items", slotID), map[string]interface{}{
		"name":     "Cola",
		"price":    150,
		"quantity": 2,
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var item map[string]interface{}
	s.decodeResponse(resp, &item)
	itemID := item["id"].(string)

	// 4. Full view reflects the stock
	resp = s.makeRequest("GET", "/slots/full-view", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var view map[string]interface{}
	s.decodeResponse(resp, &view)
	s.Equal(float64(1), view["slot_count"])
	s.Equal(float64(2), view["total_items"])

	// 5. Underpaying is rejected with the required amount
	resp = s.makeRequest("POST", "/purchase", map[string]interface{}{
		"item_id":       itemID,
		"cash_inserted": 100,
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var rejection map[string]interface{}
	s.decodeResponse(resp, &rejection)
	s.Equal(float64(150), rejection["required"])

	// 6. Buy both units
	for i := 0; i < 2; i++ {
		resp = s.makeRequest("POST", "/purchase", map[string]interface{}{
			"item_id":       itemID,
			"cash_inserted": 200,
		})
		s.Equal(http.StatusOK, resp.StatusCode)

		var receipt map[string]interface{}
		s.decodeResponse(resp, &receipt)
		s.Equal("Cola", receipt["item"])
		s.Equal(float64(50), receipt["change_returned"])
	}

	// 7. Third attempt is sold out
	resp = s.makeRequest("POST", "/purchase", map[string]interface{}{
		"item_id":       itemID,
		"cash_inserted": 200,
	})
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 8. Sold-out row is still visible at zero quantity
	resp = s.makeRequest("GET", fmt.Sprintf("/items/%s", itemID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var soldOut map[string]interface{}
	s.decodeResponse(resp, &soldOut)
	s.Equal(float64(0), soldOut["quantity"])

	// 9. Occupied slot cannot be deleted
	resp = s.makeRequest("DELETE", fmt.Sprintf("/slots/%s", slotID), nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 10. Clear the slot, then delete it
	resp = s.makeRequest("DELETE", fmt.Sprintf("/slots/%s/items", slotID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.makeRequest("DELETE", fmt.Sprintf("/slots/%s", slotID), nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *VendingE2ESuite) TestConcurrentPurchasesNeverOversell() {
	resp := s.makeRequest("POST", "/slots", map[string]interface{}{
		"code":     "W2",
		"capacity": 10,
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var slot map[string]interface{}
	s.decodeResponse(resp, &slot)
	slotID := slot["id"].(string)

	resp = s.makeRequest("POST", fmt.Sprintf("/slots/%s/items", slotID), map[string]interface{}{
		"name":     "Chips",
		"price":    200,
		"quantity": 3,
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var item map[string]interface{}
	s.decodeResponse(resp, &item)
	itemID := item["id"].(string)

	const buyers = 8
	results := make(chan int, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.makeRequest("POST", "/purchase", map[string]interface{}{
				"item_id":       itemID,
				"cash_inserted": 200,
			})
			resp.Body.Close()
			results <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	conflicted := 0
	for code := range results {
		switch code {
		case http.StatusOK:
			succeeded++
		case http.StatusConflict:
			conflicted++
		}
	}

	s.Equal(3, succeeded)
	s.Equal(buyers-3, conflicted)
}

func (s *VendingE2ESuite) TestChangeBreakdownEndpoint() {
	resp := s.makeRequest("GET", "/purchase/change/287", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var breakdown map[string]interface{}
	s.decodeResponse(resp, &breakdown)
	s.Equal(float64(287), breakdown["change"])
}

// Helper methods

func (s *VendingE2ESuite) startTestServer() *httptest.Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memorystore.New(log)
	cache := redis_a.NewCache(s.testRedis.Client, 5*time.Minute, log)

	opts := services.Options{
		MaxSlots:      100,
		Denominations: []int64{500, 200, 100, 50, 20, 10, 5, 1},
	}

	slotHandler := handlers.NewSlotHandler(services.NewSlotService(store, cache, opts, log), log)
	itemHandler := handlers.NewItemHandler(services.NewInventoryService(store, cache, nil, opts, log), log)
	purchaseHandler := handlers.NewPurchaseHandler(services.NewPurchaseService(store, cache, nil, opts, log), log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/slots", slotHandler.CreateSlot)
	mux.HandleFunc("GET /api/v1/slots", slotHandler.ListSlots)
	mux.HandleFunc("GET /api/v1/slots/full-view", slotHandler.FullView)
	mux.HandleFunc("DELETE /api/v1/slots/{id}", slotHandler.DeleteSlot)
	mux.HandleFunc("POST /api/v1/slots/{id}/items", itemHandler.AddItem)
	mux.HandleFunc("POST /api/v1/slots/{id}/items/bulk", itemHandler.AddBulk)
	mux.HandleFunc("GET /api/v1/slots/{id}/items", itemHandler.ListItems)
	mux.HandleFunc("DELETE /api/v1/slots/{id}/items/{itemId}", itemHandler.RemoveItem)
	mux.HandleFunc("DELETE /api/v1/slots/{id}/items", itemHandler.RemoveBulk)
	mux.HandleFunc("GET /api/v1/items/{id}", itemHandler.GetItem)
	mux.HandleFunc("PATCH /api/v1/items/{id}/price", itemHandler.UpdatePrice)
	mux.HandleFunc("POST /api/v1/purchase", purchaseHandler.Purchase)
	mux.HandleFunc("GET /api/v1/purchase/change/{amount}", purchaseHandler.ChangeBreakdown)

	var handler http.Handler = mux
	handler = middleware.Logger(log)(handler)
	handler = middleware.Recovery(log)(handler)
	handler = middleware.RequestID(handler)

	return httptest.NewServer(handler)
}

func (s *VendingE2ESuite) makeRequest(method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.NoError(err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.NoError(err)

	return resp
}

func (s *VendingE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(v)
	s.NoError(err)
}

func TestVendingE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(VendingE2ESuite))
}
