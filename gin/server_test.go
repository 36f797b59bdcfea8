package gin

import (
	"encoding/json"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/shopspring/decimal"
	"net/http"
	"net/http/httptest"
	"testing"
)

type statusProviderMock struct {
	status *spot.TraderStatus
}

func (spm *statusProviderMock) Status() *spot.TraderStatus {
	return spm.status
}

func TestControlServer_Status(t *testing.T) {
	provider := &statusProviderMock{
		status: &spot.TraderStatus{
			LastRound: &spot.RoundSummary{
				ID:           "round-1",
				Number:       3,
				Transactions: 2,
			},
			Cash:          decimal.RequireFromString("125.5"),
			OpenPositions: 1,
			OpenCost:      decimal.RequireFromString("20"),
		},
	}

	server := NewControlServer(testLogger{}, ":0", provider, func() {})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/status", nil)
	server.router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status code: [%v]", recorder.Code)
	}

	var response struct {
		Cash          string
		OpenPositions int
		LastRound     struct {
			ID           string
			Transactions int
		}
	}

	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}

	if response.Cash != "125.5" {
		t.Errorf(
			"unexpected cash\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"125.5",
			response.Cash,
		)
	}

	if response.OpenPositions != 1 {
		t.Errorf("unexpected open positions: [%v]", response.OpenPositions)
	}

	if response.LastRound.ID != "round-1" || response.LastRound.Transactions != 2 {
		t.Errorf("unexpected last round: [%+v]", response.LastRound)
	}
}

func TestControlServer_Stop(t *testing.T) {
	stops := 0
	server := NewControlServer(
		testLogger{},
		":0",
		&statusProviderMock{status: &spot.TraderStatus{}},
		func() { stops++ },
	)

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/stop", nil)
		server.router.ServeHTTP(recorder, request)

		if recorder.Code != http.StatusAccepted {
			t.Errorf("unexpected status code: [%v]", recorder.Code)
		}
	}

	if stops != 1 {
		t.Errorf(
			"unexpected stop calls\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			1,
			stops,
		)
	}
}

func TestControlServer_Health(t *testing.T) {
	server := NewControlServer(
		testLogger{},
		":0",
		&statusProviderMock{status: &spot.TraderStatus{}},
		func() {},
	)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("unexpected status code: [%v]", recorder.Code)
	}
}
