package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"divvy/internal/services"
	"divvy/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	ledger := services.NewLedgerService(repo, nil)
	t.Cleanup(func() { ledger.Close() })

	srv := NewServer(":0", ledger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, actor string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp, decoded
}

func createGroupWithMembers(t *testing.T, ts *httptest.Server, creator string, members ...string) string {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/api/groups", creator,
		map[string]any{"name": "Trip"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create group: status %d, body %v", resp.StatusCode, body)
	}
	groupID := body["id"].(string)
	for _, m := range members {
		resp, body := doJSON(t, ts, http.MethodPost, "/api/groups/"+groupID+"/members", creator,
			map[string]any{"user_id": m})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add member %s: status %d, body %v", m, resp.StatusCode, body)
		}
	}
	return groupID
}

func recordEqualExpense(t *testing.T, ts *httptest.Server, groupID, payer string, cents int64, participants []string) map[string]any {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/api/groups/"+groupID+"/expenses", payer,
		map[string]any{
			"description":     "hotel",
			"amount_cents":    cents,
			"category":        "accommodation",
			"date":            "2026-03-14",
			"participant_ids": participants,
			"split_mode":      "equal",
		})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record expense: status %d, body %v", resp.StatusCode, body)
	}
	return body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
}

func TestGroupLifecycle(t *testing.T) {
	ts := newTestServer(t)
	groupID := createGroupWithMembers(t, ts, "alice", "bob")

	resp, body := doJSON(t, ts, http.MethodGet, "/api/groups/"+groupID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get group: status %d", resp.StatusCode)
	}
	members := body["member_ids"].([]any)
	if len(members) != 2 {
		t.Errorf("members: got %v", members)
	}
	if body["created_by"] != "alice" {
		t.Errorf("created_by: got %v", body["created_by"])
	}

	t.Run("missing actor header", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/groups", "", map[string]any{"name": "x"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status %d, want 400", resp.StatusCode)
		}
	})

	t.Run("duplicate member conflicts", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/groups/"+groupID+"/members", "alice",
			map[string]any{"user_id": "bob"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status %d, want 409", resp.StatusCode)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodGet, "/api/groups/missing", "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status %d, want 404", resp.StatusCode)
		}
	})
}

func TestRecordExpenseAndBalances(t *testing.T) {
	ts := newTestServer(t)
	groupID := createGroupWithMembers(t, ts, "alice", "bob", "carol")

	expense := recordEqualExpense(t, ts, groupID, "alice", 9000, []string{"alice", "bob", "carol"})
	splits := expense["splits"].([]any)
	if len(splits) != 3 {
		t.Fatalf("got %d splits", len(splits))
	}
	for _, raw := range splits {
		s := raw.(map[string]any)
		if s["amount_cents"].(float64) != 3000 {
			t.Errorf("split %v: got %v", s["user_id"], s["amount_cents"])
		}
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/api/groups/"+groupID+"/balances", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balances: status %d", resp.StatusCode)
	}
	want := map[string]float64{"alice": 6000, "bob": -3000, "carol": -3000}
	for _, raw := range body["balances"].([]any) {
		b := raw.(map[string]any)
		user := b["user_id"].(string)
		if b["net_cents"].(float64) != want[user] {
			t.Errorf("%s: got %v, want %v", user, b["net_cents"], want[user])
		}
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/users/alice/balance", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user balance: status %d", resp.StatusCode)
	}
	if body["net_cents"].(float64) != 6000 {
		t.Errorf("aggregate: got %v", body["net_cents"])
	}
}

func TestRecordExpenseErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	groupID := createGroupWithMembers(t, ts, "alice", "bob")

	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{
			name: "custom split mismatch",
			body: map[string]any{
				"description":     "dinner",
				"amount_cents":    10000,
				"participant_ids": []string{"alice", "bob"},
				"split_mode":      "custom",
				"custom_amounts":  map[string]int64{"alice": 5000, "bob": 4000},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "non-member participant",
			body: map[string]any{
				"description":     "dinner",
				"amount_cents":    1000,
				"participant_ids": []string{"alice", "mallory"},
			},
			status: http.StatusForbidden,
		},
		{
			name: "zero amount",
			body: map[string]any{
				"description":     "dinner",
				"amount_cents":    0,
				"participant_ids": []string{"alice"},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "empty participants",
			body: map[string]any{
				"description":     "dinner",
				"amount_cents":    1000,
				"participant_ids": []string{},
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown field rejected",
			body: map[string]any{
				"description":     "dinner",
				"amount_cents":    1000,
				"participant_ids": []string{"alice"},
				"tip_cents":       100,
			},
			status: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, ts, http.MethodPost, "/api/groups/"+groupID+"/expenses", "alice", tc.body)
			if resp.StatusCode != tc.status {
				t.Errorf("status %d, want %d (body %v)", resp.StatusCode, tc.status, body)
			}
		})
	}
}

func TestDecimalAmountAccepted(t *testing.T) {
	ts := newTestServer(t)
	groupID := createGroupWithMembers(t, ts, "alice", "bob")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/groups/"+groupID+"/expenses", "alice",
		map[string]any{
			"description":     "coffee",
			"amount":          "12.34",
			"participant_ids": []string{"alice", "bob"},
		})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, body %v", resp.StatusCode, body)
	}
	if body["amount_cents"].(float64) != 1234 {
		t.Errorf("amount: got %v", body["amount_cents"])
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	ts := newTestServer(t)
	groupID := createGroupWithMembers(t, ts, "alice", "bob", "carol")
	expense := recordEqualExpense(t, ts, groupID, "alice", 9000, []string{"alice", "bob", "carol"})
	expenseID := expense["id"].(string)

	t.Run("non-payer edit forbidden", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodPatch, "/api/expenses/"+expenseID, "bob",
			map[string]any{"amount_cents": 12000})
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status %d, want 403", resp.StatusCode)
		}
	})

	t.Run("payer edit rescales", func(t *testing.T) {
		resp, body := doJSON(t, ts, http.MethodPatch, "/api/expenses/"+expenseID, "alice",
			map[string]any{"amount_cents": 12000})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d, body %v", resp.StatusCode, body)
		}
		if body["amount_cents"].(float64) != 12000 {
			t.Errorf("amount: got %v", body["amount_cents"])
		}
		var sum float64
		for _, raw := range body["splits"].([]any) {
			sum += raw.(map[string]any)["amount_cents"].(float64)
		}
		if sum != 12000 {
			t.Errorf("splits sum to %v", sum)
		}
		if body["version"].(float64) != 2 {
			t.Errorf("version: got %v", body["version"])
		}
	})

	t.Run("non-payer delete forbidden", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodDelete, "/api/expenses/"+expenseID, "carol", nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status %d, want 403", resp.StatusCode)
		}
	})

	t.Run("payer delete restores balances", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodDelete, "/api/expenses/"+expenseID, "alice", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status %d, want 204", resp.StatusCode)
		}

		_, body := doJSON(t, ts, http.MethodGet, "/api/groups/"+groupID+"/balances", "", nil)
		for _, raw := range body["balances"].([]any) {
			b := raw.(map[string]any)
			if b["net_cents"].(float64) != 0 {
				t.Errorf("%v: got %v after delete", b["user_id"], b["net_cents"])
			}
		}
	})

	t.Run("deleted expense is gone", func(t *testing.T) {
		resp, _ := doJSON(t, ts, http.MethodGet, "/api/expenses/"+expenseID, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status %d, want 404", resp.StatusCode)
		}
	})
}

func TestDeleteGroupEndpoint(t *testing.T) {
	ts := newTestServer(t)
	groupID := createGroupWithMembers(t, ts, "alice", "bob")

	resp, _ := doJSON(t, ts, http.MethodDelete, "/api/groups/"+groupID, "bob", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-creator delete: status %d, want 403", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/groups/"+groupID, "alice", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("creator delete: status %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/groups/"+groupID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted group: status %d, want 404", resp.StatusCode)
	}
}
