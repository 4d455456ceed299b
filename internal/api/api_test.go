package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/due"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/mail"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/users"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	users *users.Service
	token string
}

func setupTestServer(t *testing.T, opts ...func(*Deps)) *testServer {
	t.Helper()
	return setupTestServerOn(t, store.NewTestRepository(t), opts...)
}

func setupTestServerOn(t *testing.T, repo *store.Repository, opts ...func(*Deps)) *testServer {
	t.Helper()
	bus := events.NewLocal(64)
	t.Cleanup(func() { bus.Close() })

	rec := activity.NewRecorder(repo, bus, nil)
	userSvc := users.NewService(repo, rec, &mail.Recorder{}, nil)
	userSvc.HashCost = bcrypt.MinCost
	invSvc := inventory.NewService(repo, rec, nil)
	invSvc.Location = time.UTC
	dueSvc := due.NewService(repo)
	dueSvc.Location = time.UTC

	deps := Deps{
		Repo:       repo,
		Inventory:  invSvc,
		Users:      userSvc,
		Activity:   rec,
		Due:        dueSvc,
		Events:     bus,
		JWTSecret:  testJWTSecret,
		Location:   time.UTC,
		LoginRate:  rate.Inf,
		LoginBurst: 100,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)

	// Create the super admin and get a token.
	if _, err := userSvc.Bootstrap(context.Background(), "Root", "root@example.com", "rootpassword"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	ts := &testServer{Server: server, users: userSvc}
	ts.token = ts.login(t, "root@example.com", "rootpassword")
	return ts
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := ts.do(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}
	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	req, err := authRequest(method, ts.URL+path, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (ts *testServer) expect(t *testing.T, method, path, token string, body any, status int, out any) {
	t.Helper()
	resp := ts.do(t, method, path, token, body)
	defer resp.Body.Close()
	if resp.StatusCode != status {
		var e map[string]string
		json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("%s %s: expected %d, got %d (%v)", method, path, status, resp.StatusCode, e)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (ts *testServer) createMember(t *testing.T, email string) string {
	t.Helper()
	ts.expect(t, "POST", "/api/users", ts.token, users.Input{
		Name: "Member", Email: email, Password: "memberpass",
	}, http.StatusCreated, nil)
	return ts.login(t, email, "memberpass")
}

func sampleItem(name string, stock int) inventory.ItemInput {
	return inventory.ItemInput{
		Name:        name,
		Category:    "Gadgets",
		Description: "A sample item for API tests",
		Stock:       stock,
	}
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	// Test invalid credentials.
	ts.expect(t, "POST", "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "wrong"},
		http.StatusUnauthorized, nil)

	// Pending accounts cannot sign in.
	ts.expect(t, "POST", "/api/auth/signup", "", signupRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"},
		http.StatusCreated, nil)
	ts.expect(t, "POST", "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "password1"},
		http.StatusForbidden, nil)
}

func TestSignupApproval(t *testing.T) {
	ts := setupTestServer(t)

	var u model.User
	ts.expect(t, "POST", "/api/auth/signup", "", signupRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"},
		http.StatusCreated, &u)

	var pending []model.User
	ts.expect(t, "GET", "/api/users/pending", ts.token, nil, http.StatusOK, &pending)
	if len(pending) != 1 || pending[0].ID != u.ID {
		t.Fatalf("expected %s pending, got %v", u.ID, pending)
	}

	ts.expect(t, "POST", "/api/users/"+u.ID+"/approve", ts.token, nil, http.StatusOK, nil)
	token := ts.login(t, "ana@example.com", "password1")

	var me model.User
	ts.expect(t, "GET", "/api/auth/me", token, nil, http.StatusOK, &me)
	if me.Role != model.RoleMember {
		t.Errorf("expected %q, got %q", model.RoleMember, me.Role)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	resp, _ := http.Get(ts.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	forged, _ := auth.GenerateToken("other-secret", 0, "USR-1", "X", model.RoleSuperAdmin)
	ts.expect(t, "GET", "/api/items", forged, nil, http.StatusUnauthorized, nil)
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)
	memberToken := ts.createMember(t, "member@example.com")

	// Members can read but not create items.
	ts.expect(t, "GET", "/api/items", memberToken, nil, http.StatusOK, nil)
	ts.expect(t, "POST", "/api/items", memberToken, sampleItem("Test item", 1), http.StatusForbidden, nil)

	// Members cannot list users or logs.
	ts.expect(t, "GET", "/api/users", memberToken, nil, http.StatusForbidden, nil)
	ts.expect(t, "GET", "/api/logs", memberToken, nil, http.StatusForbidden, nil)
}

func TestRoleChangeAppliesImmediately(t *testing.T) {
	ts := setupTestServer(t)
	memberToken := ts.createMember(t, "member@example.com")

	var list []model.User
	ts.expect(t, "GET", "/api/users", ts.token, nil, http.StatusOK, &list)
	var member model.User
	for _, u := range list {
		if u.Email == "member@example.com" {
			member = u
		}
	}

	ts.expect(t, "PUT", "/api/users/"+member.ID, ts.token, users.Input{
		Name: member.Name, Email: member.Email, Role: model.RoleAdmin, Status: model.UserStatusActive,
	}, http.StatusOK, nil)
	ts.expect(t, "POST", "/api/items", memberToken, sampleItem("Promoted item", 1), http.StatusCreated, nil)

	ts.expect(t, "PUT", "/api/users/"+member.ID, ts.token, users.Input{
		Name: member.Name, Email: member.Email, Role: model.RoleAdmin, Status: model.UserStatusInactive,
	}, http.StatusOK, nil)
	ts.expect(t, "GET", "/api/items", memberToken, nil, http.StatusUnauthorized, nil)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)

	ts.expect(t, "POST", "/api/auth/logout", ts.token, nil, http.StatusOK, nil)
	ts.expect(t, "GET", "/api/auth/me", ts.token, nil, http.StatusUnauthorized, nil)

	// A fresh login still works.
	token := ts.login(t, "root@example.com", "rootpassword")
	ts.expect(t, "GET", "/api/auth/me", token, nil, http.StatusOK, nil)
}

func TestItemsAPIFlow(t *testing.T) {
	ts := setupTestServer(t)

	var item model.Item
	ts.expect(t, "POST", "/api/items", ts.token, sampleItem("Soldering iron", 25), http.StatusCreated, &item)
	if item.Status != model.ItemStatusInStock {
		t.Errorf("expected %q, got %q", model.ItemStatusInStock, item.Status)
	}

	var items []model.Item
	ts.expect(t, "GET", "/api/items?search=solder", ts.token, nil, http.StatusOK, &items)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	returnDate := time.Now().UTC().AddDate(0, 0, 3).Format(time.DateOnly)
	var borrowed transactionResponse
	ts.expect(t, "POST", "/api/items/"+item.ID+"/borrow", ts.token, borrowRequest{
		Quantity: 10, BorrowerName: "Maja", BorrowerPhone: "040 123 456", ReturnDate: returnDate,
	}, http.StatusCreated, &borrowed)
	if borrowed.Item.Stock != 15 || borrowed.Item.Status != model.ItemStatusLowStock {
		t.Errorf("expected 15 %s, got %d %s", model.ItemStatusLowStock, borrowed.Item.Stock, borrowed.Item.Status)
	}

	// Over-borrowing is a conflict and changes nothing.
	ts.expect(t, "POST", "/api/items/"+item.ID+"/borrow", ts.token, borrowRequest{
		Quantity: 16, BorrowerName: "Maja", BorrowerPhone: "040 123 456", ReturnDate: returnDate,
	}, http.StatusConflict, nil)

	var dueItems []model.DueItem
	ts.expect(t, "GET", "/api/due-items", ts.token, nil, http.StatusOK, &dueItems)
	if len(dueItems) != 1 || dueItems[0].QuantityDue != 10 {
		t.Fatalf("expected one due item with 10 outstanding, got %+v", dueItems)
	}

	ts.expect(t, "POST", "/api/items/"+item.ID+"/return", ts.token, returnRequest{
		BorrowID: borrowed.Transaction.ID, Quantity: 11,
	}, http.StatusBadRequest, nil)
	ts.expect(t, "POST", "/api/items/"+item.ID+"/return", ts.token, returnRequest{
		BorrowID: borrowed.Transaction.ID,
	}, http.StatusCreated, nil)

	var txs []model.Transaction
	ts.expect(t, "GET", "/api/items/"+item.ID+"/transactions", ts.token, nil, http.StatusOK, &txs)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}

	ts.expect(t, "GET", "/api/due-items", ts.token, nil, http.StatusOK, &dueItems)
	if len(dueItems) != 0 {
		t.Errorf("expected no due items, got %d", len(dueItems))
	}

	var dash dashboardResponse
	ts.expect(t, "GET", "/api/dashboard", ts.token, nil, http.StatusOK, &dash)
	if dash.Summary.TotalItems != 1 || len(dash.Recent) != 2 {
		t.Errorf("unexpected dashboard: %+v", dash)
	}

	ts.expect(t, "DELETE", "/api/items/"+item.ID, ts.token, nil, http.StatusBadRequest, nil)
	ts.expect(t, "DELETE", "/api/items/"+item.ID+"?confirm=delete", ts.token, nil, http.StatusOK, nil)
	ts.expect(t, "GET", "/api/items/"+item.ID, ts.token, nil, http.StatusNotFound, nil)
}

func TestStockEditRequiresNote(t *testing.T) {
	ts := setupTestServer(t)

	var item model.Item
	ts.expect(t, "POST", "/api/items", ts.token, sampleItem("Oscilloscope", 5), http.StatusCreated, &item)
	ts.expect(t, "PUT", "/api/items/"+item.ID+"/stock", ts.token, setStockRequest{Stock: 30}, http.StatusBadRequest, nil)
	ts.expect(t, "PUT", "/api/items/"+item.ID+"/stock", ts.token, setStockRequest{Stock: 30, Note: "Delivery"}, http.StatusOK, &item)
	if item.Stock != 30 {
		t.Errorf("expected stock 30, got %d", item.Stock)
	}
}

func TestCategoriesRename(t *testing.T) {
	ts := setupTestServer(t)
	ts.expect(t, "POST", "/api/items", ts.token, sampleItem("Gizmo", 5), http.StatusCreated, nil)

	var cats []model.Category
	ts.expect(t, "GET", "/api/categories", ts.token, nil, http.StatusOK, &cats)
	for i := range cats {
		if cats[i].Name == "Gadgets" {
			cats[i].Name = "Devices"
		}
	}
	ts.expect(t, "PUT", "/api/categories", ts.token, cats, http.StatusOK, nil)

	var items []model.Item
	ts.expect(t, "GET", "/api/items?category=Devices", ts.token, nil, http.StatusOK, &items)
	if len(items) != 1 {
		t.Errorf("expected item to follow the rename, got %d items", len(items))
	}
}

func TestLogsAdministration(t *testing.T) {
	ts := setupTestServer(t)
	ts.createMember(t, "second@example.com")

	var logs []model.LogEntry
	ts.expect(t, "GET", "/api/logs", ts.token, nil, http.StatusOK, &logs)
	if len(logs) == 0 {
		t.Fatal("expected log entries")
	}
	id := logs[0].ID

	ts.expect(t, "PUT", "/api/logs/"+id+"/hidden", ts.token, nil, http.StatusOK, nil)

	var visible []model.LogEntry
	ts.expect(t, "GET", "/api/logs", ts.token, nil, http.StatusOK, &visible)
	if len(visible) != len(logs)-1 {
		t.Errorf("expected hidden entry to be filtered, got %d of %d", len(visible), len(logs))
	}

	ts.expect(t, "DELETE", "/api/logs/"+id, ts.token, nil, http.StatusBadRequest, nil)
	ts.expect(t, "DELETE", "/api/logs/"+id+"?confirm=delete", ts.token, nil, http.StatusOK, nil)
}

func TestValidateDescriptionUnavailable(t *testing.T) {
	ts := setupTestServer(t)
	ts.expect(t, "POST", "/api/items/validate-description", ts.token, map[string]string{
		"itemDescription": "A drone", "category": "Robotics",
	}, http.StatusServiceUnavailable, nil)
}

func TestQuotaExceeded(t *testing.T) {
	repo := store.New(kv.NewSQLite(db.NewTestDB(t), 4000), nil)
	ts := setupTestServerOn(t, repo)

	in := sampleItem("Huge item", 1)
	in.Description = strings.Repeat("x", 5000)
	ts.expect(t, "POST", "/api/items", ts.token, in, http.StatusInsufficientStorage, nil)

	var items []model.Item
	ts.expect(t, "GET", "/api/items", ts.token, nil, http.StatusOK, &items)
	if len(items) != 0 {
		t.Errorf("expected failed write to leave no items, got %d", len(items))
	}
}

func TestLoginRateLimited(t *testing.T) {
	ts := setupTestServer(t, func(d *Deps) {
		d.LoginRate = rate.Every(time.Hour)
		d.LoginBurst = 2
	})

	// setupTestServer used one attempt.
	ts.expect(t, "POST", "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "x"},
		http.StatusUnauthorized, nil)
	ts.expect(t, "POST", "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "x"},
		http.StatusTooManyRequests, nil)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestImageUpload(t *testing.T) {
	ts := setupTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "red.png")
	fw.Write(testPNG(t))
	mw.Close()

	req, _ := http.NewRequest("POST", ts.URL+"/api/images", &body)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	if !strings.HasPrefix(out["url"], inventory.ImageURLPrefix) {
		t.Fatalf("unexpected url %q", out["url"])
	}

	// Served without a token.
	img, err := http.Get(ts.URL + out["url"])
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	defer img.Body.Close()
	if img.StatusCode != http.StatusOK || img.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected 200 image/jpeg, got %d %s", img.StatusCode, img.Header.Get("Content-Type"))
	}
}

func TestEventStream(t *testing.T) {
	ts := setupTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/events?token="+ts.token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	ts.expect(t, "POST", "/api/items", ts.token, sampleItem("Streamed item", 3), http.StatusCreated, nil)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "event: "+events.InventoryUpdated {
			return
		}
	}
	t.Fatalf("no %s event received: %v", events.InventoryUpdated, scanner.Err())
}

func TestHealth(t *testing.T) {
	repo := store.NewTestRepository(t)
	ts := setupTestServerOn(t, repo)

	var body map[string]string
	ts.expect(t, "GET", "/api/health", "", nil, http.StatusOK, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}

	repo.KV.Close()
	ts.expect(t, "GET", "/api/health", "", nil, http.StatusServiceUnavailable, &body)
	if body["status"] != "unhealthy" {
		t.Errorf("status = %q, want unhealthy", body["status"])
	}
}
