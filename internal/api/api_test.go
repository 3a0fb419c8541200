package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/polyswap/internal/auth"
	"github.com/erazemk/polyswap/internal/db"
	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
	"github.com/erazemk/polyswap/internal/notify"
	"github.com/erazemk/polyswap/internal/storage"
	"github.com/erazemk/polyswap/internal/store"
)

const testJWTSecret = "test-secret-test-secret-test-secret"

// memStorage keeps proof photos in memory.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func (m *memStorage) PutProof(_ context.Context, offerID string, data []byte, _ string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := fmt.Sprintf("proofs/%s/%d.jpg", offerID, len(m.objects))
	m.objects[name] = data
	return &storage.Object{Name: name, URL: "https://cdn.test/" + name}, nil
}

func (m *memStorage) RemoveProof(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	m.removed = append(m.removed, name)
	return nil
}

type testServer struct {
	*httptest.Server
	proofs     *memStorage
	ownerTok   string
	otherTok   string
	strangeTok string
	ownerID    string
	otherID    string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	inbox := notify.NewInbox(database)
	proofs := &memStorage{objects: map[string][]byte{}}

	router := NewRouter(Deps{
		DB:        database,
		Engine:    exchange.NewEngine(store.New(database), inbox),
		Inbox:     inbox,
		Proofs:    proofs,
		JWTSecret: testJWTSecret,
	})
	server := httptest.NewServer(LoggingMiddleware(router))
	t.Cleanup(server.Close)

	ctx := context.Background()
	token := func(name string) (string, string) {
		u, err := store.CreateUser(ctx, database, name, "")
		if err != nil {
			t.Fatalf("creating user %s: %v", name, err)
		}
		tok, err := auth.GenerateToken(testJWTSecret, u.ID, u.Name, time.Hour)
		if err != nil {
			t.Fatalf("generating token: %v", err)
		}
		return u.ID, tok
	}

	ts := &testServer{Server: server, proofs: proofs}
	ts.ownerID, ts.ownerTok = token("Ana")
	ts.otherID, ts.otherTok = token("Bojan")
	_, ts.strangeTok = token("Cene")
	return ts
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
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends a request and decodes a JSON response into out when non-nil.
func do(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

type resultBody struct {
	Stage   string `json:"stage"`
	Changed bool   `json:"changed"`
	GoalMet bool   `json:"goal_met"`
	Weight  *struct {
		Remaining float64 `json:"remaining"`
		FullyMet  bool    `json:"fully_met"`
	} `json:"weight"`
	Deal struct {
		Offer    model.Offer     `json:"offer"`
		Post     model.Post      `json:"post"`
		Schedule *model.Schedule `json:"schedule"`
	} `json:"deal"`
}

func (ts *testServer) createPost(t *testing.T, category string, weight float64) string {
	t.Helper()
	var post model.Post
	status := do(t, "POST", ts.URL+"/api/posts", ts.ownerTok, map[string]any{
		"category":     category,
		"title":        "PET bottles",
		"total_weight": weight,
		"item_types":   []string{"PET"},
	}, &post)
	if status != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d", status)
	}
	return post.ID
}

func (ts *testServer) submitOffer(t *testing.T, postID string, weight float64) string {
	t.Helper()
	var res resultBody
	status := do(t, "POST", ts.URL+"/api/posts/"+postID+"/offers", ts.otherTok, map[string]any{
		"offered_weight": weight,
		"message":        "I can bring it on Friday",
	}, &res)
	if status != http.StatusCreated {
		t.Fatalf("submit offer: expected 201, got %d", status)
	}
	if res.Stage != string(exchange.StageOfferMade) {
		t.Fatalf("expected stage offer_made, got %s", res.Stage)
	}
	return res.Deal.Offer.ID
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/me")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	if status := do(t, "GET", ts.URL+"/api/me", "not-a-token", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", status)
	}

	var me model.User
	if status := do(t, "GET", ts.URL+"/api/me", ts.ownerTok, nil, &me); status != http.StatusOK {
		t.Fatalf("expected 200 for /api/me, got %d", status)
	}
	if me.ID != ts.ownerID || me.Name != "Ana" {
		t.Errorf("unexpected user: %+v", me)
	}

	if status := do(t, "PUT", ts.URL+"/api/me", ts.ownerTok, map[string]string{"photo_url": "not a url"}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad photo url, got %d", status)
	}
	if status := do(t, "PUT", ts.URL+"/api/me", ts.ownerTok, map[string]string{"photo_url": "https://cdn.test/ana.jpg"}, &me); status != http.StatusOK {
		t.Fatalf("update me: %d", status)
	}
	if me.PhotoURL != "https://cdn.test/ana.jpg" {
		t.Errorf("expected photo to be updated, got %q", me.PhotoURL)
	}

	var other model.User
	if status := do(t, "GET", ts.URL+"/api/users/"+ts.otherID, ts.ownerTok, nil, &other); status != http.StatusOK || other.Name != "Bojan" {
		t.Errorf("expected Bojan's profile, got %d %+v", status, other)
	}
}

func TestRevokedTokenRejected(t *testing.T) {
	database := db.NewTestDB(t)
	inbox := notify.NewInbox(database)
	server := httptest.NewServer(NewRouter(Deps{
		DB:        database,
		Engine:    exchange.NewEngine(store.New(database), inbox),
		Inbox:     inbox,
		JWTSecret: testJWTSecret,
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	u, _ := store.CreateUser(ctx, database, "Ana", "")
	tok, _ := auth.GenerateToken(testJWTSecret, u.ID, u.Name, time.Hour)

	if status := do(t, "GET", server.URL+"/api/me", tok, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 before revocation, got %d", status)
	}

	claims, err := auth.ValidateToken(testJWTSecret, tok)
	if err != nil {
		t.Fatalf("validating token: %v", err)
	}
	if err := store.RevokeToken(ctx, database, claims.ID, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("revoking token: %v", err)
	}

	if status := do(t, "GET", server.URL+"/api/me", tok, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after revocation, got %d", status)
	}
}

func TestPostEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	if status := do(t, "POST", ts.URL+"/api/posts", ts.ownerTok, map[string]any{
		"category": "TRADING", "title": "x", "total_weight": 1,
	}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown category, got %d", status)
	}
	if status := do(t, "POST", ts.URL+"/api/posts", ts.ownerTok, map[string]any{
		"category": "SEEKING", "title": "x", "total_weight": 0,
	}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for zero weight, got %d", status)
	}

	postID := ts.createPost(t, "SEEKING", 10)

	var posts []model.Post
	if status := do(t, "GET", ts.URL+"/api/posts?owner=me&status=active", ts.ownerTok, nil, &posts); status != http.StatusOK {
		t.Fatalf("list posts: %d", status)
	}
	if len(posts) != 1 || posts[0].ID != postID {
		t.Errorf("expected the one created post, got %+v", posts)
	}

	if status := do(t, "POST", ts.URL+"/api/posts/"+postID+"/close", ts.otherTok, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 closing someone else's post, got %d", status)
	}
	if status := do(t, "POST", ts.URL+"/api/posts/"+postID+"/close", ts.ownerTok, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 closing own post, got %d", status)
	}
	if status := do(t, "POST", ts.URL+"/api/posts/"+postID+"/close", ts.ownerTok, nil, nil); status != http.StatusConflict {
		t.Errorf("expected 409 closing a closed post, got %d", status)
	}

	if status := do(t, "POST", ts.URL+"/api/posts/"+postID+"/offers", ts.otherTok, map[string]any{
		"offered_weight": 2,
	}, nil); status != http.StatusConflict {
		t.Errorf("expected 409 offering on a closed post, got %d", status)
	}

	if status := do(t, "GET", ts.URL+"/api/posts/missing", ts.ownerTok, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for missing post, got %d", status)
	}
}

func TestOfferLifecycleOverHTTP(t *testing.T) {
	ts := setupTestServer(t)
	postID := ts.createPost(t, "SEEKING", 10)
	offerID := ts.submitOffer(t, postID, 4)
	base := ts.URL + "/api/offers/" + offerID

	// A second open offer from the same responder is rejected.
	if status := do(t, "POST", ts.URL+"/api/posts/"+postID+"/offers", ts.otherTok, map[string]any{
		"offered_weight": 1,
	}, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate offer, got %d", status)
	}

	if status := do(t, "GET", base, ts.strangeTok, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for outsider viewing offer, got %d", status)
	}
	if status := do(t, "POST", base+"/accept", ts.otherTok, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for responder accepting, got %d", status)
	}

	var res resultBody
	if status := do(t, "POST", base+"/accept", ts.ownerTok, nil, &res); status != http.StatusOK {
		t.Fatalf("accept: %d", status)
	}
	if res.Weight == nil || res.Weight.Remaining != 6 {
		t.Errorf("expected remaining weight 6, got %+v", res.Weight)
	}

	// Skipping ahead is an invalid transition.
	if status := do(t, "POST", base+"/complete", ts.ownerTok, nil, nil); status != http.StatusConflict {
		t.Errorf("expected 409 completing an unscheduled offer, got %d", status)
	}

	if status := do(t, "POST", base+"/schedule", ts.ownerTok, map[string]string{
		"scheduled_date": "10/01/2025", "scheduled_time": "09:00",
	}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed date, got %d", status)
	}
	if status := do(t, "POST", base+"/schedule", ts.ownerTok, map[string]string{
		"scheduled_date": "2025-01-10", "scheduled_time": "09:00",
	}, &res); status != http.StatusOK {
		t.Fatalf("schedule: %d", status)
	}
	if status := do(t, "PUT", base+"/schedule", ts.otherTok, map[string]string{
		"scheduled_date": "2025-01-11", "scheduled_time": "14:30",
	}, &res); status != http.StatusOK {
		t.Fatalf("reschedule: %d", status)
	}
	if res.Deal.Schedule == nil || res.Deal.Schedule.ScheduledDate != "2025-01-11" {
		t.Fatalf("expected rescheduled date, got %+v", res.Deal.Schedule)
	}

	// The responder proposed the current slot, so the owner agrees.
	if status := do(t, "POST", base+"/schedule/agree", ts.ownerTok, nil, &res); status != http.StatusOK {
		t.Fatalf("agree: %d", status)
	}
	if res.Stage != string(exchange.StageForCollection) {
		t.Fatalf("expected for_collection, got %s", res.Stage)
	}

	if status := do(t, "POST", base+"/proof", ts.ownerTok, map[string]string{
		"image_url": "https://cdn.test/proof.jpg",
	}, &res); status != http.StatusOK {
		t.Fatalf("proof: %d", status)
	}

	for _, s := range []struct {
		path  string
		token string
		stage exchange.Stage
	}{
		{"/proof/confirm", ts.otherTok, exchange.StageAwaitingPayment},
		{"/payment", ts.otherTok, exchange.StageForCompletion},
		{"/complete", ts.ownerTok, exchange.StageCompleted},
	} {
		if status := do(t, "POST", base+s.path, s.token, nil, &res); status != http.StatusOK {
			t.Fatalf("%s: %d", s.path, status)
		}
		if res.Stage != string(s.stage) {
			t.Fatalf("%s: expected %s, got %s", s.path, s.stage, res.Stage)
		}
	}

	if status := do(t, "POST", base+"/cancel", ts.ownerTok, nil, nil); status != http.StatusConflict {
		t.Errorf("expected 409 cancelling a completed exchange, got %d", status)
	}

	var txs []model.Transaction
	if status := do(t, "GET", ts.URL+"/api/transactions?stage=completed", ts.otherTok, nil, &txs); status != http.StatusOK {
		t.Fatalf("transactions: %d", status)
	}
	if len(txs) != 1 || txs[0].OfferID != offerID {
		t.Errorf("expected one completed transaction, got %+v", txs)
	}
	if status := do(t, "GET", ts.URL+"/api/transactions?stage=bogus", ts.otherTok, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown stage, got %d", status)
	}
}

func TestDeclineAndWithdraw(t *testing.T) {
	ts := setupTestServer(t)
	postID := ts.createPost(t, "SELLING", 5)

	offerID := ts.submitOffer(t, postID, 2)
	if status := do(t, "DELETE", ts.URL+"/api/offers/"+offerID, ts.ownerTok, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for owner withdrawing, got %d", status)
	}
	if status := do(t, "DELETE", ts.URL+"/api/offers/"+offerID, ts.otherTok, nil, nil); status != http.StatusNoContent {
		t.Errorf("expected 204 withdrawing, got %d", status)
	}
	if status := do(t, "GET", ts.URL+"/api/offers/"+offerID, ts.otherTok, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after withdrawal, got %d", status)
	}

	offerID = ts.submitOffer(t, postID, 2)
	var res resultBody
	if status := do(t, "POST", ts.URL+"/api/offers/"+offerID+"/decline", ts.ownerTok, nil, &res); status != http.StatusOK {
		t.Fatalf("decline: %d", status)
	}
	if res.Stage != string(exchange.StageDeclined) {
		t.Errorf("expected declined, got %s", res.Stage)
	}

	var offers []model.Offer
	do(t, "GET", ts.URL+"/api/posts/"+postID+"/offers", ts.strangeTok, nil, &offers)
	if len(offers) != 0 {
		t.Errorf("expected outsider to see no offers, got %d", len(offers))
	}
	do(t, "GET", ts.URL+"/api/posts/"+postID+"/offers", ts.ownerTok, nil, &offers)
	if len(offers) != 1 {
		t.Errorf("expected owner to see 1 offer, got %d", len(offers))
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func uploadProof(t *testing.T, url, token string, data []byte, out any) int {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "proof.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	mw.Close()

	req, _ := http.NewRequest("POST", url, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding upload response: %v", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func TestProofPhotoUpload(t *testing.T) {
	ts := setupTestServer(t)
	postID := ts.createPost(t, "SELLING", 5)
	offerID := ts.submitOffer(t, postID, 5)
	base := ts.URL + "/api/offers/" + offerID

	var res resultBody
	do(t, "POST", base+"/accept", ts.ownerTok, nil, &res)
	if !res.GoalMet {
		t.Errorf("expected goal met after accepting the full weight")
	}
	do(t, "POST", base+"/schedule", ts.ownerTok, map[string]string{
		"scheduled_date": "2025-02-01", "scheduled_time": "10:00",
	}, nil)

	// Uploads before collection is agreed are rejected and not kept.
	if status := uploadProof(t, base+"/proof", ts.otherTok, testPNG(t), nil); status != http.StatusConflict {
		t.Errorf("expected 409 uploading before agreement, got %d", status)
	}
	if len(ts.proofs.removed) != 1 || len(ts.proofs.objects) != 0 {
		t.Errorf("expected the stray upload to be removed, got objects=%d removed=%d",
			len(ts.proofs.objects), len(ts.proofs.removed))
	}

	do(t, "POST", base+"/schedule/agree", ts.otherTok, nil, nil)

	// In a SELLING exchange the collector hands over.
	if status := uploadProof(t, base+"/proof", ts.ownerTok, testPNG(t), nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for owner uploading, got %d", status)
	}
	if status := uploadProof(t, base+"/proof", ts.otherTok, []byte("plain text"), nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for non-image upload, got %d", status)
	}

	if status := uploadProof(t, base+"/proof", ts.otherTok, testPNG(t), &res); status != http.StatusOK {
		t.Fatalf("upload: %d", status)
	}
	if res.Stage != string(exchange.StageProofUploaded) {
		t.Errorf("expected proof_uploaded, got %s", res.Stage)
	}
	if res.Deal.Schedule == nil || res.Deal.Schedule.CollectionImg == "" {
		t.Fatalf("expected collection image to be set")
	}
	if len(ts.proofs.objects) != 1 {
		t.Errorf("expected one stored proof, got %d", len(ts.proofs.objects))
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	postID := ts.createPost(t, "SEEKING", 10)
	ts.submitOffer(t, postID, 3)

	var items []model.Notification
	if status := do(t, "GET", ts.URL+"/api/notifications?unread=true", ts.ownerTok, nil, &items); status != http.StatusOK {
		t.Fatalf("list notifications: %d", status)
	}
	if len(items) != 1 || items[0].Category != model.NotifyOffer {
		t.Fatalf("expected one offer notification, got %+v", items)
	}

	if status := do(t, "POST", ts.URL+"/api/notifications/"+items[0].ID+"/read", ts.otherTok, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 marking someone else's notification, got %d", status)
	}
	if status := do(t, "POST", ts.URL+"/api/notifications/"+items[0].ID+"/read", ts.ownerTok, nil, nil); status != http.StatusNoContent {
		t.Errorf("expected 204, got %d", status)
	}

	do(t, "GET", ts.URL+"/api/notifications?unread=true", ts.ownerTok, nil, &items)
	if len(items) != 0 {
		t.Errorf("expected no unread notifications, got %d", len(items))
	}
	if status := do(t, "GET", ts.URL+"/api/notifications?unread=maybe", ts.ownerTok, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad flag, got %d", status)
	}
}
