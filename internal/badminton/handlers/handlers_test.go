package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	"github.com/bonniEdo/badminton-go/internal/badminton/apperr"
	"github.com/bonniEdo/badminton-go/internal/badminton/models"
	"github.com/bonniEdo/badminton-go/internal/badminton/service"
)

type stubRoster struct {
	joinParams service.JoinParams
	joinResult *service.JoinResult
	joinErr    error
	cancelErr  error
}

func (s *stubRoster) Join(_ context.Context, p service.JoinParams) (*service.JoinResult, error) {
	s.joinParams = p
	return s.joinResult, s.joinErr
}

func (s *stubRoster) AddGuest(_ context.Context, _, _ int64, _ float64) (*service.GuestResult, error) {
	return &service.GuestResult{Status: models.StatusConfirmed, Headcount: 3}, nil
}

func (s *stubRoster) Cancel(_ context.Context, _, _ int64, _ string) (*service.CancelResult, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &service.CancelResult{PromotedCount: 1, Headcount: 4, Message: "registration canceled"}, nil
}

func (s *stubRoster) Players(_ context.Context, _ int64) (*service.PlayersResult, error) {
	return &service.PlayersResult{Headcount: 2}, nil
}

type stubMatches struct {
	checkInErr   error
	startParams  service.StartMatchParams
	finishResult *service.FinishResult
}

func (s *stubMatches) CheckIn(_ context.Context, _, _ int64) error { return s.checkInErr }

func (s *stubMatches) StartMatch(_ context.Context, p service.StartMatchParams) (*models.Match, error) {
	s.startParams = p
	return &models.Match{ID: 9, GameID: p.GameID, CourtNumber: p.Court, Status: models.MatchActive}, nil
}

func (s *stubMatches) FinishMatch(_ context.Context, _ int64, winner string) (*service.FinishResult, error) {
	if s.finishResult != nil {
		return s.finishResult, nil
	}
	return &service.FinishResult{Rated: true, Winner: winner}, nil
}

func (s *stubMatches) Status(_ context.Context, _ int64) (*service.LiveStatus, error) {
	return &service.LiveStatus{}, nil
}

func (s *stubMatches) History(_ context.Context, _ int64) ([]*models.MatchHistoryItem, error) {
	return nil, nil
}

type testEnv struct {
	router *chi.Mux
	token  string
	roster *stubRoster
	match  *stubMatches
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	_, token, err := tokenAuth.Encode(map[string]interface{}{"user_id": int64(7), "username": "amy"})
	if err != nil {
		t.Fatalf("encode token: %v", err)
	}

	roster := &stubRoster{}
	match := &stubMatches{}
	h := NewHandler(tokenAuth, roster, match, nil, nil, nil)

	r := chi.NewRouter()
	h.SetRoutes(r)
	return &testEnv{router: r, token: token, roster: roster, match: match}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "BEARER "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var rsp Response
	if err := json.NewDecoder(w.Body).Decode(&rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rsp
}

func TestJoinHandler(t *testing.T) {
	env := newTestEnv(t)
	env.roster.joinResult = &service.JoinResult{Status: models.StatusConfirmed, Headcount: 3}

	w := env.do("POST", "/v1/games/5/join", map[string]interface{}{
		"phone": "0912345678", "include_friend": true, "friend_level": 2.5,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	p := env.roster.joinParams
	if p.GameID != 5 || p.UserID != 7 {
		t.Errorf("expected game 5 user 7, got game %d user %d", p.GameID, p.UserID)
	}
	if !p.BringsGuest || p.GuestLevel != 2.5 {
		t.Errorf("guest fields not forwarded: %+v", p)
	}
}

func TestJoinHandlerWaitlistMessage(t *testing.T) {
	env := newTestEnv(t)
	env.roster.joinResult = &service.JoinResult{Status: models.StatusWaitlist, WaitlistPosition: 2}

	w := env.do("POST", "/v1/games/5/join", map[string]interface{}{"phone": "0912345678"})
	rsp := decodeResponse(t, w)
	if rsp.Message != "game is full, your party is #2 on the waitlist" {
		t.Errorf("unexpected message %q", rsp.Message)
	}
}

func TestJoinHandlerConflict(t *testing.T) {
	env := newTestEnv(t)
	env.roster.joinErr = apperr.Conflict("already joined this game")

	w := env.do("POST", "/v1/games/5/join", map[string]interface{}{"phone": "0912345678"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	rsp := decodeResponse(t, w)
	if rsp.Success || rsp.Message != "already joined this game" {
		t.Errorf("unexpected envelope %+v", rsp)
	}
}

func TestCancelJoinHandlerNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.roster.cancelErr = apperr.NotFound("no registration found")

	w := env.do("DELETE", "/v1/games/5/join", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInternalErrorIsMasked(t *testing.T) {
	env := newTestEnv(t)
	env.roster.joinErr = apperr.Wrap(context.DeadlineExceeded, "join query failed")

	w := env.do("POST", "/v1/games/5/join", map[string]interface{}{"phone": "0912345678"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	rsp := decodeResponse(t, w)
	if rsp.Message != "internal server error" {
		t.Errorf("internal detail leaked to the client: %q", rsp.Message)
	}
}

func TestStartMatchHandler(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/v1/matches/start", map[string]interface{}{
		"game_id":      5,
		"court_number": "2",
		"players":      map[string]int64{"a1": 11, "a2": 12, "b1": 13, "b2": 14},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	p := env.match.startParams
	if p.Court != "2" || p.EntryID != [4]int64{11, 12, 13, 14} {
		t.Errorf("start params not forwarded: %+v", p)
	}
}

func TestFinishMatchHandlerMessage(t *testing.T) {
	env := newTestEnv(t)
	env.match.finishResult = &service.FinishResult{Rated: false, Winner: models.SideNone}

	w := env.do("POST", "/v1/matches/finish", map[string]interface{}{"match_id": 9, "winner": "none"})
	rsp := decodeResponse(t, w)
	if rsp.Message != "match finished (not rated)" {
		t.Errorf("unexpected message %q", rsp.Message)
	}
}

func TestCheckInHandlerRequiresGameID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/v1/matches/checkin", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestInvalidGameIDParam(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/v1/games/abc/players", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSecuredRoutesRejectMissingToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/v1/games/5/join", bytes.NewBufferString("{}"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestActivityHandlerDisabledFeed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/v1/games/5/activity", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when the feed is disabled, got %d", w.Code)
	}
}

func TestHealthHandlerIsPublic(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/v1/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
