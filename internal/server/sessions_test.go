package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/nestegg-labs/nestegg/internal/dialogue"
	"github.com/nestegg-labs/nestegg/internal/discovery"
	"github.com/nestegg-labs/nestegg/internal/store"
	"github.com/nestegg-labs/nestegg/session"
	"github.com/nestegg-labs/nestegg/session/inmemory"
)

var (
	profileQuery = regexp.QuoteMeta(`SELECT data FROM profiles WHERE user_id=$1`)
	patchExec    = regexp.QuoteMeta(`INSERT INTO profiles (user_id, data) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET data = profiles.data || EXCLUDED.data, updated_at = now()`)
)

func newSessionsHandler(t *testing.T) (*SessionsHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	h := &SessionsHandler{
		Store:    &store.Store{DB: db},
		Sessions: inmemory.NewStore(),
		Seq:      dialogue.New(discovery.NewClient(nil, nil), nil),
		TTL:      30 * time.Minute,
	}
	return h, mock, func() { _ = db.Close() }
}

func expectDefaultProfile(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(profileQuery).WithArgs("user-1").WillReturnError(sql.ErrNoRows)
}

func createSession(t *testing.T, h *SessionsHandler, mock sqlmock.Sqlmock) SessionResponse {
	t.Helper()
	e := echo.New()
	expectDefaultProfile(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	if err := h.create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func postMessage(t *testing.T, h *SessionsHandler, id, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")
	ctx.SetParamNames("id")
	ctx.SetParamValues(id)
	return rec, h.message(ctx)
}

func TestSessionFlow(t *testing.T) {
	h, mock, done := newSessionsHandler(t)
	defer done()

	created := createSession(t, h, mock)
	if created.Phase != dialogue.PhaseIntroduced {
		t.Fatalf("expected introduced phase, got %s", created.Phase)
	}
	intro := created.Turns[len(created.Turns)-1]
	if len(intro.Choices) != 2 {
		t.Fatalf("expected entry choices, got %+v", intro.Choices)
	}

	// "start" advances to the first open question.
	expectDefaultProfile(mock)
	rec, err := postMessage(t, h, created.ID, `{"choice":"start"}`)
	if err != nil {
		t.Fatalf("choose start: %v", err)
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Phase != dialogue.PhaseAwaitingAnswer {
		t.Fatalf("expected awaiting_answer, got %s", resp.Phase)
	}
	asked := resp.Turns[len(resp.Turns)-1]
	if asked.QuestionID != "social_security" {
		t.Fatalf("expected social_security first, got %s", asked.QuestionID)
	}

	// A quick answer with a patch applies it and advances.
	mock.ExpectExec(patchExec).WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectDefaultProfile(mock)
	rec, err = postMessage(t, h, created.ID,
		`{"question_id":"social_security","answer":{"label":"Yes, about $2,000/month","value":{"ss_benefit_at_fra":2000}}}`)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	next := resp.Turns[len(resp.Turns)-1]
	if next.QuestionID != "pension" {
		t.Fatalf("expected pension next, got %s", next.QuestionID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	h, mock, done := newSessionsHandler(t)
	defer done()

	created := createSession(t, h, mock)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.ID, nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "someone-else")
	ctx.SetParamNames("id")
	ctx.SetParamValues(created.ID)

	err := h.get(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign session, got %#v", err)
	}
}

func TestMessageWhileBusy(t *testing.T) {
	h, mock, done := newSessionsHandler(t)
	defer done()

	created := createSession(t, h, mock)
	sess, err := h.Sessions.Get(created.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if err := sess.BeginAction(); err != nil {
		t.Fatalf("begin action: %v", err)
	}
	defer sess.EndAction()

	_, err = postMessage(t, h, created.ID, `{"choice":"start"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %#v", err)
	}
	if !strings.Contains(httpErr.Message.(string), session.ErrBusy.Error()) {
		t.Fatalf("unexpected message: %v", httpErr.Message)
	}
}

func TestWhatIfApplyAndRevert(t *testing.T) {
	h, mock, done := newSessionsHandler(t)
	defer done()

	created := createSession(t, h, mock)

	apply := func(body string) (*httptest.ResponseRecorder, error) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+created.ID+"/whatif", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		ctx := e.NewContext(req, rec)
		ctx.Set("user_id", "user-1")
		ctx.SetParamNames("id")
		ctx.SetParamValues(created.ID)
		return rec, h.applyScenario(ctx)
	}

	expectDefaultProfile(mock)
	mock.ExpectExec(patchExec).WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rec, err := apply(`{"scenario_id":"boost_contribution"}`)
	if err != nil {
		t.Fatalf("apply scenario: %v", err)
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ActiveScenarioID != "boost_contribution" {
		t.Fatalf("expected active scenario, got %q", resp.ActiveScenarioID)
	}

	// A second apply is rejected without touching the profile.
	expectDefaultProfile(mock)
	_, err = apply(`{"scenario_id":"reduce_spending"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second apply, got %#v", err)
	}

	// Revert restores the snapshot through a single patch.
	mock.ExpectExec(patchExec).WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+created.ID+"/whatif", nil)
	rec = httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")
	ctx.SetParamNames("id")
	ctx.SetParamValues(created.ID)
	if err := h.revertScenario(ctx); err != nil {
		t.Fatalf("revert: %v", err)
	}
	resp = SessionResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ActiveScenarioID != "" {
		t.Fatalf("expected no active scenario after revert, got %q", resp.ActiveScenarioID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchTranscript(t *testing.T) {
	h, mock, done := newSessionsHandler(t)
	defer done()

	created := createSession(t, h, mock)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.ID+"/search?q=plan", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")
	ctx.SetParamNames("id")
	ctx.SetParamValues(created.ID)

	if err := h.search(ctx); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
