package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nestegg-labs/nestegg/internal/dialogue"
	"github.com/nestegg-labs/nestegg/internal/store"
	"github.com/nestegg-labs/nestegg/internal/whatif"
	"github.com/nestegg-labs/nestegg/models"
	"github.com/nestegg-labs/nestegg/session"
)

// SessionsHandler exposes the guided-completion conversation. Every event
// endpoint takes the session's action slot first, so overlapping advances
// come back as 409 instead of racing.
type SessionsHandler struct {
	Store    *store.Store
	Sessions session.Store
	Seq      *dialogue.Sequencer
	TTL      time.Duration
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/messages", h.message)
	g.POST("/:id/discovery/retry", h.retry)
	g.GET("/:id/search", h.search)
	g.GET("/:id/whatif", h.listScenarios)
	g.POST("/:id/whatif", h.applyScenario)
	g.DELETE("/:id/whatif", h.revertScenario)
}

// userProfile adapts the durable store to the sequencer's profile owner
// for one user.
type userProfile struct {
	store  *store.Store
	userID string
}

func (u userProfile) Profile(ctx context.Context) (models.Profile, error) {
	return u.store.GetProfile(ctx, u.userID)
}

func (u userProfile) ApplyPatch(ctx context.Context, patch models.Patch) error {
	return u.store.ApplyProfilePatch(ctx, u.userID, patch)
}

func (h *SessionsHandler) create(c echo.Context) error {
	userID := requestUserID(c)
	sess, err := h.Sessions.Create(userID, h.TTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	profile, err := h.Store.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := sess.Update(func(st *dialogue.State) error {
		return h.Seq.Start(st, profile)
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := sess.IndexTurns(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, snapshot(sess))
}

func (h *SessionsHandler) get(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot(sess))
}

// message dispatches one conversation event. Exactly one of the request's
// fields drives the sequencer; free text is the fallback.
func (h *SessionsHandler) message(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	switch {
	case req.Skip && req.QuestionID == "":
		return echo.NewHTTPError(http.StatusBadRequest, "question_id required to skip")
	case req.Answer != nil && req.QuestionID == "":
		return echo.NewHTTPError(http.StatusBadRequest, "question_id required to answer")
	case req.Choice == "" && !req.Skip && req.Answer == nil && req.Text == "":
		return echo.NewHTTPError(http.StatusBadRequest, "empty message")
	}

	if err := sess.BeginAction(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	defer sess.EndAction()

	ctx := c.Request().Context()
	owner := userProfile{store: h.Store, userID: sess.UserID()}

	err = sess.Update(func(st *dialogue.State) error {
		switch {
		case req.Choice != "":
			return h.Seq.Choose(ctx, st, owner, req.Choice)
		case req.Skip:
			return h.Seq.Skip(ctx, st, owner, req.QuestionID)
		case req.Answer != nil:
			return h.Seq.Answer(ctx, st, owner, req.QuestionID, *req.Answer)
		default:
			return h.Seq.FreeText(ctx, st, owner, req.Text)
		}
	})
	if err != nil {
		return sequencerError(err)
	}

	sess.Expire(h.TTL)
	if err := sess.IndexTurns(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snapshot(sess))
}

func (h *SessionsHandler) retry(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	if err := sess.BeginAction(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	defer sess.EndAction()

	owner := userProfile{store: h.Store, userID: sess.UserID()}
	if err := sess.Update(func(st *dialogue.State) error {
		return h.Seq.Retry(c.Request().Context(), st, owner)
	}); err != nil {
		return sequencerError(err)
	}
	if err := sess.IndexTurns(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snapshot(sess))
}

func (h *SessionsHandler) search(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	k := 10
	if raw := c.QueryParam("k"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			k = v
		}
	}
	hits, err := sess.SearchTurns(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hits)
}

func (h *SessionsHandler) listScenarios(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	profile, err := h.Store.GetProfile(c.Request().Context(), sess.UserID())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	active := sess.WhatIf().ActiveScenarioID
	views := make([]ScenarioView, 0, len(whatif.Catalog))
	for _, sc := range whatif.Applicable(profile) {
		views = append(views, ScenarioView{
			ID:          sc.ID,
			Label:       sc.Label,
			Description: sc.Describe(profile),
			Active:      sc.ID == active,
		})
	}
	return c.JSON(http.StatusOK, views)
}

func (h *SessionsHandler) applyScenario(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	var req WhatIfRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sc, ok := whatif.Lookup(req.ScenarioID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown scenario")
	}

	if err := sess.BeginAction(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	defer sess.EndAction()

	ctx := c.Request().Context()
	profile, err := h.Store.GetProfile(ctx, sess.UserID())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	patch, st, err := whatif.Apply(sc, profile, sess.WhatIf())
	if errors.Is(err, whatif.ErrScenarioActive) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if errors.Is(err, whatif.ErrNotApplicable) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.ApplyProfilePatch(ctx, sess.UserID(), patch); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sess.SetWhatIf(st)
	sess.Expire(h.TTL)
	return c.JSON(http.StatusOK, snapshot(sess))
}

func (h *SessionsHandler) revertScenario(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	if err := sess.BeginAction(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	defer sess.EndAction()

	patch, st := whatif.Revert(sess.WhatIf())
	if len(patch) > 0 {
		if err := h.Store.ApplyProfilePatch(c.Request().Context(), sess.UserID(), patch); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	sess.SetWhatIf(st)
	sess.Expire(h.TTL)
	return c.JSON(http.StatusOK, snapshot(sess))
}

// ownedSession resolves the :id param and enforces per-user ownership.
func (h *SessionsHandler) ownedSession(c echo.Context) (session.Session, error) {
	userID := requestUserID(c)
	sess, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if sess.UserID() != userID {
		// Do not leak the session's existence to other users.
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return sess, nil
}

func snapshot(sess session.Session) SessionResponse {
	st := sess.Snapshot()
	return SessionResponse{
		ID:               sess.ID(),
		Phase:            st.Phase,
		Turns:            st.Turns,
		Score:            st.Score,
		Degraded:         st.Degraded,
		ActiveScenarioID: sess.WhatIf().ActiveScenarioID,
	}
}

func sequencerError(err error) error {
	switch {
	case errors.Is(err, dialogue.ErrConcluded),
		errors.Is(err, dialogue.ErrNotAwaiting),
		errors.Is(err, dialogue.ErrAlreadyStarted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, dialogue.ErrUnknownChoice):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
