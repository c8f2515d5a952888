package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nestegg-labs/nestegg/internal/dialogue"
	"github.com/nestegg-labs/nestegg/internal/runtime"
	"github.com/nestegg-labs/nestegg/models"
)

// requestUserID resolves the authenticated subject, preferring the request
// context the auth middleware populated.
func requestUserID(c echo.Context) string {
	if sub, ok := runtime.SubjectFromContext(c.Request().Context()); ok {
		return sub
	}
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

// HTTPError is the uniform error body produced by the error handler.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// MessageRequest is the single entry point for session events. Exactly one
// of choice, answer, skip or text should be set.
type MessageRequest struct {
	Choice     string             `json:"choice,omitempty"`
	QuestionID string             `json:"question_id,omitempty"`
	Answer     *models.Suggestion `json:"answer,omitempty"`
	Skip       bool               `json:"skip,omitempty"`
	Text       string             `json:"text,omitempty"`
}

// SessionResponse is the session snapshot returned after every event.
type SessionResponse struct {
	ID               string          `json:"id"`
	Phase            dialogue.Phase  `json:"phase"`
	Turns            []dialogue.Turn `json:"turns"`
	Score            float64         `json:"completeness_score"`
	Degraded         bool            `json:"degraded"`
	ActiveScenarioID string          `json:"active_scenario_id,omitempty"`
}

type WhatIfRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ScenarioView is a catalog entry rendered against the caller's profile.
type ScenarioView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

type AnalyzeRequest struct {
	SimulationResults map[string]any `json:"simulation_results"`
}
