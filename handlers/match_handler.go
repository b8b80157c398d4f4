package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/middleware"
	"github.com/Dosada05/bracket-engine/models"
)

type submitScoreInput struct {
	Seed  int  `json:"seed"`
	Score *int `json:"score"`
}

type scoreMatchInput struct {
	Score []int `json:"score"`
}

// matchRequest reads the tournament and match ids and the caller shared by
// every scoring route.
func matchRequest(w http.ResponseWriter, r *http.Request) (models.Actor, int, brackets.ID, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return models.Actor{}, 0, brackets.ID{}, false
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return models.Actor{}, 0, brackets.ID{}, false
	}
	matchID, err := getMatchIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return models.Actor{}, 0, brackets.ID{}, false
	}
	return actor, tournamentID, matchID, true
}

// SubmitScoreHandler обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/scores
// A null score retracts what was reported for the seed.
func (h *TournamentHandler) SubmitScoreHandler(w http.ResponseWriter, r *http.Request) {
	actor, tournamentID, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}

	var input submitScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Seed <= 0 {
		badRequestResponse(w, r, errors.New("seed is required"))
		return
	}

	outcome, err := h.scoringService.SubmitScore(r.Context(), actor, tournamentID, matchID, input.Seed, input.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ScoreMatchHandler обрабатывает PUT /tournaments/{tournamentID}/matches/{matchID}/score
func (h *TournamentHandler) ScoreMatchHandler(w http.ResponseWriter, r *http.Request) {
	actor, tournamentID, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}

	var input scoreMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.Score) == 0 {
		badRequestResponse(w, r, errors.New("score is required"))
		return
	}

	outcome, err := h.scoringService.ScoreMatch(r.Context(), actor, tournamentID, matchID, input.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveHandler обрабатывает POST /tournaments/{tournamentID}/matches/{matchID}/resolve
func (h *TournamentHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	actor, tournamentID, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}

	outcome, err := h.scoringService.ResolveCascade(r.Context(), actor, tournamentID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ToggleForfeitHandler обрабатывает POST /tournaments/{tournamentID}/forfeits/{seed}
func (h *TournamentHandler) ToggleForfeitHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	seed, err := getIDFromURL(r, "seed")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.scoringService.ToggleForfeit(r.Context(), actor, tournamentID, seed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
