package services

import "errors"

// Общие ошибки, используемые в сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")

	// Ресурс не найден
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrSeedNotFound       = errors.New("seed not found in tournament")

	// Конфликты состояния
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTournamentLocked       = errors.New("tournament is completed and locked")
	ErrMatchNotPlayable       = errors.New("match opponents are not decided yet")
	ErrMatchAlreadyScored     = errors.New("match already has a score")
	ErrSeedNotInMatch         = errors.New("seed does not play in this match")
	ErrSeedForfeited          = errors.New("seed has forfeited")

	// Отклонённые счета
	ErrScoreRejected  = errors.New("score rejected")
	ErrAmbiguousScore = errors.New("score would make advancement ambiguous")

	// The stored event log no longer replays. Needs an operator, not a retry.
	ErrCorruptState = errors.New("stored tournament state is corrupt")

	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)
