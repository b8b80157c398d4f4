package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/google/uuid"
)

// ScoreOutcome reports what one scoring call changed.
type ScoreOutcome struct {
	TournamentID int           `json:"tournament_id"`
	Staged       []brackets.ID `json:"staged"`
	Resolved     []brackets.ID `json:"resolved"`
	Forfeited    *bool         `json:"forfeited,omitempty"`
	Completed    bool          `json:"completed"`
	ArchiveURL   string        `json:"archive_url,omitempty"`
}

type ScoringService interface {
	// SubmitScore stages one side's score; a nil score retracts it. The match
	// is resolved as soon as every side is known.
	SubmitScore(ctx context.Context, actor models.Actor, tournamentID int, matchID brackets.ID, seed int, score *int) (*ScoreOutcome, error)
	// ToggleForfeit flips the forfeit flag of seed and resolves every match
	// the forfeit decides.
	ToggleForfeit(ctx context.Context, actor models.Actor, tournamentID int, seed int) (*ScoreOutcome, error)
	// ResolveCascade retries resolution from matchID forward.
	ResolveCascade(ctx context.Context, actor models.Actor, tournamentID int, matchID brackets.ID) (*ScoreOutcome, error)
	// ScoreMatch writes a full score vector directly. Re-scoring is refused
	// once a later match has used the outcome.
	ScoreMatch(ctx context.Context, actor models.Actor, tournamentID int, matchID brackets.ID, score []int) (*ScoreOutcome, error)
}

type scoringService struct {
	tx       repositories.Transactor
	repos    Repositories
	uploader storage.FileUploader
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewScoringService(tx repositories.Transactor, repos Repositories, uploader storage.FileUploader, notifier Notifier, logger *slog.Logger) ScoringService {
	return &scoringService{
		tx:       tx,
		repos:    repos,
		uploader: uploader,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// session is one locked unit of work on a tournament. Messages are only
// broadcast after the transaction commits.
type session struct {
	ctx      context.Context
	exec     repositories.SQLExecutor
	actor    models.Actor
	st       *tournamentState
	outcome  *ScoreOutcome
	messages []brackets.WebSocketMessage
}

func (ss *session) notify(kind string, payload interface{}) {
	ss.messages = append(ss.messages, brackets.WebSocketMessage{
		ID:      uuid.NewString(),
		Type:    kind,
		Payload: payload,
		RoomID:  brackets.RoomForTournament(ss.st.tournament.ID),
	})
}

type matchPayload struct {
	TournamentID int              `json:"tournament_id"`
	Match        models.MatchView `json:"match"`
}

type forfeitPayload struct {
	TournamentID int  `json:"tournament_id"`
	Seed         int  `json:"seed"`
	Forfeited    bool `json:"forfeited"`
}

type completedPayload struct {
	TournamentID int               `json:"tournament_id"`
	Standings    []models.Standing `json:"standings"`
}

// run locks the tournament, rebuilds it and hands it to fn inside one
// transaction. Completion and broadcasts happen here so every entry point
// shares them.
func (s *scoringService) run(ctx context.Context, actor models.Actor, tournamentID int, fn func(ss *session) error) (*ScoreOutcome, error) {
	if !actor.CanManage() {
		return nil, ErrForbiddenOperation
	}

	var ss *session
	err := s.tx.WithTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repos.Tournaments.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		if t.IsLocked() {
			return ErrTournamentLocked
		}
		st, err := loadState(ctx, s.repos, exec, t)
		if err != nil {
			return err
		}

		ss = &session{
			ctx:     ctx,
			exec:    exec,
			actor:   actor,
			st:      st,
			outcome: &ScoreOutcome{TournamentID: tournamentID, Staged: []brackets.ID{}, Resolved: []brackets.ID{}},
		}
		if err := fn(ss); err != nil {
			return err
		}
		return s.completeIfDone(ss)
	})
	if err != nil {
		if errors.Is(err, brackets.ErrCorruptBracket) || errors.Is(err, ErrCorruptState) {
			s.logger.Error("scoring aborted on corrupt bracket",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
		return nil, err
	}

	for _, msg := range ss.messages {
		s.notifier.BroadcastToRoom(msg.RoomID, msg)
	}
	if ss.outcome.Completed {
		ss.outcome.ArchiveURL = s.archive(ctx, ss.st)
	}
	return ss.outcome, nil
}

func (s *scoringService) SubmitScore(ctx context.Context, actor models.Actor, tournamentID int, matchID brackets.ID, seed int, score *int) (*ScoreOutcome, error) {
	return s.run(ctx, actor, tournamentID, func(ss *session) error {
		m, ok := ss.st.engine.FindMatch(matchID)
		switch {
		case !ok:
			return ErrMatchNotFound
		case m.Scored():
			return ErrMatchAlreadyScored
		case !m.Playable():
			return ErrMatchNotPlayable
		}
		slot := m.Slot(seed)
		if slot < 0 {
			return ErrSeedNotInMatch
		}
		if ss.st.forfeits[seed] {
			return ErrSeedForfeited
		}

		p, ok := ss.st.progress[matchID]
		if !ok {
			p = models.NewMatchProgress(tournamentID, matchID, len(m.Opponents))
			ss.st.progress[matchID] = p
		}
		if score == nil {
			p.States[slot], p.Scores[slot] = models.SlotPending, 0
		} else {
			p.States[slot], p.Scores[slot] = models.SlotScored, *score
		}

		resolved, err := s.resolve(ss, matchID)
		if err != nil || resolved {
			return err
		}
		return s.stage(ss, m, p)
	})
}

// stage persists a partial report, or drops the row once nothing is left in it.
func (s *scoringService) stage(ss *session, m brackets.Match, p *models.MatchProgress) error {
	empty := true
	for _, st := range p.States {
		if st == models.SlotScored {
			empty = false
		}
	}
	if empty {
		delete(ss.st.progress, m.ID)
		if err := s.repos.Progress.Delete(ss.ctx, ss.exec, p.TournamentID, m.ID); err != nil {
			return err
		}
	} else if err := s.repos.Progress.Upsert(ss.ctx, ss.exec, p); err != nil {
		return err
	}
	ss.outcome.Staged = append(ss.outcome.Staged, m.ID)
	ss.notify(brackets.MessageMatchStaged, matchPayload{TournamentID: p.TournamentID, Match: matchView(ss.st, m)})
	return nil
}

func (s *scoringService) ToggleForfeit(ctx context.Context, actor models.Actor, tournamentID int, seed int) (*ScoreOutcome, error) {
	return s.run(ctx, actor, tournamentID, func(ss *session) error {
		if seed < 1 || seed > ss.st.engine.NumPlayers() {
			return ErrSeedNotFound
		}

		forfeited := !ss.st.forfeits[seed]
		ss.outcome.Forfeited = &forfeited
		if !forfeited {
			delete(ss.st.forfeits, seed)
			if err := s.repos.Forfeits.Remove(ss.ctx, ss.exec, tournamentID, seed); err != nil {
				return err
			}
			ss.notify(brackets.MessageForfeitToggled, forfeitPayload{TournamentID: tournamentID, Seed: seed})
			return nil
		}

		ss.st.forfeits[seed] = true
		if err := s.repos.Forfeits.Add(ss.ctx, ss.exec, tournamentID, seed); err != nil {
			return err
		}
		ss.notify(brackets.MessageForfeitToggled, forfeitPayload{TournamentID: tournamentID, Seed: seed, Forfeited: true})

		for _, m := range ss.st.engine.MatchesFor(seed) {
			if m.Scored() || !m.Playable() {
				continue
			}
			if _, err := s.resolve(ss, m.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *scoringService) ResolveCascade(ctx context.Context, actor models.Actor, tournamentID int, matchID brackets.ID) (*ScoreOutcome, error) {
	return s.run(ctx, actor, tournamentID, func(ss *session) error {
		m, ok := ss.st.engine.FindMatch(matchID)
		if !ok {
			return ErrMatchNotFound
		}
		if !m.Scored() {
			_, err := s.resolve(ss, matchID)
			return err
		}
		return s.cascade(ss, matchID)
	})
}

func (s *scoringService) ScoreMatch(ctx context.Context, actor models.Actor, tournamentID int, matchID brackets.ID, score []int) (*ScoreOutcome, error) {
	return s.run(ctx, actor, tournamentID, func(ss *session) error {
		m, ok := ss.st.engine.FindMatch(matchID)
		if !ok {
			return ErrMatchNotFound
		}
		if !m.Playable() && !m.HasWalkover() {
			return ErrMatchNotPlayable
		}
		return s.apply(ss, matchID, score)
	})
}

// resolve scores matchID when its staged reports and forfeits decide it,
// then cascades. It reports whether the match was scored.
func (s *scoringService) resolve(ss *session, id brackets.ID) (bool, error) {
	m, ok := ss.st.engine.FindMatch(id)
	if !ok {
		return false, ErrMatchNotFound
	}
	if m.Scored() || !m.Playable() {
		return false, nil
	}
	score, ok := resolveScores(m, ss.st.progress[id], ss.st.forfeits, ss.st.engine.LowerScoreIsBetter())
	if !ok {
		return false, nil
	}
	return true, s.apply(ss, id, score)
}

// apply checks score against the engine without touching it, records it and
// follows the outcome into later matches.
func (s *scoringService) apply(ss *session, id brackets.ID, score []int) error {
	engine := ss.st.engine
	if reason := engine.Unscorable(id, score, false); reason != "" {
		return rejection(id, reason)
	}
	seated := make(map[brackets.ID][]int, len(ss.st.progress))
	for pid := range ss.st.progress {
		if m, ok := engine.FindMatch(pid); ok && pid != id {
			seated[pid] = m.Opponents
		}
	}
	if err := engine.Score(id, score); err != nil {
		return err
	}

	ev := &models.StoredEvent{
		TournamentID: ss.st.tournament.ID,
		Type:         brackets.EventScore,
		Section:      id.Section,
		Round:        id.Round,
		Match:        id.Match,
		Score:        score,
	}
	if ss.actor.UserID > 0 {
		ev.SubmittedBy = &ss.actor.UserID
	}
	if err := s.repos.Events.Append(ss.ctx, ss.exec, ev); err != nil {
		return err
	}
	ss.st.events = append(ss.st.events, *ev)

	if _, ok := ss.st.progress[id]; ok {
		delete(ss.st.progress, id)
		if err := s.repos.Progress.Delete(ss.ctx, ss.exec, ss.st.tournament.ID, id); err != nil {
			return err
		}
	}

	m, _ := engine.FindMatch(id)
	ss.outcome.Resolved = append(ss.outcome.Resolved, id)
	ss.notify(brackets.MessageMatchScored, matchPayload{TournamentID: ss.st.tournament.ID, Match: matchView(ss.st, m)})
	s.logger.Info("match scored",
		slog.Int("tournament_id", ss.st.tournament.ID), slog.String("match", engine.Label(id)), slog.Any("score", score))

	if err := s.unstageMoved(ss, seated); err != nil {
		return err
	}
	return s.cascade(ss, id)
}

// unstageMoved clears staged reports whose slot now holds a different seed
// than when they were reported. seated holds the opponents before the score.
func (s *scoringService) unstageMoved(ss *session, seated map[brackets.ID][]int) error {
	ids := make([]brackets.ID, 0, len(seated))
	for pid := range seated {
		ids = append(ids, pid)
	}
	slices.SortFunc(ids, func(a, b brackets.ID) int { return a.Compare(b) })

	for _, pid := range ids {
		m, _ := ss.st.engine.FindMatch(pid)
		p := ss.st.progress[pid]
		was := seated[pid]
		moved := false
		for i, seed := range m.Opponents {
			if i < len(was) && i < len(p.States) && was[i] != seed && p.States[i] == models.SlotScored {
				p.States[i], p.Scores[i] = models.SlotPending, 0
				moved = true
			}
		}
		if !moved {
			continue
		}
		s.logger.Info("staged score dropped after re-seat",
			slog.Int("tournament_id", ss.st.tournament.ID), slog.String("match", ss.st.engine.Label(pid)))
		if err := s.stage(ss, m, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *scoringService) cascade(ss *session, id brackets.ID) error {
	for _, next := range ss.st.engine.Next(id) {
		m, ok := ss.st.engine.FindMatch(next)
		if ok && m.Scored() && m.HasWalkover() {
			// already passed on by the engine
			if err := s.cascade(ss, next); err != nil {
				return err
			}
			continue
		}
		if _, err := s.resolve(ss, next); err != nil {
			return err
		}
	}
	return nil
}

// completeIfDone stores the final standings and locks the tournament once
// the engine reports it finished.
func (s *scoringService) completeIfDone(ss *session) error {
	if !ss.st.engine.IsDone() {
		return nil
	}
	standings := toStandings(ss.st, ss.st.engine.Results())
	if err := s.repos.Standings.ReplaceAll(ss.ctx, ss.exec, ss.st.tournament.ID, standings); err != nil {
		return err
	}
	now := s.now()
	if err := s.repos.Tournaments.MarkCompleted(ss.ctx, ss.exec, ss.st.tournament.ID, now); err != nil {
		return mapRepoError(err)
	}
	ss.st.tournament.Status = models.StatusCompleted
	ss.st.tournament.CompletedAt = &now
	ss.outcome.Completed = true
	ss.notify(brackets.MessageTournamentCompleted, completedPayload{TournamentID: ss.st.tournament.ID, Standings: standings})
	s.logger.Info("tournament completed", slog.Int("tournament_id", ss.st.tournament.ID))
	return nil
}

type tournamentArchive struct {
	Tournament *models.Tournament    `json:"tournament"`
	Seeds      []models.BracketSeed  `json:"seeds"`
	Events     []brackets.StateEvent `json:"events"`
	Matches    []brackets.Match      `json:"matches"`
	Results    []brackets.Result     `json:"results"`
}

// archive uploads the finished tournament. Failures are logged only: the
// tournament is already completed and the log in the database is the source
// of truth.
func (s *scoringService) archive(ctx context.Context, st *tournamentState) string {
	id := st.tournament.ID
	body, err := json.Marshal(tournamentArchive{
		Tournament: st.tournament,
		Seeds:      st.seeds,
		Events:     st.engine.State(),
		Matches:    st.engine.Matches(),
		Results:    st.engine.Results(),
	})
	if err != nil {
		s.logger.Error("failed to encode archive", slog.Int("tournament_id", id), slog.Any("error", err))
		return ""
	}

	key := storage.ArchiveKey(id)
	res, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, storage.ErrArchiveDisabled) {
			s.logger.Debug("archive storage disabled", slog.Int("tournament_id", id))
		} else {
			s.logger.Error("failed to upload archive", slog.Int("tournament_id", id), slog.Any("error", err))
		}
		return ""
	}
	if err := s.repos.Tournaments.SetArchiveKey(ctx, nil, id, res.Key); err != nil {
		s.logger.Error("failed to store archive key", slog.Int("tournament_id", id), slog.String("key", res.Key), slog.Any("error", err))
		// nothing points at the object now
		if err := s.uploader.Delete(ctx, res.Key); err != nil {
			s.logger.Warn("failed to remove orphaned archive", slog.Int("tournament_id", id), slog.String("key", res.Key), slog.Any("error", err))
		}
		return ""
	}
	return res.Location
}

var _ Notifier = (*brackets.Hub)(nil)
