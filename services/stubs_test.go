package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the database. memTx snapshots it so a
// failed unit of work leaves no trace, like a rolled back transaction.
type memStore struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]models.Tournament
	seeds       map[int][]models.BracketSeed
	events      map[int][]models.StoredEvent
	progress    map[int]map[brackets.ID]models.MatchProgress
	forfeits    map[int]map[int]bool
	standings   map[int][]models.Standing

	// archiveKeyErr, when set, makes SetArchiveKey fail.
	archiveKeyErr error
}

func newMemStore() *memStore {
	return &memStore{
		tournaments: make(map[int]models.Tournament),
		seeds:       make(map[int][]models.BracketSeed),
		events:      make(map[int][]models.StoredEvent),
		progress:    make(map[int]map[brackets.ID]models.MatchProgress),
		forfeits:    make(map[int]map[int]bool),
		standings:   make(map[int][]models.Standing),
	}
}

func cloneProgress(p models.MatchProgress) models.MatchProgress {
	p.States = slices.Clone(p.States)
	p.Scores = slices.Clone(p.Scores)
	return p
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	c.nextID = s.nextID
	for k, v := range s.tournaments {
		c.tournaments[k] = v
	}
	for k, v := range s.seeds {
		c.seeds[k] = slices.Clone(v)
	}
	for k, v := range s.events {
		evs := make([]models.StoredEvent, len(v))
		for i, e := range v {
			e.Score = slices.Clone(e.Score)
			evs[i] = e
		}
		c.events[k] = evs
	}
	for k, v := range s.progress {
		c.progress[k] = make(map[brackets.ID]models.MatchProgress)
		for id, p := range v {
			c.progress[k][id] = cloneProgress(p)
		}
	}
	for k, v := range s.forfeits {
		c.forfeits[k] = make(map[int]bool)
		for seed := range v {
			c.forfeits[k][seed] = true
		}
	}
	for k, v := range s.standings {
		c.standings[k] = slices.Clone(v)
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.nextID = from.nextID
	s.tournaments = from.tournaments
	s.seeds = from.seeds
	s.events = from.events
	s.progress = from.progress
	s.forfeits = from.forfeits
	s.standings = from.standings
}

func (s *memStore) repos() Repositories {
	return Repositories{
		Tournaments: memTournaments{s},
		Seeds:       memSeeds{s},
		Events:      memEvents{s},
		Progress:    memProgress{s},
		Forfeits:    memForfeits{s},
		Standings:   memStandings{s},
	}
}

type memTx struct{ store *memStore }

func (t memTx) WithTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.store.mu.Lock()
	before := t.store.snapshot()
	t.store.mu.Unlock()

	if err := fn(nil); err != nil {
		t.store.mu.Lock()
		t.store.restore(before)
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type memTournaments struct{ s *memStore }

func (r memTournaments) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.tournaments {
		if other.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.s.nextID++
	t.ID = r.s.nextID
	t.CreatedAt = time.Now()
	r.s.tournaments[t.ID] = *t
	return nil
}

func (r memTournaments) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r memTournaments) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memTournaments) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Tournament, 0)
	for id := 1; id <= r.s.nextID; id++ {
		t, ok := r.s.tournaments[id]
		if !ok || (filter.Status != nil && t.Status != *filter.Status) || (filter.Kind != nil && t.Kind != *filter.Kind) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r memTournaments) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusCompleted
	t.CompletedAt = &at
	r.s.tournaments[id] = t
	return nil
}

func (r memTournaments) SetArchiveKey(ctx context.Context, exec repositories.SQLExecutor, id int, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.archiveKeyErr != nil {
		return r.s.archiveKeyErr
	}
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.ArchiveKey = &key
	r.s.tournaments[id] = t
	return nil
}

type memSeeds struct{ s *memStore }

func (r memSeeds) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, opponents []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, o := range opponents {
		r.s.seeds[tournamentID] = append(r.s.seeds[tournamentID], models.BracketSeed{TournamentID: tournamentID, Seed: i + 1, Opponent: o})
	}
	return nil
}

func (r memSeeds) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.BracketSeed, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.seeds[tournamentID]), nil
}

type memEvents struct{ s *memStore }

func (r memEvents) Append(ctx context.Context, exec repositories.SQLExecutor, e *models.StoredEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.Seq = len(r.s.events[e.TournamentID]) + 1
	e.CreatedAt = time.Now()
	stored := *e
	stored.Score = slices.Clone(e.Score)
	r.s.events[e.TournamentID] = append(r.s.events[e.TournamentID], stored)
	return nil
}

func (r memEvents) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.StoredEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.StoredEvent, len(r.s.events[tournamentID]))
	for i, e := range r.s.events[tournamentID] {
		e.Score = slices.Clone(e.Score)
		out[i] = e
	}
	return out, nil
}

type memProgress struct{ s *memStore }

func (r memProgress) Get(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, id brackets.ID) (*models.MatchProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.progress[tournamentID][id]
	if !ok {
		return nil, repositories.ErrProgressNotFound
	}
	p = cloneProgress(p)
	return &p, nil
}

func (r memProgress) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.MatchProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.MatchProgress, 0)
	for _, p := range r.s.progress[tournamentID] {
		out = append(out, cloneProgress(p))
	}
	slices.SortFunc(out, func(a, b models.MatchProgress) int { return a.MatchID.Compare(b.MatchID) })
	return out, nil
}

func (r memProgress) Upsert(ctx context.Context, exec repositories.SQLExecutor, p *models.MatchProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.progress[p.TournamentID] == nil {
		r.s.progress[p.TournamentID] = make(map[brackets.ID]models.MatchProgress)
	}
	p.UpdatedAt = time.Now()
	r.s.progress[p.TournamentID][p.MatchID] = cloneProgress(*p)
	return nil
}

func (r memProgress) Delete(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, id brackets.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.progress[tournamentID], id)
	return nil
}

type memForfeits struct{ s *memStore }

func (r memForfeits) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]int, 0)
	for seed := range r.s.forfeits[tournamentID] {
		out = append(out, seed)
	}
	slices.Sort(out)
	return out, nil
}

func (r memForfeits) Add(ctx context.Context, exec repositories.SQLExecutor, tournamentID, seed int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.forfeits[tournamentID] == nil {
		r.s.forfeits[tournamentID] = make(map[int]bool)
	}
	r.s.forfeits[tournamentID][seed] = true
	return nil
}

func (r memForfeits) Remove(ctx context.Context, exec repositories.SQLExecutor, tournamentID, seed int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.forfeits[tournamentID], seed)
	return nil
}

type memStandings struct{ s *memStore }

func (r memStandings) ReplaceAll(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, standings []models.Standing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.standings[tournamentID] = slices.Clone(standings)
	return nil
}

func (r memStandings) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Standing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.standings[tournamentID]), nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []brackets.WebSocketMessage
}

func (n *recordingNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message.(brackets.WebSocketMessage))
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	for i, m := range n.messages {
		out[i] = m.Type
	}
	return out
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *memUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string { return "https://archive.test/" + key }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store      *memStore
	notifier   *recordingNotifier
	uploader   *memUploader
	tournament TournamentService
	scoring    ScoringService
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), notifier: &recordingNotifier{}, uploader: &memUploader{}}
	tx := memTx{f.store}
	logger := discardLogger()
	f.tournament = NewTournamentService(tx, f.store.repos(), f.uploader, logger)
	f.scoring = NewScoringService(tx, f.store.repos(), f.uploader, f.notifier, logger)
	return f
}

var organizer = models.Actor{UserID: 7, Role: models.RoleOrganizer}

// create stores a tournament of n opponents named P1..Pn and returns its id.
func (f *fixture) create(t *testing.T, kind brackets.Kind, settings string, n int) int {
	t.Helper()
	opponents := make([]string, n)
	for i := range opponents {
		opponents[i] = fmt.Sprintf("P%d", i+1)
	}
	input := CreateTournamentInput{Name: fmt.Sprintf("cup %d", f.store.nextID+1), Kind: kind, Opponents: opponents}
	if settings != "" {
		input.Settings = json.RawMessage(settings)
	}
	tr, err := f.tournament.CreateTournament(context.Background(), organizer, input)
	require.NoError(t, err)
	return tr.ID
}

func (f *fixture) progress(tournamentID int, id brackets.ID) (models.MatchProgress, bool) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	p, ok := f.store.progress[tournamentID][id]
	return p, ok
}

func (f *fixture) events(tournamentID int) []models.StoredEvent {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return slices.Clone(f.store.events[tournamentID])
}
