package database

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/models"
)

// MemoryStore keeps every entity in process memory. A Tx works on a copy of
// the state that replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore returns an empty store in the lobby phase.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) View(ctx context.Context, fn func(q Queries) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *MemoryStore) Tx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) Close() {}

type memState struct {
	game     models.GameState
	players  map[string]models.Player
	teams    map[int64]models.Team
	elims    []models.EliminationRecord
	reports  map[uuid.UUID]models.EliminationReport
	votes    map[uuid.UUID]map[string]models.ReportVote
	joins    map[uuid.UUID]models.JoinRequest
	pending  map[string]models.PendingRegistration
	disputes map[int64]models.Dispute

	playerSeq, teamSeq, elimSeq, disputeSeq int64
}

func newMemState() *memState {
	return &memState{
		game:     *models.NewGameState(),
		players:  make(map[string]models.Player),
		teams:    make(map[int64]models.Team),
		reports:  make(map[uuid.UUID]models.EliminationReport),
		votes:    make(map[uuid.UUID]map[string]models.ReportVote),
		joins:    make(map[uuid.UUID]models.JoinRequest),
		pending:  make(map[string]models.PendingRegistration),
		disputes: make(map[int64]models.Dispute),
	}
}

func (m *memState) clone() *memState {
	c := &memState{
		game:       cloneGameState(m.game),
		players:    make(map[string]models.Player, len(m.players)),
		teams:      make(map[int64]models.Team, len(m.teams)),
		elims:      append([]models.EliminationRecord(nil), m.elims...),
		reports:    make(map[uuid.UUID]models.EliminationReport, len(m.reports)),
		votes:      make(map[uuid.UUID]map[string]models.ReportVote, len(m.votes)),
		joins:      make(map[uuid.UUID]models.JoinRequest, len(m.joins)),
		pending:    make(map[string]models.PendingRegistration, len(m.pending)),
		disputes:   make(map[int64]models.Dispute, len(m.disputes)),
		playerSeq:  m.playerSeq,
		teamSeq:    m.teamSeq,
		elimSeq:    m.elimSeq,
		disputeSeq: m.disputeSeq,
	}
	for k, v := range m.players {
		c.players[k] = clonePlayer(v)
	}
	for k, v := range m.teams {
		c.teams[k] = cloneTeam(v)
	}
	for k, v := range m.reports {
		c.reports[k] = v
	}
	for k, v := range m.votes {
		vs := make(map[string]models.ReportVote, len(v))
		for voter, vote := range v {
			vs[voter] = vote
		}
		c.votes[k] = vs
	}
	for k, v := range m.joins {
		c.joins[k] = v
	}
	for k, v := range m.pending {
		c.pending[k] = v
	}
	for k, v := range m.disputes {
		c.disputes[k] = v
	}
	return c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneGameState(g models.GameState) models.GameState {
	g.StartedAt = copyPtr(g.StartedAt)
	g.EndsAt = copyPtr(g.EndsAt)
	g.EndedAt = copyPtr(g.EndedAt)
	g.WinnerTeamID = copyPtr(g.WinnerTeamID)
	return g
}

func clonePlayer(p models.Player) models.Player {
	p.TeamID = copyPtr(p.TeamID)
	return p
}

func cloneTeam(t models.Team) models.Team {
	t.OwnerID = copyPtr(t.OwnerID)
	t.TargetTeamID = copyPtr(t.TargetTeamID)
	return t
}

func (m *memState) GetGameState(ctx context.Context) (*models.GameState, error) {
	g := cloneGameState(m.game)
	return &g, nil
}

func (m *memState) SaveGameState(ctx context.Context, st *models.GameState) error {
	m.game = cloneGameState(*st)
	return nil
}

func (m *memState) CreatePlayer(ctx context.Context, p *models.Player) error {
	if _, ok := m.players[p.ID]; ok {
		return ErrDuplicate
	}
	m.playerSeq++
	p.Seq = m.playerSeq
	m.players[p.ID] = clonePlayer(*p)
	return nil
}

func (m *memState) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePlayer(p)
	return &p, nil
}

func (m *memState) UpdatePlayer(ctx context.Context, p *models.Player) error {
	if _, ok := m.players[p.ID]; !ok {
		return ErrNotFound
	}
	m.players[p.ID] = clonePlayer(*p)
	return nil
}

func (m *memState) ListPlayers(ctx context.Context) ([]models.Player, error) {
	out := make([]models.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, clonePlayer(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *memState) ListTeamMembers(ctx context.Context, teamID int64) ([]models.Player, error) {
	all, _ := m.ListPlayers(ctx)
	out := all[:0]
	for _, p := range all {
		if p.OnTeam(teamID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memState) CreateTeam(ctx context.Context, t *models.Team) error {
	for _, existing := range m.teams {
		if existing.Name == t.Name {
			return ErrDuplicate
		}
	}
	m.teamSeq++
	t.ID = m.teamSeq
	m.teams[t.ID] = cloneTeam(*t)
	return nil
}

func (m *memState) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	t = cloneTeam(t)
	return &t, nil
}

func (m *memState) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	for _, t := range m.teams {
		if t.Name == name {
			t = cloneTeam(t)
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memState) UpdateTeam(ctx context.Context, t *models.Team) error {
	if _, ok := m.teams[t.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.teams {
		if id != t.ID && existing.Name == t.Name {
			return ErrDuplicate
		}
	}
	m.teams[t.ID] = cloneTeam(*t)
	return nil
}

func (m *memState) DeleteTeam(ctx context.Context, id int64) error {
	delete(m.teams, id)
	for jid, jr := range m.joins {
		if jr.TeamID == id {
			delete(m.joins, jid)
		}
	}
	return nil
}

func (m *memState) ListTeams(ctx context.Context) ([]models.Team, error) {
	out := make([]models.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, cloneTeam(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memState) InsertElimination(ctx context.Context, rec *models.EliminationRecord) error {
	if rec.ReportID != nil {
		for _, e := range m.elims {
			if e.ReportID != nil && *e.ReportID == *rec.ReportID {
				return ErrDuplicate
			}
		}
	}
	m.elimSeq++
	rec.ID = m.elimSeq
	stored := *rec
	stored.ReportID = copyPtr(rec.ReportID)
	m.elims = append(m.elims, stored)
	return nil
}

func (m *memState) ListEliminations(ctx context.Context) ([]models.EliminationRecord, error) {
	return append([]models.EliminationRecord(nil), m.elims...), nil
}

func (m *memState) EliminationByReport(ctx context.Context, reportID uuid.UUID) (*models.EliminationRecord, error) {
	for _, e := range m.elims {
		if e.ReportID != nil && *e.ReportID == reportID {
			e.ReportID = copyPtr(e.ReportID)
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memState) KillCounts(ctx context.Context) (map[int64]int, error) {
	counts := make(map[int64]int)
	for _, e := range m.elims {
		p, ok := m.players[e.AssassinID]
		if !ok || p.TeamID == nil {
			continue
		}
		counts[*p.TeamID]++
	}
	return counts, nil
}

func (m *memState) CreateReport(ctx context.Context, r *models.EliminationReport) error {
	if _, ok := m.reports[r.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.reports {
		if existing.AssassinTeamID == r.AssassinTeamID && existing.TargetTeamID == r.TargetTeamID {
			return ErrDuplicate
		}
	}
	stored := *r
	stored.Deadline = copyPtr(r.Deadline)
	m.reports[r.ID] = stored
	return nil
}

func (m *memState) GetReport(ctx context.Context, id uuid.UUID) (*models.EliminationReport, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Deadline = copyPtr(r.Deadline)
	return &r, nil
}

func (m *memState) FindReportByEdge(ctx context.Context, assassinTeamID, targetTeamID int64) (*models.EliminationReport, error) {
	for _, r := range m.reports {
		if r.AssassinTeamID == assassinTeamID && r.TargetTeamID == targetTeamID {
			r.Deadline = copyPtr(r.Deadline)
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memState) DeleteReport(ctx context.Context, id uuid.UUID) error {
	delete(m.reports, id)
	delete(m.votes, id)
	return nil
}

func (m *memState) ListReports(ctx context.Context) ([]models.EliminationReport, error) {
	out := make([]models.EliminationReport, 0, len(m.reports))
	for _, r := range m.reports {
		r.Deadline = copyPtr(r.Deadline)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memState) SaveVote(ctx context.Context, v models.ReportVote) error {
	if _, ok := m.reports[v.ReportID]; !ok {
		return ErrNotFound
	}
	vs, ok := m.votes[v.ReportID]
	if !ok {
		vs = make(map[string]models.ReportVote)
		m.votes[v.ReportID] = vs
	}
	vs[v.VoterID] = v
	return nil
}

func (m *memState) ListVotes(ctx context.Context, reportID uuid.UUID) ([]models.ReportVote, error) {
	out := make([]models.ReportVote, 0, len(m.votes[reportID]))
	for _, v := range m.votes[reportID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoterID < out[j].VoterID })
	return out, nil
}

func (m *memState) CreateJoinRequest(ctx context.Context, jr *models.JoinRequest) error {
	if _, ok := m.joins[jr.ID]; ok {
		return ErrDuplicate
	}
	m.joins[jr.ID] = *jr
	return nil
}

func (m *memState) GetJoinRequest(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error) {
	jr, ok := m.joins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &jr, nil
}

func (m *memState) DeleteJoinRequest(ctx context.Context, id uuid.UUID) error {
	delete(m.joins, id)
	return nil
}

func (m *memState) ListJoinRequests(ctx context.Context) ([]models.JoinRequest, error) {
	out := make([]models.JoinRequest, 0, len(m.joins))
	for _, jr := range m.joins {
		out = append(out, jr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memState) CreatePendingRegistration(ctx context.Context, pr *models.PendingRegistration) error {
	if _, ok := m.pending[pr.UserID]; ok {
		return ErrDuplicate
	}
	m.pending[pr.UserID] = *pr
	return nil
}

func (m *memState) GetPendingRegistration(ctx context.Context, userID string) (*models.PendingRegistration, error) {
	pr, ok := m.pending[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &pr, nil
}

func (m *memState) DeletePendingRegistration(ctx context.Context, userID string) error {
	delete(m.pending, userID)
	return nil
}

func (m *memState) ListPendingRegistrations(ctx context.Context) ([]models.PendingRegistration, error) {
	out := make([]models.PendingRegistration, 0, len(m.pending))
	for _, pr := range m.pending {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (m *memState) CreateDispute(ctx context.Context, d *models.Dispute) error {
	m.disputeSeq++
	d.ID = m.disputeSeq
	m.disputes[d.ID] = *d
	return nil
}

func (m *memState) GetDispute(ctx context.Context, id int64) (*models.Dispute, error) {
	d, ok := m.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *memState) UpdateDispute(ctx context.Context, d *models.Dispute) error {
	if _, ok := m.disputes[d.ID]; !ok {
		return ErrNotFound
	}
	m.disputes[d.ID] = *d
	return nil
}

func (m *memState) ListDisputes(ctx context.Context) ([]models.Dispute, error) {
	out := make([]models.Dispute, 0, len(m.disputes))
	for _, d := range m.disputes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
