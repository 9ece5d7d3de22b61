package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/logger"
)

var (
	ErrNoActivity             = errors.New("このサーバーには抽選イベントがありません")
	ErrNoActiveActivity       = errors.New("このサーバーには進行中の抽選イベントがありません")
	ErrActivityAlreadyActive  = errors.New("このサーバーには既に進行中の抽選イベントがあります")
	ErrActivityNotActive      = errors.New("抽選イベントは開始されていません")
	ErrActivityAlreadyStopped = errors.New("抽選イベントは既に終了しています")
	ErrAlreadyParticipated    = errors.New("既にこの抽選に参加しています")
	ErrUnknownLevel           = errors.New("この賞はイベントに設定されていません")

	// ErrNoSnapshot is returned by a Store that has nothing saved yet.
	ErrNoSnapshot = errors.New("no saved lottery state")
)

// Store persists the whole activity set.
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// Metrics receives lottery events. See internal/metrics.
type Metrics interface {
	DrawCompleted(level PrizeLevel)
	DrawRejected(reason string)
	PersistFailed()
	ActiveActivities(n int)
}

type nopMetrics struct{}

func (nopMetrics) DrawCompleted(PrizeLevel) {}
func (nopMetrics) DrawRejected(string)      {}
func (nopMetrics) PersistFailed()           {}
func (nopMetrics) ActiveActivities(int)     {}

// Manager owns every activity of the process. All operations are serialized
// by one mutex; each mutation is applied in memory first and then persisted.
// A failed persist is logged and retried by Flush, never rolled back.
type Manager struct {
	mu         sync.Mutex
	activities map[string]*Activity
	template   Template
	store      Store
	dirty      bool

	random  func() float64
	now     func() time.Time
	metrics Metrics
}

type Option func(*Manager)

// WithRandom replaces the uniform [0, 1) source used by Draw.
func WithRandom(f func() float64) Option {
	return func(m *Manager) { m.random = f }
}

func WithClock(f func() time.Time) Option {
	return func(m *Manager) { m.now = f }
}

func WithMetrics(mt Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

func NewManager(store Store, template Template, opts ...Option) *Manager {
	m := &Manager{
		activities: make(map[string]*Activity),
		template:   template,
		store:      store,
		random:     rand.Float64,
		now:        time.Now,
		metrics:    nopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Template() Template {
	return m.template
}

// DrawResult is the outcome of a successful Draw call.
type DrawResult struct {
	Level     PrizeLevel
	PrizeName string
}

func (r DrawResult) Won() bool {
	return r.Level != LevelNone
}

// StartActivity creates a fresh active activity for the group, replacing an
// ended one if present.
func (m *Manager) StartActivity(ctx context.Context, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.activities[groupID]; ok && a.Active {
		return ErrActivityAlreadyActive
	}
	a := NewActivity(groupID, m.template, m.now())
	a.Active = true
	m.activities[groupID] = a
	logger.Infof("lottery: group %s activity started", groupID)

	m.persist(ctx)
	return nil
}

func (m *Manager) StopActivity(ctx context.Context, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[groupID]
	if !ok {
		return ErrNoActivity
	}
	if !a.Active {
		return ErrActivityAlreadyStopped
	}
	a.Active = false
	logger.Infof("lottery: group %s activity stopped with %d winners", groupID, len(a.Winners))

	m.persist(ctx)
	return nil
}

// DeleteActivity removes the group's activity from memory and storage.
func (m *Manager) DeleteActivity(ctx context.Context, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.activities[groupID]; !ok {
		return ErrNoActivity
	}
	delete(m.activities, groupID)
	logger.Infof("lottery: group %s activity deleted", groupID)

	m.persist(ctx)
	return nil
}

// SetPrizeConfig replaces one level of the active activity. Stock is reset
// to count; the level's prize name is kept.
func (m *Manager) SetPrizeConfig(ctx context.Context, groupID string, level PrizeLevel, probability float64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[groupID]
	if !ok || !a.Active {
		return ErrNoActiveActivity
	}
	cur, ok := a.Prizes[level]
	if !ok {
		return ErrUnknownLevel
	}
	a.Prizes[level] = PrizeConfig{
		Probability: probability,
		Count:       count,
		Remaining:   count,
		Name:        cur.Name,
	}

	m.persist(ctx)
	return nil
}

// Draw registers the user and performs one allocation. Rejections leave the
// state untouched. Losing draws are persisted too.
func (m *Manager) Draw(ctx context.Context, groupID, userID, nickname string) (DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[groupID]
	if !ok {
		logger.Infof("lottery: group %s has no activity, draw rejected", groupID)
		m.metrics.DrawRejected("no_activity")
		return DrawResult{}, ErrNoActivity
	}
	if !a.Active {
		m.metrics.DrawRejected("not_active")
		return DrawResult{}, ErrActivityNotActive
	}
	if a.HasParticipated(userID) {
		logger.Infof("lottery: user %s already drew in group %s", userID, groupID)
		m.metrics.DrawRejected("already_participated")
		return DrawResult{}, ErrAlreadyParticipated
	}

	a.AddParticipant(userID, nickname)
	level := drawPrize(a, m.random())

	res := DrawResult{Level: level, PrizeName: DisplayName(level)}
	if level != LevelNone {
		a.AddWinner(userID, level)
		res.PrizeName = a.Prizes[level].Name
		logger.Infof("lottery: user %s won %s (%s) in group %s", userID, level, res.PrizeName, groupID)
	}
	m.metrics.DrawCompleted(level)

	m.persist(ctx)
	return res, nil
}

// PrizeStatus is the stock of one level.
type PrizeStatus struct {
	Level     PrizeLevel `json:"-"`
	LevelName string     `json:"level"`
	Name      string     `json:"name"`
	Remaining int        `json:"remaining"`
	Total     int        `json:"total"`
}

type Winner struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// WinnerGroup lists the winners of one level display name.
type WinnerGroup struct {
	Level   string   `json:"level"`
	Winners []Winner `json:"winners"`
}

// Status is a read-only summary of one activity.
type Status struct {
	GroupID      string        `json:"group_id"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
	Participants int           `json:"participants"`
	WinnerCount  int           `json:"winner_count"`
	Prizes       []PrizeStatus `json:"prizes"`
	Winners      []WinnerGroup `json:"winners"`
}

// Status summarizes the group's activity. Levels with zero probability are
// omitted from Prizes.
func (m *Manager) Status(groupID string) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[groupID]
	if !ok {
		return nil, ErrNoActivity
	}

	st := &Status{
		GroupID:      a.GroupID,
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		Participants: len(a.Participants),
		WinnerCount:  len(a.Winners),
	}
	for _, l := range Levels() {
		cfg, ok := a.Prizes[l]
		if !ok || cfg.Probability <= 0 {
			continue
		}
		st.Prizes = append(st.Prizes, PrizeStatus{
			Level:     l,
			LevelName: DisplayName(l),
			Name:      cfg.Name,
			Remaining: cfg.Remaining,
			Total:     cfg.Count,
		})
	}

	groups := make(map[string][]Winner)
	for uid, lvl := range a.Winners {
		nick, ok := a.Participants[uid]
		if !ok || nick == "" {
			nick = uid
		}
		groups[lvl] = append(groups[lvl], Winner{UserID: uid, Nickname: nick})
	}
	for lvl, ws := range groups {
		sort.Slice(ws, func(i, j int) bool { return ws[i].UserID < ws[j].UserID })
		st.Winners = append(st.Winners, WinnerGroup{Level: lvl, Winners: ws})
	}
	sort.Slice(st.Winners, func(i, j int) bool {
		ri, rj := winnerGroupRank(st.Winners[i].Level), winnerGroupRank(st.Winners[j].Level)
		if ri != rj {
			return ri < rj
		}
		return st.Winners[i].Level < st.Winners[j].Level
	})
	return st, nil
}

func winnerGroupRank(name string) int {
	if l, ok := LevelByDisplayName(name); ok {
		return int(l)
	}
	return len(levelTable)
}

// GroupIDs returns the ids of every known activity, sorted.
func (m *Manager) GroupIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.activities))
	for id := range m.activities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Restore replaces the in-memory state with the stored one. On any error the
// current state is kept.
func (m *Manager) Restore(ctx context.Context) error {
	snap, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return err
		}
		return fmt.Errorf("load lottery state: %w", err)
	}

	activities := make(map[string]*Activity, len(snap.Activities))
	for gid, s := range snap.Activities {
		// The document key names the group even when the entry omits it.
		if s.GroupID == "" {
			s.GroupID = gid
		}
		activities[gid] = RestoreActivity(s, m.template)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = activities
	m.metrics.ActiveActivities(m.countActiveLocked())
	logger.Infof("lottery: restored %d activities", len(activities))
	return nil
}

// Flush re-saves the state if the last persist failed.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}
	if err := m.store.Save(ctx, m.snapshotLocked()); err != nil {
		m.metrics.PersistFailed()
		return fmt.Errorf("flush lottery state: %w", err)
	}
	m.dirty = false
	logger.Infof("lottery: flushed pending state")
	return nil
}

// persist writes the full state. Callers hold m.mu.
func (m *Manager) persist(ctx context.Context) {
	m.metrics.ActiveActivities(m.countActiveLocked())
	if err := m.store.Save(ctx, m.snapshotLocked()); err != nil {
		logger.Errorf("lottery: failed to save state: %v", err)
		m.metrics.PersistFailed()
		m.dirty = true
		return
	}
	m.dirty = false
}

func (m *Manager) snapshotLocked() *Snapshot {
	snap := &Snapshot{Activities: make(map[string]ActivitySnapshot, len(m.activities))}
	for gid, a := range m.activities {
		snap.Activities[gid] = a.Snapshot()
	}
	return snap
}

func (m *Manager) countActiveLocked() int {
	n := 0
	for _, a := range m.activities {
		if a.Active {
			n++
		}
	}
	return n
}
