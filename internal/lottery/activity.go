package lottery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/logger"
)

// PrizeConfig is the live configuration of one level inside an activity.
// Remaining only decreases, except when the level is reconfigured.
type PrizeConfig struct {
	Probability float64 `json:"probability"`
	Count       int     `json:"count"`
	Remaining   int     `json:"remaining"`
	Name        string  `json:"name"`
}

// Activity is one lottery event scoped to a single group.
type Activity struct {
	GroupID      string
	Active       bool
	CreatedAt    time.Time
	Participants map[string]string // user id -> nickname
	Winners      map[string]string // user id -> level display name
	Prizes       map[PrizeLevel]PrizeConfig
}

// NewActivity creates an inactive activity whose prize table is a fresh copy
// of the template.
func NewActivity(groupID string, template Template, now time.Time) *Activity {
	return &Activity{
		GroupID:      groupID,
		CreatedAt:    now,
		Participants: make(map[string]string),
		Winners:      make(map[string]string),
		Prizes:       template.prizes(),
	}
}

// AddParticipant registers a user. It returns false without changing
// anything when the user is already registered.
func (a *Activity) AddParticipant(userID, nickname string) bool {
	if _, ok := a.Participants[userID]; ok {
		return false
	}
	a.Participants[userID] = nickname
	return true
}

func (a *Activity) HasParticipated(userID string) bool {
	_, ok := a.Participants[userID]
	return ok
}

// AddWinner records (or overwrites) the win of a user.
func (a *Activity) AddWinner(userID string, level PrizeLevel) {
	a.Winners[userID] = DisplayName(level)
}

// Timestamp is an ISO-8601 instant. It also reads the timezone-less form
// written by Python's datetime.isoformat().
type Timestamp struct {
	time.Time
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range localLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("created_at: unrecognized timestamp %q", s)
}

// ActivitySnapshot is the persisted form of an Activity.
type ActivitySnapshot struct {
	GroupID      string                 `json:"group_id"`
	IsActive     bool                   `json:"is_active"`
	CreatedAt    Timestamp              `json:"created_at"`
	Participants map[string]string      `json:"participants"`
	Winners      map[string]string      `json:"winners"`
	PrizeConfig  map[string]PrizeConfig `json:"prize_config"`
}

// Snapshot is the whole durable state: every activity keyed by group id.
type Snapshot struct {
	Activities map[string]ActivitySnapshot `json:"activities"`
}

// Snapshot returns a deep copy of the activity in persisted form.
func (a *Activity) Snapshot() ActivitySnapshot {
	prizes := make(map[string]PrizeConfig, len(a.Prizes))
	for l, cfg := range a.Prizes {
		prizes[l.String()] = cfg
	}
	return ActivitySnapshot{
		GroupID:      a.GroupID,
		IsActive:     a.Active,
		CreatedAt:    Timestamp{a.CreatedAt},
		Participants: copyStrings(a.Participants),
		Winners:      copyStrings(a.Winners),
		PrizeConfig:  prizes,
	}
}

// RestoreActivity rebuilds an activity from its snapshot. The template
// supplies every level; snapshot entries override it level by level. Entries
// for unknown levels, or levels the template does not carry, are dropped.
func RestoreActivity(s ActivitySnapshot, template Template) *Activity {
	a := NewActivity(s.GroupID, template, s.CreatedAt.Time)
	a.Active = s.IsActive
	a.Participants = copyStrings(s.Participants)
	a.Winners = copyStrings(s.Winners)

	for key, cfg := range s.PrizeConfig {
		lvl, ok := ParseLevel(key)
		if !ok {
			logger.Warningf("lottery: group %s: ignoring unknown prize level %q", s.GroupID, key)
			continue
		}
		if _, ok := a.Prizes[lvl]; !ok {
			logger.Warningf("lottery: group %s: ignoring prize level %s missing from template", s.GroupID, lvl)
			continue
		}
		a.Prizes[lvl] = cfg
	}
	return a
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
