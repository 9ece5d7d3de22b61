package lottery

import (
	"fmt"
	"strings"
)

// PrizeLevel is one of the fixed award tiers. The declaration order is the
// ordinal used to break probability ties and to order status output.
type PrizeLevel int

const (
	LevelSpecial PrizeLevel = iota
	LevelFirst
	LevelSecond
	LevelThird
	LevelParticipate
	LevelNone
)

type levelInfo struct {
	identifier  string
	displayName string
	emoji       string
}

var levelTable = [...]levelInfo{
	LevelSpecial:     {"SPECIAL", "特賞", "🎊"},
	LevelFirst:       {"FIRST", "一等賞", "🥇"},
	LevelSecond:      {"SECOND", "二等賞", "🥈"},
	LevelThird:       {"THIRD", "三等賞", "🥉"},
	LevelParticipate: {"PARTICIPATE", "参加賞", "🎁"},
	LevelNone:        {"NONE", "はずれ", "😢"},
}

// Levels returns every level in ordinal order, NONE included.
func Levels() []PrizeLevel {
	return []PrizeLevel{LevelSpecial, LevelFirst, LevelSecond, LevelThird, LevelParticipate, LevelNone}
}

// AdminLevels are the levels an administrator may reconfigure at runtime.
func AdminLevels() []PrizeLevel {
	return []PrizeLevel{LevelSpecial, LevelFirst, LevelSecond, LevelThird}
}

// ParseAdminLevel resolves an identifier or display name to one of AdminLevels.
func ParseAdminLevel(v string) (PrizeLevel, bool) {
	l, ok := ParseLevel(v)
	if !ok {
		l, ok = LevelByDisplayName(strings.TrimSpace(v))
	}
	if !ok || l > LevelThird {
		return LevelNone, false
	}
	return l, true
}

func (l PrizeLevel) valid() bool {
	return l >= LevelSpecial && l <= LevelNone
}

// String returns the storage identifier, e.g. "SPECIAL".
func (l PrizeLevel) String() string {
	if !l.valid() {
		return fmt.Sprintf("PrizeLevel(%d)", int(l))
	}
	return levelTable[l].identifier
}

// DisplayName returns the name shown to users and stored in the winners map.
func DisplayName(l PrizeLevel) string {
	if !l.valid() {
		return ""
	}
	return levelTable[l].displayName
}

func Emoji(l PrizeLevel) string {
	if !l.valid() {
		return ""
	}
	return levelTable[l].emoji
}

// ParseLevel resolves a storage or config identifier, ignoring case.
func ParseLevel(identifier string) (PrizeLevel, bool) {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	for l, info := range levelTable {
		if info.identifier == id {
			return PrizeLevel(l), true
		}
	}
	return LevelNone, false
}

// LevelByDisplayName resolves a user-facing level name such as "一等賞".
func LevelByDisplayName(name string) (PrizeLevel, bool) {
	for l, info := range levelTable {
		if info.displayName == name {
			return PrizeLevel(l), true
		}
	}
	return LevelNone, false
}
