package commands

import (
	"testing"

	"github.com/susu3304/lotterybot/internal/lottery"
)

func TestFormatDraw(t *testing.T) {
	tests := []struct {
		name string
		res  lottery.DrawResult
		want string
	}{
		{
			"win",
			lottery.DrawResult{Level: lottery.LevelFirst, PrizeName: "温泉旅行"},
			"🥇 <@U1> おめでとうございます！一等賞に当選しました: 温泉旅行",
		},
		{
			"lose",
			lottery.DrawResult{Level: lottery.LevelNone, PrizeName: "はずれ"},
			"😢 <@U1> 残念、はずれです",
		},
	}
	for _, tt := range tests {
		if got := formatDraw("U1", tt.res); got != tt.want {
			t.Errorf("%s: Expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestFormatPrizeSet(t *testing.T) {
	got := formatPrizeSet(lottery.LevelSpecial, 0.015, 1)
	want := "🎊 特賞を設定しました:\n当選確率: 1.5 %\n賞品数: 1 個"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFormatStatus(t *testing.T) {
	st := &lottery.Status{
		Active:       true,
		Participants: 3,
		WinnerCount:  1,
		Prizes: []lottery.PrizeStatus{
			{Level: lottery.LevelSpecial, LevelName: "特賞", Name: "温泉旅行", Remaining: 0, Total: 1},
			{Level: lottery.LevelThird, LevelName: "三等賞", Name: "三等賞", Remaining: 9, Total: 10},
		},
	}
	want := "📊 抽選イベント進行中\n参加 3 人　当選 1 人\n🎁 残りの賞品:\n特賞 (温泉旅行): 0/1\n三等賞: 9/10"
	if got := formatStatus(st); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFormatWinners(t *testing.T) {
	if got := formatWinners(&lottery.Status{}); got != "まだ当選者はいません" {
		t.Errorf("Unexpected empty reply %q", got)
	}

	st := &lottery.Status{Winners: []lottery.WinnerGroup{
		{Level: "特賞", Winners: []lottery.Winner{{UserID: "U1", Nickname: "アリス"}}},
		{Level: "三等賞", Winners: []lottery.Winner{{UserID: "U2", Nickname: "bob"}, {UserID: "U3", Nickname: "U3"}}},
	}}
	want := "🏆 当選者一覧:\n特賞: アリス\n三等賞: bob、U3"
	if got := formatWinners(st); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
