package commands

import (
	"fmt"
	"strings"

	"github.com/susu3304/lotterybot/internal/lottery"
)

func formatDraw(userID string, res lottery.DrawResult) string {
	if !res.Won() {
		return fmt.Sprintf("%s <@%s> 残念、はずれです", lottery.Emoji(lottery.LevelNone), userID)
	}
	return fmt.Sprintf("%s <@%s> おめでとうございます！%sに当選しました: %s",
		lottery.Emoji(res.Level), userID, lottery.DisplayName(res.Level), res.PrizeName)
}

func formatPrizeSet(level lottery.PrizeLevel, probability float64, count int) string {
	return fmt.Sprintf("%s %sを設定しました:\n当選確率: %.1f %%\n賞品数: %d 個",
		lottery.Emoji(level), lottery.DisplayName(level), probability*100, count)
}

func formatStatus(st *lottery.Status) string {
	state := "終了"
	if st.Active {
		state = "進行中"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 抽選イベント%s\n", state)
	fmt.Fprintf(&b, "参加 %d 人　当選 %d 人\n", st.Participants, st.WinnerCount)
	b.WriteString("🎁 残りの賞品:")
	for _, p := range st.Prizes {
		label := p.LevelName
		if p.Name != p.LevelName {
			label = fmt.Sprintf("%s (%s)", p.LevelName, p.Name)
		}
		fmt.Fprintf(&b, "\n%s: %d/%d", label, p.Remaining, p.Total)
	}
	return b.String()
}

func formatWinners(st *lottery.Status) string {
	if len(st.Winners) == 0 {
		return "まだ当選者はいません"
	}

	var b strings.Builder
	b.WriteString("🏆 当選者一覧:")
	for _, g := range st.Winners {
		names := make([]string, 0, len(g.Winners))
		for _, w := range g.Winners {
			names = append(names, w.Nickname)
		}
		fmt.Fprintf(&b, "\n%s: %s", g.Level, strings.Join(names, "、"))
	}
	return b.String()
}
