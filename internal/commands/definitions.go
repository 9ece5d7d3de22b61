package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/lotterybot/internal/lottery"
)

func GetCommands() []*discordgo.ApplicationCommand {
	minProbability := 0.0
	minCount := 1.0

	var levelChoices []*discordgo.ApplicationCommandOptionChoice
	for _, l := range lottery.AdminLevels() {
		levelChoices = append(levelChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  lottery.DisplayName(l),
			Value: l.String(),
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         "lottery",
			Description:  "抽選イベント",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "抽選イベントを開始します（管理者）",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stop",
					Description: "抽選イベントを終了します（管理者）",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "抽選イベントを削除します（管理者）",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "賞の確率と数量を設定します（管理者）",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "level",
							Description: "賞",
							Required:    true,
							Choices:     levelChoices,
						},
						{
							Type:        discordgo.ApplicationCommandOptionNumber,
							Name:        "probability",
							Description: "当選確率 (0〜1)",
							Required:    true,
							MinValue:    &minProbability,
							MaxValue:    1,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "count",
							Description: "賞品の数",
							Required:    true,
							MinValue:    &minCount,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "draw",
					Description: "抽選に参加します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "抽選イベントの状況を表示します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "winners",
					Description: "当選者一覧を表示します",
				},
			},
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
