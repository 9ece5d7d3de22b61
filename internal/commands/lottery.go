package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/lotterybot/internal/lottery"
)

type reply struct {
	content   string
	ephemeral bool
}

func rejected(content string) reply {
	return reply{content: content, ephemeral: true}
}

func HandleLottery(s *discordgo.Session, i *discordgo.InteractionCreate, m *lottery.Manager) {
	r := lotteryReply(context.Background(), i.Interaction, m)
	if r.ephemeral {
		respondEphemeral(s, i, r.content)
		return
	}
	respondText(s, i, r.content)
}

func lotteryReply(ctx context.Context, i *discordgo.Interaction, m *lottery.Manager) reply {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return rejected("サブコマンドが指定されていません")
	}
	if i.GuildID == "" {
		return rejected("このコマンドはサーバー内でのみ使用できます")
	}

	sub := data.Options[0]
	guildID := i.GuildID

	switch sub.Name {
	case "start", "stop", "reset", "set":
		if !isAdmin(i) {
			return rejected("このコマンドには「サーバー管理」権限が必要です")
		}
	}

	switch sub.Name {
	case "start":
		if err := m.StartActivity(ctx, guildID); err != nil {
			return rejected(err.Error())
		}
		return reply{content: "✅ 抽選イベントを開始しました！`/lottery draw` で参加できます"}

	case "stop":
		if err := m.StopActivity(ctx, guildID); err != nil {
			return rejected(err.Error())
		}
		return reply{content: "🛑 抽選イベントを終了しました"}

	case "reset":
		err := m.DeleteActivity(ctx, guildID)
		if errors.Is(err, lottery.ErrNoActivity) {
			return rejected("リセットする抽選イベントがありません")
		}
		if err != nil {
			return rejected(err.Error())
		}
		return reply{content: "🧹 抽選イベントを削除しました。再度開始できます"}

	case "set":
		return handleSet(ctx, guildID, sub.Options, m)

	case "draw":
		userID := interactionUserID(i)
		res, err := m.Draw(ctx, guildID, userID, resolveNickname(i))
		if err != nil {
			return rejected(err.Error())
		}
		return reply{content: formatDraw(userID, res)}

	case "status":
		st, err := m.Status(guildID)
		if err != nil {
			return rejected(err.Error())
		}
		return reply{content: formatStatus(st)}

	case "winners":
		st, err := m.Status(guildID)
		if err != nil {
			return rejected(err.Error())
		}
		return reply{content: formatWinners(st)}

	default:
		return rejected("未知のサブコマンドです")
	}
}

func handleSet(ctx context.Context, guildID string, opts []*discordgo.ApplicationCommandInteractionDataOption, m *lottery.Manager) reply {
	levelOpt := getStringOption(opts, "level")
	probOpt := getNumberOption(opts, "probability")
	countOpt := getIntOption(opts, "count")
	if levelOpt == nil || probOpt == nil || countOpt == nil {
		return rejected("level・probability・count をすべて指定してください")
	}

	level, ok := lottery.ParseAdminLevel(*levelOpt)
	if !ok {
		return rejected("未知の賞です: " + *levelOpt)
	}
	probability, count := *probOpt, int(*countOpt)
	if probability < 0 || probability > 1 || count <= 0 {
		return rejected("確率は 0〜1 の範囲、数量は正の整数で指定してください")
	}

	if err := m.SetPrizeConfig(ctx, guildID, level, probability, count); err != nil {
		return rejected(err.Error())
	}
	return reply{content: formatPrizeSet(level, probability, count)}
}

func isAdmin(i *discordgo.Interaction) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionManageServer != 0 ||
		i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// resolveNickname prefers the guild nickname over the account username.
func resolveNickname(i *discordgo.Interaction) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}
