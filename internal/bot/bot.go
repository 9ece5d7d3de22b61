package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/logger"
	"github.com/susu3304/lotterybot/internal/lottery"
)

type Bot struct {
	session *discordgo.Session
	lottery *lottery.Manager
	flusher *flushWorker
}

func New(token string, manager *lottery.Manager, flushInterval time.Duration) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		lottery: manager,
		flusher: newFlushWorker(manager, flushInterval),
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.flusher.start()
	logger.Info("Discord bot is running")
	return nil
}

// Stop halts the flush worker and closes the session. Pending lottery state
// is left for the caller's final Flush.
func (b *Bot) Stop() error {
	b.flusher.stop()
	return b.session.Close()
}
