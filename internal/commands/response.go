package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/google/logger"
)

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, content, 0)
}

// respondEphemeral replies so that only the invoking user sees the message.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, content, discordgo.MessageFlagsEphemeral)
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		logger.Errorf("commands: failed to respond to interaction: %v", err)
	}
}
