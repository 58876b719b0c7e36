package commands

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

// optionUser returns the id and display name of a user option, resolved
// against the interaction payload. ok is false when the option is missing
// or the id is not a snowflake.
func optionUser(data discordgo.ApplicationCommandInteractionData, opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, string, bool) {
	for _, o := range opts {
		if o.Name != name {
			continue
		}
		raw, _ := o.Value.(string)
		if raw == "" {
			return 0, "", false
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, "", false
		}
		display := raw
		if data.Resolved != nil {
			if u, ok := data.Resolved.Users[raw]; ok {
				display = username(u)
			}
		}
		return id, display, true
	}
	return 0, "", false
}

func username(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func optionNumber(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *float64 {
	for _, o := range opts {
		if o.Name == name {
			v := o.FloatValue()
			return &v
		}
	}
	return nil
}

func optionBool(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, o := range opts {
		if o.Name == name {
			return o.BoolValue()
		}
	}
	return false
}
