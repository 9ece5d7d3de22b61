package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Discord permission bits from the guild list's permissions field.
const (
	permissionAdministrator int64 = 1 << 3
	permissionManageGuild   int64 = 1 << 5
)

type DiscordUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
	Avatar     *string `json:"avatar"`
}

type DiscordGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       *bool  `json:"owner,omitempty"`
	Permissions string `json:"permissions,omitempty"`
}

// guildAccess is the caller's standing in one guild.
type guildAccess struct {
	member  bool
	manager bool
}

func (g DiscordGuild) canManage() bool {
	if g.Owner != nil && *g.Owner {
		return true
	}
	perms, err := strconv.ParseInt(g.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return perms&permissionAdministrator != 0 || perms&permissionManageGuild != 0
}

func (a *API) getDiscordUser(accessToken string) (*DiscordUser, error) {
	req, err := http.NewRequest("GET", "https://discord.com/api/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", "lotterybot/1.0 (+https://github.com/susu3304/lotterybot)")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	var user DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (a *API) getDiscordGuilds(accessToken string) ([]DiscordGuild, error) {
	req, err := http.NewRequest("GET", "https://discord.com/api/users/@me/guilds", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", "lotterybot/1.0 (+https://github.com/susu3304/lotterybot)")
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	var guilds []DiscordGuild
	if err := json.NewDecoder(resp.Body).Decode(&guilds); err != nil {
		return nil, err
	}

	return guilds, nil
}

func (a *API) discordGuildAccess(accessToken, guildID string) guildAccess {
	guilds, err := a.getDiscordGuilds(accessToken)
	if err != nil {
		return guildAccess{}
	}
	for _, guild := range guilds {
		if guild.ID == guildID {
			return guildAccess{member: true, manager: guild.canManage()}
		}
	}
	return guildAccess{}
}

func getUsername(user *DiscordUser) string {
	if user.GlobalName != nil && *user.GlobalName != "" {
		return *user.GlobalName
	}
	return user.Username
}
