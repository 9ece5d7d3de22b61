package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/susu3304/lotterybot/internal/lottery"
)

// publicLottery is the unauthenticated view; winner identities are left out.
type publicLottery struct {
	GroupID      string                `json:"group_id"`
	Active       bool                  `json:"active"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants int                   `json:"participants"`
	WinnerCount  int                   `json:"winner_count"`
	Prizes       []lottery.PrizeStatus `json:"prizes"`
}

func lotteryErrorStatus(err error) int {
	switch {
	case errors.Is(err, lottery.ErrNoActivity),
		errors.Is(err, lottery.ErrNoActiveActivity),
		errors.Is(err, lottery.ErrUnknownLevel):
		return http.StatusNotFound
	case errors.Is(err, lottery.ErrActivityAlreadyActive),
		errors.Is(err, lottery.ErrActivityNotActive),
		errors.Is(err, lottery.ErrActivityAlreadyStopped),
		errors.Is(err, lottery.ErrAlreadyParticipated):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeLotteryError(w http.ResponseWriter, err error) {
	writeError(w, lotteryErrorStatus(err), err.Error())
}

func validGuildID(id string) bool {
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}

// Public handlers
func (a *API) handlePublicLottery(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guild_id"]
	if !validGuildID(guildID) {
		writeError(w, http.StatusBadRequest, "invalid guild_id")
		return
	}

	st, err := a.lottery.Status(guildID)
	if err != nil {
		writeLotteryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, publicLottery{
		GroupID:      st.GroupID,
		Active:       st.Active,
		CreatedAt:    st.CreatedAt,
		Participants: st.Participants,
		WinnerCount:  st.WinnerCount,
		Prizes:       st.Prizes,
	})
}

// Protected handlers
func (a *API) handleUserGuilds(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	guilds, err := a.getDiscordGuilds(claims.AccessToken)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to get guilds: %v", err))
		return
	}

	known := make(map[string]bool)
	for _, id := range a.lottery.GroupIDs() {
		known[id] = true
	}

	filtered := []DiscordGuild{}
	for _, guild := range guilds {
		if known[guild.ID] {
			filtered = append(filtered, guild)
		}
	}

	writeJSON(w, http.StatusOK, filtered)
}

// authorizeGuild checks the caller belongs to the guild in the path, and
// manages it when manage is set.
func (a *API) authorizeGuild(w http.ResponseWriter, r *http.Request, manage bool) (string, bool) {
	guildID := mux.Vars(r)["guild_id"]
	if !validGuildID(guildID) {
		writeError(w, http.StatusBadRequest, "invalid guild_id")
		return "", false
	}

	claims := claimsFrom(r)
	access := a.guildAccess(claims.AccessToken, guildID)
	if !access.member || (manage && !access.manager) {
		writeError(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return guildID, true
}

func (a *API) writeStatus(w http.ResponseWriter, guildID string) {
	st, err := a.lottery.Status(guildID)
	if err != nil {
		writeLotteryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleGetLottery(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r, false)
	if !ok {
		return
	}
	a.writeStatus(w, guildID)
}

func (a *API) handleStartLottery(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r, true)
	if !ok {
		return
	}
	if err := a.lottery.StartActivity(r.Context(), guildID); err != nil {
		writeLotteryError(w, err)
		return
	}
	a.writeStatus(w, guildID)
}

func (a *API) handleStopLottery(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r, true)
	if !ok {
		return
	}
	if err := a.lottery.StopActivity(r.Context(), guildID); err != nil {
		writeLotteryError(w, err)
		return
	}
	a.writeStatus(w, guildID)
}

func (a *API) handleSetPrize(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r, true)
	if !ok {
		return
	}

	level, ok := lottery.ParseAdminLevel(mux.Vars(r)["level"])
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown prize level")
		return
	}

	var req struct {
		Probability *float64 `json:"probability"`
		Count       *int     `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Probability == nil || req.Count == nil {
		writeError(w, http.StatusBadRequest, "probability and count are required")
		return
	}
	if *req.Probability < 0 || *req.Probability > 1 || *req.Count <= 0 {
		writeError(w, http.StatusBadRequest, "probability must be within [0,1] and count must be positive")
		return
	}

	if err := a.lottery.SetPrizeConfig(r.Context(), guildID, level, *req.Probability, *req.Count); err != nil {
		writeLotteryError(w, err)
		return
	}
	a.writeStatus(w, guildID)
}

func (a *API) handleDeleteLottery(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r, true)
	if !ok {
		return
	}
	if err := a.lottery.DeleteActivity(r.Context(), guildID); err != nil {
		writeLotteryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "lottery deleted",
	})
}
