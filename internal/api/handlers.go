package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tmcewan/cashgamebot/internal/ledger"
)

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ranked, err := a.ledger.Leaderboard(r.Context())
	if err != nil {
		http.Error(w, "failed to build leaderboard", http.StatusInternalServerError)
		return
	}
	if ranked == nil {
		ranked = []ledger.Ranked{}
	}
	writeJSON(w, ranked)
}

func (a *API) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.ledger.GetPlayers(r.Context())
	if err != nil {
		http.Error(w, "failed to list players", http.StatusInternalServerError)
		return
	}
	if players == nil {
		players = []ledger.Player{}
	}
	writeJSON(w, players)
}

func (a *API) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	player, err := a.ledger.GetPlayer(r.Context(), id)
	if errors.Is(err, ledger.ErrPlayerNotFound) {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to get player", http.StatusInternalServerError)
		return
	}
	writeJSON(w, player)
}

// handlePlayerDebts returns the pairwise netting for a player: positive
// amounts are owed to the player, negative owed by the player. With
// ?session=true only the active session's positive records count.
func (a *API) handlePlayerDebts(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	var owed map[int64]int64
	var err error
	if r.URL.Query().Get("session") == "true" {
		owed, err = a.ledger.OwedSession(r.Context(), id)
	} else {
		owed, err = a.ledger.Owed(r.Context(), id)
	}
	switch {
	case errors.Is(err, ledger.ErrPlayerNotFound):
		http.Error(w, "player not found", http.StatusNotFound)
		return
	case errors.Is(err, ledger.ErrNoSession):
		http.Error(w, "no active session", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "failed to compute debts", http.StatusInternalServerError)
		return
	}

	// JSON object keys must be strings.
	out := make(map[string]int64, len(owed))
	for cid, amount := range owed {
		out[strconv.FormatInt(cid, 10)] = amount
	}
	writeJSON(w, out)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.ledger.GetSession(r.Context())
	if err != nil {
		http.Error(w, "failed to read session", http.StatusInternalServerError)
		return
	}
	resp := map[string]interface{}{"is_session": sess.Active}
	if sess.Active {
		resp["session_start"] = sess.StartTime.Format(time.RFC3339)
		resp["bank_id"] = sess.BankID
	}
	writeJSON(w, resp)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	debts, err := a.ledger.GetDebts(r.Context())
	if err != nil {
		http.Error(w, "failed to read debt history", http.StatusInternalServerError)
		return
	}
	if debts == nil {
		debts = []ledger.Debt{}
	}
	writeJSON(w, debts)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := a.ledger.RefreshBalances(r.Context())
	if errors.Is(err, ledger.ErrIntegrity) {
		http.Error(w, fmt.Sprintf("refresh aborted: %v", err), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "failed to refresh balances", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{
		"message": "balances rebuilt",
	})
}

func playerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["player_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid player_id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
