package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"dskdao/models"
	"dskdao/service"
)

// Handler exposes the service layer over HTTP
type Handler struct {
	services Services
}

// NewHandler returns a new Handler
func NewHandler(services Services) *Handler {
	return &Handler{services: services}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidBet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrItemInactive),
		errors.Is(err, service.ErrRaffleNotActive),
		errors.Is(err, service.ErrSoldOut),
		errors.Is(err, service.ErrPerUserLimitExceeded),
		errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}
		return fmt.Errorf("invalid JSON")
	}
	return nil
}

// GetOrCreateUser handles POST /users
func (h *Handler) GetOrCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiscordID int64  `json:"discordId"`
		Username  string `json:"username"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DiscordID <= 0 || req.Username == "" {
		writeError(w, http.StatusBadRequest, "discordId and username are required")
		return
	}

	user, err := h.services.Users.GetOrCreateUser(r.Context(), req.DiscordID, req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetBalance handles GET /users/{discordId}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	discordID, err := pathID(r, "discordId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balances, err := h.services.Balances.GetBalance(r.Context(), discordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"discordId":   discordID,
		"redeemable":  balances.Redeemable,
		"soulBound":   balances.SoulBound,
		"totalEarned": balances.TotalEarned,
	})
}

// GetTransactionHistory handles GET /users/{discordId}/transactions
func (h *Handler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	discordID, err := pathID(r, "discordId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), 20)

	var filter models.TransactionFilter
	if raw := q.Get("pointType"); raw != "" {
		pt := models.PointType(raw)
		if !pt.Valid() {
			writeError(w, http.StatusBadRequest, "invalid pointType")
			return
		}
		filter.PointType = &pt
	}
	if raw := q.Get("type"); raw != "" {
		tt := models.TransactionType(raw)
		filter.Type = &tt
	}

	txns, err := h.services.Balances.GetTransactionHistory(r.Context(), discordID, filter, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"page":         page,
		"limit":        limit,
	})
}

// GrantReward handles POST /users/{discordId}/rewards
func (h *Handler) GrantReward(w http.ResponseWriter, r *http.Request) {
	discordID, err := pathID(r, "discordId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		PointType models.PointType `json:"pointType"`
		Amount    int64            `json:"amount"`
		Reason    string           `json:"reason"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balances, err := h.services.Users.GrantDiscordReward(r.Context(), discordID, req.PointType, req.Amount, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balances)
}

// AdjustBalance handles POST /users/{discordId}/adjustments
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	discordID, err := pathID(r, "discordId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		PointType      models.PointType `json:"pointType"`
		Amount         int64            `json:"amount"`
		Reason         string           `json:"reason"`
		AdminDiscordID int64            `json:"adminDiscordId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AdminDiscordID <= 0 {
		writeError(w, http.StatusBadRequest, "adminDiscordId is required")
		return
	}

	balances, err := h.services.Balances.AdjustBalance(r.Context(), discordID, req.PointType, req.Amount, req.Reason, req.AdminDiscordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balances)
}

// GetActiveItems handles GET /shop/items
func (h *Handler) GetActiveItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.services.Shop.GetActiveItems(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetPurchaseHistory handles GET /users/{discordId}/purchases
func (h *Handler) GetPurchaseHistory(w http.ResponseWriter, r *http.Request) {
	discordID, err := pathID(r, "discordId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := queryInt(r.URL.Query().Get("limit"), 20)

	purchases, err := h.services.Shop.GetPurchaseHistory(r.Context(), discordID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

// Purchase handles POST /shop/purchases
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiscordID int64 `json:"discordId"`
		ItemID    int64 `json:"itemId"`
		Quantity  int64 `json:"quantity"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Shop.Purchase(r.Context(), req.DiscordID, req.ItemID, req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{
		"purchase":   result.Purchase,
		"newBalance": result.NewBalance,
	}
	if result.LootboxResult != nil {
		resp["lootboxResult"] = result.LootboxResult
	}
	if result.LootboxError != nil {
		resp["lootboxError"] = result.LootboxError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PlayGame handles POST /games/{gameId}/plays
func (h *Handler) PlayGame(w http.ResponseWriter, r *http.Request) {
	gameID := models.GameID(chi.URLParam(r, "gameId"))

	var req struct {
		DiscordID int64            `json:"discordId"`
		BetAmount int64            `json:"betAmount"`
		RiskLevel models.RiskLevel `json:"riskLevel"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Games.Play(r.Context(), req.DiscordID, gameID, req.BetAmount, req.RiskLevel)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetGameSession handles GET /games/{gameId}/sessions/{sessionId}
func (h *Handler) GetGameSession(w http.ResponseWriter, r *http.Request) {
	gameID := models.GameID(chi.URLParam(r, "gameId"))
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid sessionId")
		return
	}

	session, err := h.services.Games.GetSession(r.Context(), gameID, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GetLeaderboard handles GET /games/{gameId}/leaderboard
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	gameID := models.GameID(chi.URLParam(r, "gameId"))

	q := r.URL.Query()
	period := models.LeaderboardPeriod(q.Get("period"))
	if period == "" {
		period = models.LeaderboardPeriodAll
	}
	limit := queryInt(q.Get("limit"), 10)

	entries, err := h.services.Games.GetLeaderboard(r.Context(), gameID, period, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gameId":  gameID,
		"period":  period,
		"entries": entries,
	})
}

// GetActiveRaffles handles GET /raffles
func (h *Handler) GetActiveRaffles(w http.ResponseWriter, r *http.Request) {
	raffles, err := h.services.Raffles.GetActiveRaffles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"raffles": raffles})
}

// PurchaseRaffleEntries handles POST /raffles/{raffleId}/entries
func (h *Handler) PurchaseRaffleEntries(w http.ResponseWriter, r *http.Request) {
	raffleID, err := pathID(r, "raffleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		DiscordID       int64 `json:"discordId"`
		NumberOfEntries int64 `json:"numberOfEntries"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Raffles.PurchaseEntries(r.Context(), req.DiscordID, raffleID, req.NumberOfEntries)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ActivateRaffle handles POST /raffles/{raffleId}/activate
func (h *Handler) ActivateRaffle(w http.ResponseWriter, r *http.Request) {
	h.transitionRaffle(w, r, h.services.Raffles.ActivateRaffle)
}

// CancelRaffle handles POST /raffles/{raffleId}/cancel
func (h *Handler) CancelRaffle(w http.ResponseWriter, r *http.Request) {
	h.transitionRaffle(w, r, h.services.Raffles.CancelRaffle)
}

func (h *Handler) transitionRaffle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, raffleID int64) error) {
	raffleID, err := pathID(r, "raffleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := fn(r.Context(), raffleID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DrawRaffleWinner handles POST /raffles/{raffleId}/draw
func (h *Handler) DrawRaffleWinner(w http.ResponseWriter, r *http.Request) {
	raffleID, err := pathID(r, "raffleId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raffle, err := h.services.Raffles.DrawWinner(r.Context(), raffleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, raffle)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
