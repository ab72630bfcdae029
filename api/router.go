package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dskdao/service"
)

// Services bundles the service layer dependencies of the API
type Services struct {
	Users    service.UserService
	Balances service.BalanceService
	Shop     service.ShopService
	Games    service.GameService
	Raffles  service.RaffleService
}

// NewRouter constructs the router with all API endpoints registered
func NewRouter(services Services) http.Handler {
	h := NewHandler(services)
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/users", h.GetOrCreateUser)
	r.Get("/users/{discordId}/balance", h.GetBalance)
	r.Get("/users/{discordId}/transactions", h.GetTransactionHistory)
	r.Get("/users/{discordId}/purchases", h.GetPurchaseHistory)
	r.Post("/users/{discordId}/rewards", h.GrantReward)
	r.Post("/users/{discordId}/adjustments", h.AdjustBalance)

	r.Get("/shop/items", h.GetActiveItems)
	r.Post("/shop/purchases", h.Purchase)

	r.Post("/games/{gameId}/plays", h.PlayGame)
	r.Get("/games/{gameId}/sessions/{sessionId}", h.GetGameSession)
	r.Get("/games/{gameId}/leaderboard", h.GetLeaderboard)

	r.Get("/raffles", h.GetActiveRaffles)
	r.Post("/raffles/{raffleId}/entries", h.PurchaseRaffleEntries)
	r.Post("/raffles/{raffleId}/activate", h.ActivateRaffle)
	r.Post("/raffles/{raffleId}/cancel", h.CancelRaffle)
	r.Post("/raffles/{raffleId}/draw", h.DrawRaffleWinner)

	return r
}
