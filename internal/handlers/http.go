// Package handlers exposes the marketplace over HTTP. The handlers are a
// thin JSON surface over the services; no business rules live here.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lotto-market/internal/pkg/db"
	"lotto-market/internal/repository"
	"lotto-market/internal/service"
)

// HTTPHandler holds the service dependencies for the HTTP API.
type HTTPHandler struct {
	pool    *service.PoolService
	draws   *service.DrawService
	wallets *service.WalletService
	dbPool  *db.Pool
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(pool *service.PoolService, draws *service.DrawService, wallets *service.WalletService, dbPool *db.Pool) *HTTPHandler {
	return &HTTPHandler{
		pool:    pool,
		draws:   draws,
		wallets: wallets,
		dbPool:  dbPool,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	router.POST("/lotto/create", h.CreateTickets)
	router.GET("/lotto", h.ListTickets)
	router.GET("/lotto/available", h.ListAvailable)
	router.GET("/lotto/:user_id", h.ListUserTickets)
	router.GET("/lotto/check/:user_id", h.CheckWinnings)
	router.POST("/lotto/buy", h.BuyTicket)
	router.POST("/lotto/redeem/:user_id/:ticket_id", h.RedeemTicket)
	router.POST("/lotto/delete-all", h.DeleteAll)

	router.POST("/draw/preview", h.PreviewDraw)
	router.POST("/draw", h.ConfirmDraw)
	router.GET("/draw/all", h.ListDraws)
	router.GET("/draw/latest", h.LatestDraw)
	router.GET("/draw/:draw_id/prizes", h.DrawPrizes)
	router.GET("/draw/:draw_id/redemptions", h.DrawWinnerRecords)

	router.POST("/wallet/topup", h.TopUp)
	router.GET("/wallet/all", h.ListWallets)
	router.GET("/wallet/:user_id/balance", h.WalletBalance)
}

// fail maps service and repository errors onto HTTP statuses, following the
// original API's convention: precondition failures are 400, missing
// entities are 404, everything else is a 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCount),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrBatchTooLarge),
		errors.Is(err, service.ErrMissingResults),
		errors.Is(err, service.ErrNoTickets),
		errors.Is(err, service.ErrNoPrizeWon),
		errors.Is(err, repository.ErrTicketSold),
		errors.Is(err, repository.ErrInsufficient):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrDrawNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return id, true
}

// Health reports service and database liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	if err := h.dbPool.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createTicketsRequest struct {
	Count int   `json:"count"`
	Price int64 `json:"price"`
}

// CreateTickets bulk-generates available tickets (owner operation).
func (h *HTTPHandler) CreateTickets(c *gin.Context) {
	var req createTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count and price required"})
		return
	}

	tickets, err := h.pool.Generate(c.Request.Context(), req.Count, req.Price)
	if err != nil {
		fail(c, err)
		return
	}

	numbers := make([]string, len(tickets))
	for i, t := range tickets {
		numbers[i] = t.Number
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Lotteries created",
		"count":   len(tickets),
		"numbers": numbers,
	})
}

// ListTickets returns every ticket in the pool.
func (h *HTTPHandler) ListTickets(c *gin.Context) {
	tickets, err := h.pool.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// ListAvailable returns the tickets still for sale.
func (h *HTTPHandler) ListAvailable(c *gin.Context) {
	tickets, err := h.pool.ListAvailable(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// ListUserTickets returns the tickets owned by a user.
func (h *HTTPHandler) ListUserTickets(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	tickets, err := h.pool.ListByUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// CheckWinnings returns the user's tickets holding live winner records.
func (h *HTTPHandler) CheckWinnings(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	winnings, err := h.wallets.Winnings(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, winnings)
}

type buyTicketRequest struct {
	UserID   int64 `json:"user_id"`
	TicketID int64 `json:"ticket_id"`
}

// BuyTicket sells a ticket to a user, debiting their wallet.
func (h *HTTPHandler) BuyTicket(c *gin.Context) {
	var req buyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.TicketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and ticket_id required"})
		return
	}

	balance, err := h.pool.Sell(c.Request.Context(), req.TicketID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Lottery purchased",
		"ticket_id":   req.TicketID,
		"new_balance": balance,
	})
}

// RedeemTicket pays out a winning ticket and consumes it.
func (h *HTTPHandler) RedeemTicket(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	ticketID, ok := pathID(c, "ticket_id")
	if !ok {
		return
	}

	result, err := h.wallets.Redeem(c.Request.Context(), userID, ticketID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteAll wipes the ticket pool and all live draw results.
func (h *HTTPHandler) DeleteAll(c *gin.Context) {
	if err := h.pool.Reset(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All lotteries deleted"})
}

type drawRequest struct {
	Mode    string         `json:"mode"`
	Results map[int]string `json:"results"`
}

// PreviewDraw samples winning values without persisting anything.
func (h *HTTPHandler) PreviewDraw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode required"})
		return
	}

	preview, err := h.draws.Preview(c.Request.Context(), req.Mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ConfirmDraw persists a draw with the supplied results map.
func (h *HTTPHandler) ConfirmDraw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode and results required"})
		return
	}

	summary, err := h.draws.Confirm(c.Request.Context(), req.Mode, req.Results)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Draw completed",
		"draw_id": summary.DrawID,
		"prizes":  summary.Prizes,
	})
}

// ListDraws returns the draw history, most recent first.
func (h *HTTPHandler) ListDraws(c *gin.Context) {
	draws, err := h.draws.ListDraws(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draws)
}

// LatestDraw returns the most recent draw with its prizes.
func (h *HTTPHandler) LatestDraw(c *gin.Context) {
	latest, err := h.draws.Latest(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, latest)
}

// DrawPrizes returns the prize rows of a draw.
func (h *HTTPHandler) DrawPrizes(c *gin.Context) {
	drawID, ok := pathID(c, "draw_id")
	if !ok {
		return
	}

	prizes, err := h.draws.Prizes(c.Request.Context(), drawID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prizes)
}

// DrawWinnerRecords returns the winner records of a draw.
func (h *HTTPHandler) DrawWinnerRecords(c *gin.Context) {
	drawID, ok := pathID(c, "draw_id")
	if !ok {
		return
	}

	records, err := h.draws.WinnerRecords(c.Request.Context(), drawID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type topUpRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

// TopUp adds funds to a user's wallet, creating it on first use.
func (h *HTTPHandler) TopUp(c *gin.Context) {
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and valid amount required"})
		return
	}

	wallet, err := h.wallets.TopUp(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Wallet topped up",
		"balance": wallet.Balance,
	})
}

// ListWallets returns every wallet.
func (h *HTTPHandler) ListWallets(c *gin.Context) {
	wallets, err := h.wallets.Wallets(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

// WalletBalance returns a user's balance.
func (h *HTTPHandler) WalletBalance(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	balance, err := h.wallets.Balance(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
