package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/PeRDy/barrenero-api/internal/service"
)

// Handler shapes the aggregated views into the externally visible response
// contract. Aggregation faults never surface here: handlers always answer
// 200 with a structurally complete body whose failed fields are null.
type Handler struct {
	miner          *service.MinerService
	wallet         *service.WalletService
	status         *service.StatusService
	defaultAccount string
}

// NewHandler creates a new Handler.
func NewHandler(miner *service.MinerService, wallet *service.WalletService, status *service.StatusService, defaultAccount string) *Handler {
	return &Handler{
		miner:          miner,
		wallet:         wallet,
		status:         status,
		defaultAccount: defaultAccount,
	}
}

// account resolves the account address for the request: explicit query
// parameter first, configured default otherwise. Reports false after writing
// the error response when no valid address is available.
func (h *Handler) account(c *gin.Context) (string, bool) {
	account := c.Query("account")
	if account == "" {
		account = h.defaultAccount
	}
	if !common.IsHexAddress(account) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing account address"})
		return "", false
	}
	return account, true
}

// GetEther returns the aggregated mining view: local liveness and hashrate
// combined with the pool account.
func (h *Handler) GetEther(c *gin.Context) {
	account, ok := h.account(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.miner.EtherStatus(c.Request.Context(), account))
}

// GetNanopool returns the pool account and last payment.
func (h *Handler) GetNanopool(c *gin.Context) {
	account, ok := h.account(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.miner.NanopoolInfo(c.Request.Context(), account))
}

// GetEtherStatus returns the local-only miner status.
func (h *Handler) GetEtherStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.miner.LocalStatus())
}

// GetWallet returns the aggregated wallet view.
func (h *Handler) GetWallet(c *gin.Context) {
	account, ok := h.account(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.wallet.Wallet(c.Request.Context(), account))
}

// GetStatus returns device and miner service status.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Status(c.Request.Context()))
}
