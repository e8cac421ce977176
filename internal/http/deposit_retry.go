package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/atlasprotocol/deposit-relayer/internal/retry"
)

func (hs *HTTPServer) handleDepositRetry(c *gin.Context) {
	requestID := uuid.New().String()

	var req retry.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Deposit retry %s rejected, malformed body: %v", requestID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	log.Infof("Deposit retry %s received for %s from %s", requestID, req.BtcTxnHash, req.Address)

	deposit, err := hs.retryService.Retry(c.Request.Context(), req)
	if err == nil {
		c.JSON(http.StatusOK, deposit)
		return
	}

	var mismatch *retry.SenderMismatchError
	var notRetryable *retry.NotRetryableError
	switch {
	case errors.Is(err, retry.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	case errors.Is(err, retry.ErrDepositNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "deposit not found"})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "btc sender address mismatch",
			"expected": mismatch.Expected,
			"actual":   mismatch.Actual,
		})
	case errors.As(err, &notRetryable):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              notRetryable.Error(),
			"deposit":            notRetryable.Deposit,
			"has_error":          notRetryable.HasError,
			"is_in_retry_status": notRetryable.InRetryStatus,
		})
	default:
		log.Errorf("Deposit retry %s failed on a dependency: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
