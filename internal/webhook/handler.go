package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"mayhem-storefront/internal/domain"
	"mayhem-storefront/internal/infrastructure/payment"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Handler is the HTTP entry point for gateway notifications. The route is not
// session-authenticated; the signature over the raw body is the only
// credential, so the body must reach verification byte-for-byte as received.
type Handler struct {
	secret string
	router *Router
	now    func() time.Time
}

func NewHandler(secret string, router *Router) *Handler {
	return &Handler{
		secret: secret,
		router: router,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/payments/webhook", h.HandleWebhook)
}

func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := readBody(c.Request, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "code": "INVALID_PAYLOAD"})
		return
	}

	err = payment.VerifySignature(h.secret, c.GetHeader(payment.SignatureHeader), body, h.now())
	if err != nil {
		code := "INVALID_SIGNATURE"
		if errors.Is(err, payment.ErrMissingSignature) {
			code = "MISSING_SIGNATURE"
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "code": code})
		return
	}

	var event domain.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "code": "INVALID_PAYLOAD"})
		return
	}

	if supported := h.router.Dispatch(c.Request.Context(), event); !supported {
		// Unsupported types are acknowledged so the gateway stops retrying.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "webhook processed"})
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	lr := io.LimitReader(r.Body, limit+1)

	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, errors.New("failed to read body")
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
