package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookie = "checkout_session"

// Handler contains HTTP handlers
type Handler struct {
	checkout     *service.CheckoutService
	orchestrator *service.PaymentOrchestrator
	orders       service.OrderStore
	flash        *redisclient.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkout *service.CheckoutService,
	orchestrator *service.PaymentOrchestrator,
	orders service.OrderStore,
	flash *redisclient.Client,
) *Handler {
	return &Handler{
		checkout:     checkout,
		orchestrator: orchestrator,
		orders:       orders,
		flash:        flash,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events/:event_id/tickets/validate", h.validateTickets)
		v1.GET("/events/:event_id/checkout", h.showCheckout)
		v1.DELETE("/events/:event_id/checkout", h.discardCheckout)
		v1.POST("/events/:event_id/orders", h.createOrder)
		v1.GET("/events/:event_id/payment-return", h.paymentReturn)
		v1.GET("/orders/:reference", h.showOrder)
		v1.GET("/orders/:reference/tickets", h.showOrderTickets)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

// sessionID reads the buyer's session cookie, minting one when absent
func (h *Handler) sessionID(c *gin.Context) string {
	if sid, err := c.Cookie(sessionCookie); err == nil && sid != "" {
		return sid
	}
	sid := uuid.New().String()
	c.SetCookie(sessionCookie, sid, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return sid
}

func eventIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid event ID"})
		return 0, false
	}
	return id, true
}

type validateTicketsRequest struct {
	// Quantities arrive as submitted strings so non-numeric input gets a
	// field-level message instead of a binding failure
	Tickets map[int64]string `json:"tickets" binding:"required"`
}

// validateTickets validates a ticket selection, reserves the inventory and
// opens the checkout workspace
func (h *Handler) validateTickets(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req validateTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body"})
		return
	}

	affiliateRef, _ := c.Cookie(fmt.Sprintf("affiliate_%d", eventID))

	ws, err := h.checkout.ReserveSelection(c.Request.Context(), &service.ReserveSelectionRequest{
		EventID:      eventID,
		SessionID:    h.sessionID(c),
		Selections:   req.Tickets,
		AffiliateRef: affiliateRef,
		IsEmbedded:   c.Query("is_embedded") == "1",
	})
	if err != nil {
		if ve, isValidation := service.AsValidationError(err); isValidation {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "messages": ve.Fields})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to reserve tickets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"redirectUrl": checkoutURL(eventID, ws.IsEmbedded) + "#order_form",
	})
}

// showCheckout returns the pending-order state for the checkout page, or a
// redirect back to the event page when no valid workspace exists
func (h *Handler) showCheckout(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	sessionID := h.sessionID(c)

	ws, err := h.checkout.GetWorkspace(c.Request.Context(), eventID, sessionID)
	if err != nil {
		if err == service.ErrWorkspaceExpiredOrMissing {
			c.JSON(http.StatusGone, gin.H{
				"status":      "redirect",
				"redirectUrl": fmt.Sprintf("/events/%d", eventID),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load checkout"})
		return
	}

	flash, _ := h.flash.PopFlashMessage(c.Request.Context(), eventID, sessionID)

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"workspace":       ws,
		"secondsToExpire": int(time.Until(ws.ExpiresAt).Seconds()),
		"is_embedded":     ws.IsEmbedded || c.Query("is_embedded") == "1",
		"message":         flash,
	})
}

// discardCheckout abandons the workspace and releases its holds
func (h *Handler) discardCheckout(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	if err := h.checkout.Discard(c.Request.Context(), eventID, h.sessionID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to discard checkout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// createOrder records the buyer/attendee form and runs the payment attempt
func (h *Handler) createOrder(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	sessionID := h.sessionID(c)

	var form map[string]string
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body"})
		return
	}

	ws, err := h.checkout.GetWorkspace(c.Request.Context(), eventID, sessionID)
	if err != nil {
		if err == service.ErrWorkspaceExpiredOrMissing {
			c.JSON(http.StatusGone, gin.H{
				"status":      "redirect",
				"redirectUrl": fmt.Sprintf("/events/%d", eventID),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load checkout"})
		return
	}

	if err := h.checkout.RecordBuyerSubmission(c.Request.Context(), ws, form); err != nil {
		if ve, isValidation := service.AsValidationError(err); isValidation {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "messages": ve.Fields})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to record order details"})
		return
	}

	outcome, err := h.orchestrator.Authorize(c.Request.Context(), ws)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": service.GenericPaymentErrorMessage})
		return
	}
	h.respondOutcome(c, eventID, sessionID, ws.IsEmbedded, outcome)
}

// paymentReturn handles the buyer's return from an off-site payment provider
func (h *Handler) paymentReturn(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	sessionID := h.sessionID(c)
	cancelled := c.Query("is_payment_cancelled") == "1"

	outcome, err := h.orchestrator.CompleteRedirectedPayment(c.Request.Context(), eventID, sessionID, cancelled)
	if err != nil {
		if err == service.ErrWorkspaceExpiredOrMissing {
			c.Redirect(http.StatusSeeOther, fmt.Sprintf("/events/%d", eventID))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": service.GenericPaymentErrorMessage})
		return
	}

	switch outcome.Status {
	case service.OutcomeCompleted:
		c.Redirect(http.StatusSeeOther, orderURL(outcome.Order.Reference, false))
	default:
		// Cancelled, declined or failed: the workspace and its holds stay
		// intact so the buyer can retry from the checkout page.
		if outcome.Message != "" {
			_ = h.flash.SetFlashMessage(c.Request.Context(), eventID, sessionID, outcome.Message)
		}
		c.Redirect(http.StatusSeeOther, checkoutURL(eventID, false))
	}
}

func (h *Handler) respondOutcome(c *gin.Context, eventID int64, sessionID string, embedded bool, outcome *service.Outcome) {
	switch outcome.Status {
	case service.OutcomeCompleted:
		c.JSON(http.StatusOK, gin.H{
			"status":      "success",
			"redirectUrl": orderURL(outcome.Order.Reference, embedded),
		})
	case service.OutcomeRedirect:
		c.JSON(http.StatusOK, gin.H{
			"status":       "success",
			"redirectUrl":  outcome.RedirectURL,
			"redirectData": outcome.RedirectData,
			"message":      outcome.Message,
		})
	default:
		c.JSON(http.StatusPaymentRequired, gin.H{"status": "error", "message": outcome.Message})
	}
}

// showOrder returns an order with its line items and attendees
func (h *Handler) showOrder(c *gin.Context) {
	reference := c.Param("reference")

	order, err := h.orders.GetOrderByReference(c.Request.Context(), reference)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load order"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found"})
		return
	}

	items, err := h.orders.GetOrderItems(c.Request.Context(), order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load order"})
		return
	}
	attendees, err := h.orders.GetAttendeesByOrder(c.Request.Context(), order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":       order,
		"items":       items,
		"attendees":   attendees,
		"is_embedded": c.Query("is_embedded") == "1",
	})
}

// showOrderTickets returns the tickets for an order, as a downloadable
// document when download=1
func (h *Handler) showOrderTickets(c *gin.Context) {
	reference := c.Param("reference")

	order, err := h.orders.GetOrderByReference(c.Request.Context(), reference)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load order"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found"})
		return
	}

	attendees, err := h.orders.GetAttendeesByOrder(c.Request.Context(), order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to load order"})
		return
	}

	if c.Query("download") == "1" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="tickets-%s.json"`, order.Reference))
	}
	c.JSON(http.StatusOK, gin.H{
		"order":     order,
		"attendees": attendees,
	})
}

func checkoutURL(eventID int64, embedded bool) string {
	url := fmt.Sprintf("/api/v1/events/%d/checkout", eventID)
	if embedded {
		url += "?is_embedded=1"
	}
	return url
}

func orderURL(reference string, embedded bool) string {
	url := fmt.Sprintf("/api/v1/orders/%s", reference)
	if embedded {
		url += "?is_embedded=1"
	}
	return url
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
