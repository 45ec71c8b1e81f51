package api

import (
	"net/http"

	"github.com/Domenick1991/flightbuddy/internal/service/refund"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	refunds refund.RefundUseCase
	log     *logrus.Logger
}

type refundRequest struct {
	Reason string `json:"reason"`
}

type refundResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Method    string `json:"payment_method"`
	RefundID  string `json:"refund_id,omitempty"`
	Note      string `json:"note,omitempty"`
}

func NewAdminHandler(refunds refund.RefundUseCase, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{refunds: refunds, log: log}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings/:id/refund", h.refund)
}

func (h *AdminHandler) refund(c *gin.Context) {
	var req refundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	bookingID := c.Param("id")
	result, err := h.refunds.Refund(c.Request.Context(), bookingID, req.Reason)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"admin":      c.GetString(ctxSubject),
		}).Warn("refund rejected")
		abortWithError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"status":     result.Status,
		"admin":      c.GetString(ctxSubject),
	}).Info("refund processed")
	c.JSON(http.StatusOK, refundResponse{
		BookingID: result.BookingID,
		Status:    string(result.Status),
		Method:    string(result.Method),
		RefundID:  result.Reference,
		Note:      result.Note,
	})
}
