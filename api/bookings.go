package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/service/booking"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	service booking.BookingUseCase
}

type flightRequest struct {
	Number  string `json:"number" binding:"required"`
	Airline string `json:"airline"`
	Route   string `json:"route" binding:"required"`
	Date    string `json:"date" binding:"required"`
}

func (f flightRequest) toDomain() (domain.Flight, error) {
	date, err := time.Parse(dateLayout, f.Date)
	if err != nil {
		return domain.Flight{}, err
	}
	return domain.Flight{Number: f.Number, Airline: f.Airline, Route: f.Route, Date: date}, nil
}

type checkoutRequest struct {
	TravelerID    string        `json:"traveler_id" binding:"required"`
	CompanionID   string        `json:"companion_id"`
	Flight        flightRequest `json:"flight" binding:"required"`
	SeatNumber    string        `json:"seat_number"`
	PriceCents    int64         `json:"price_cents" binding:"required"`
	Currency      string        `json:"currency" binding:"required"`
	PaymentMethod string        `json:"payment_method" binding:"required"`
}

type pairingRequest struct {
	TravelerID  string        `json:"traveler_id" binding:"required"`
	CompanionID string        `json:"companion_id" binding:"required"`
	Flight      flightRequest `json:"flight" binding:"required"`
	SeatNumber  string        `json:"seat_number" binding:"required"`
}

type bookingResponse struct {
	ID            string `json:"id"`
	TravelerID    string `json:"traveler_id"`
	CompanionID   string `json:"companion_id,omitempty"`
	FlightNumber  string `json:"flight_number"`
	Airline       string `json:"airline"`
	Route         string `json:"route"`
	Date          string `json:"date"`
	SeatNumber    string `json:"seat_number"`
	PriceCents    int64  `json:"price_cents"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type checkoutResponse struct {
	Booking     bookingResponse `json:"booking"`
	SessionID   string          `json:"session_id"`
	RedirectURL string          `json:"redirect_url"`
}

type pairingResponse struct {
	ID          string `json:"id"`
	TravelerID  string `json:"traveler_id"`
	CompanionID string `json:"companion_id"`
	SeatNumber  string `json:"seat_number"`
	Status      string `json:"status"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings/checkout", h.checkout)
	router.GET("/bookings/:id", h.get)
	router.POST("/pairings", h.pair)
}

func (h *BookingHandler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := req.Flight.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flight date must be YYYY-MM-DD"})
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), booking.CheckoutInput{
		TravelerID:  req.TravelerID,
		CompanionID: req.CompanionID,
		Flight:      flight,
		SeatNumber:  req.SeatNumber,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Method:      domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{
		Booking:     toBookingResponse(result.Booking),
		SessionID:   result.SessionID,
		RedirectURL: result.RedirectURL,
	})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) pair(c *gin.Context) {
	var req pairingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := req.Flight.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flight date must be YYYY-MM-DD"})
		return
	}

	pairing, err := h.service.SelectCompanion(c.Request.Context(), booking.SelectCompanionInput{
		TravelerID:  req.TravelerID,
		CompanionID: req.CompanionID,
		Flight:      flight,
		SeatNumber:  req.SeatNumber,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pairingResponse{
		ID:          pairing.ID,
		TravelerID:  pairing.TravelerID,
		CompanionID: pairing.CompanionID,
		SeatNumber:  pairing.SeatNumber,
		Status:      string(pairing.Status),
	})
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:            b.ID,
		TravelerID:    b.TravelerID,
		CompanionID:   b.CompanionID,
		FlightNumber:  b.Flight.Number,
		Airline:       b.Flight.Airline,
		Route:         b.Flight.Route,
		Date:          b.Flight.Date.Format(dateLayout),
		SeatNumber:    b.SeatNumber,
		PriceCents:    b.PriceCents,
		Currency:      b.Currency,
		Status:        string(b.Status),
		PaymentMethod: string(b.PaymentMethod),
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
