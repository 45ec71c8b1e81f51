package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/service/matching"
	"github.com/gin-gonic/gin"
)

type CompanionHandler struct {
	service matching.MatchingUseCase
}

type companionsResponse struct {
	Companions []domain.CompanionCandidate `json:"companions"`
	Message    string                      `json:"message,omitempty"`
}

func NewCompanionHandler(service matching.MatchingUseCase) *CompanionHandler {
	return &CompanionHandler{service: service}
}

func (h *CompanionHandler) Register(router *gin.RouterGroup) {
	router.GET("/companions", h.search)
}

func (h *CompanionHandler) search(c *gin.Context) {
	date, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	result, err := h.service.Search(c.Request.Context(), matching.Query{
		Route:      c.Query("route"),
		Date:       date,
		TravelerID: c.Query("traveler_id"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := companionsResponse{Companions: result.Candidates}
	if result.NoneFound {
		resp.Message = "no companions found"
	}
	c.JSON(http.StatusOK, resp)
}
