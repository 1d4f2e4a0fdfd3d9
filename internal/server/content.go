package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const dateLayout = "2006-01-02"

func (s *Server) listHeroImages(c *gin.Context) {
	images, err := s.deps.Content.ListHeroImages(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(images, ""))
}

func (s *Server) listHighlights(c *gin.Context) {
	highlights, err := s.deps.Content.ListHighlights(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(highlights, ""))
}

func (s *Server) listStadiums(c *gin.Context) {
	stadiums, err := s.deps.Content.ListStadiums(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(stadiums, ""))
}

func (s *Server) listStadiumSchedules(c *gin.Context) {
	stadiums, err := s.deps.Content.ListStadiums(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	schedules := make([]domain.StadiumSchedule, 0, len(stadiums))
	for _, st := range stadiums {
		schedules = append(schedules, domain.StadiumSchedule{StadiumID: st.StadiumID, ScheduleDays: st.ScheduleDays})
	}
	c.JSON(http.StatusOK, SuccessResponse(schedules, ""))
}

func (s *Server) listSpecialMatches(c *gin.Context) {
	matches, err := s.deps.Content.ListSpecialMatches(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(matches, ""))
}

// listDailyImages returns, for every stadium, the payment image that applies
// on ?date= (today when omitted). Stadiums without one are left out.
func (s *Server) listDailyImages(c *gin.Context) {
	date, err := s.dateParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	stadiums, err := s.deps.Content.ListStadiums(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}

	images := make([]domain.StadiumPaymentImage, 0, len(stadiums))
	for _, st := range stadiums {
		img, err := s.deps.PaymentImages.ForDate(ctx, st.StadiumID, date)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			s.respondError(c, err)
			return
		}
		images = append(images, *img)
	}
	c.JSON(http.StatusOK, SuccessResponse(images, ""))
}

func (s *Server) getUpcomingFightsBackground(c *gin.Context) {
	bg, err := s.deps.Content.GetUpcomingFightsBackground(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(bg, ""))
}

func (s *Server) listRegularTickets(c *gin.Context) {
	tickets, err := s.deps.Content.ListRegularTickets(c.Request.Context(), c.Query("stadium_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(tickets, ""))
}

func (s *Server) listSpecialTickets(c *gin.Context) {
	tickets, err := s.deps.Content.ListSpecialTickets(c.Request.Context(), c.Query("stadium_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(tickets, ""))
}

func (s *Server) listPromptPayQR(c *gin.Context) {
	codes, err := s.deps.Content.ListPromptPayQR(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(codes, ""))
}

func (s *Server) getStadiumPaymentImage(c *gin.Context) {
	date, err := s.dateParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	img, err := s.deps.PaymentImages.ForDate(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(img, ""))
}

func (s *Server) dateParam(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return s.now(), nil
	}

	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.Errorf("date must be YYYY-MM-DD, got %q", raw)
	}
	return date, nil
}
