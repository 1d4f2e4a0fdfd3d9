package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/varoOP/muaythaitickets/internal/booking"
	"github.com/varoOP/muaythaitickets/internal/domain"
	"github.com/varoOP/muaythaitickets/internal/payment"
)

func (s *Server) createBooking(c *gin.Context) {
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	b, err := s.deps.Bookings.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{"id": b.ID}, "booking created"))
}

func (s *Server) getBooking(c *gin.Context) {
	b, err := s.deps.Bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(b, ""))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateBookingStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.deps.Bookings.UpdateStatus(c.Request.Context(), c.Param("id"), domain.BookingStatus(req.Status)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"id": c.Param("id"), "status": req.Status}, "booking updated"))
}

type slipRequest struct {
	PaymentSlip string `json:"payment_slip" binding:"required"`
}

func (s *Server) attachSlip(c *gin.Context) {
	var req slipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.deps.Bookings.AttachSlip(c.Request.Context(), c.Param("id"), req.PaymentSlip); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(gin.H{"id": c.Param("id")}, "payment slip attached"))
}

func (s *Server) initiatePayment(c *gin.Context) {
	var req payment.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := s.deps.Payments.Initiate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{
		"id":           p.ID,
		"reference_no": p.ReferenceNo,
		"expire_date":  p.ExpireDate,
	}, "payment created"))
}

func (s *Server) getPayment(c *gin.Context) {
	p, err := s.deps.Payments.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(p, ""))
}

func (s *Server) updatePaymentStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := s.deps.Payments.UpdateStatus(c.Request.Context(), c.Param("ref"), domain.PaymentStatus(req.Status))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(p, "payment updated"))
}

type verificationRequest struct {
	Email   string          `json:"email" binding:"required"`
	Booking json.RawMessage `json:"booking" binding:"required"`
}

func (s *Server) requestVerification(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var draft booking.CreateRequest
	if err := json.Unmarshal(req.Booking, &draft); err != nil {
		badRequest(c, errors.Wrap(err, "booking"))
		return
	}
	if draft.CustomerEmail != "" && !strings.EqualFold(draft.CustomerEmail, req.Email) {
		s.respondError(c, errors.Wrap(domain.ErrInvalidInput, "booking customer_email must match the address being verified"))
		return
	}
	draft.CustomerEmail = req.Email
	if err := booking.ValidateRequest(draft); err != nil {
		s.respondError(c, err)
		return
	}

	v, err := s.deps.Verifications.Request(c.Request.Context(), req.Email, req.Booking)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{
		"expires_at": v.ExpiresAt,
	}, "verification sent"))
}

// confirmVerification creates the booking that was held behind the email check.
// The booking always carries the verified address.
func (s *Server) confirmVerification(c *gin.Context) {
	ctx := c.Request.Context()

	var b *domain.Booking
	_, err := s.deps.Verifications.Confirm(ctx, c.Param("token"), func(v *domain.EmailVerification) error {
		var req booking.CreateRequest
		if err := json.Unmarshal(v.BookingData, &req); err != nil {
			return errors.Wrap(domain.ErrInvalidInput, "stored booking data is malformed")
		}
		req.CustomerEmail = v.Email

		var err error
		b, err = s.deps.Bookings.Create(ctx, req)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(b, "booking confirmed"))
}
