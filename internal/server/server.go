package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/booking"
	"github.com/varoOP/muaythaitickets/internal/domain"
	"github.com/varoOP/muaythaitickets/internal/payment"
	"github.com/varoOP/muaythaitickets/internal/verification"
)

const (
	DefaultListenAddr = ":8080"
	DefaultCacheTTL   = 30 * time.Second
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP API is served from.
type Deps struct {
	DB            Pinger
	Content       domain.ContentRepo
	PaymentImages domain.StadiumPaymentImageRepo
	Bookings      booking.Service
	Payments      payment.Service
	Verifications verification.Service
	Redis         *redis.Client
}

type Server struct {
	log    zerolog.Logger
	config *domain.Config
	deps   Deps
	now    func() time.Time
	engine *gin.Engine
	http   *http.Server
}

func New(log zerolog.Logger, config *domain.Config, deps Deps) *Server {
	s := &Server{
		log:    log.With().Str("module", "server").Logger(),
		config: config,
		deps:   deps,
		now:    time.Now,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the gin engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(s.corsConfig()))
	r.Use(RequestID())
	r.Use(RequestLogger(s.log))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.health)

	content := api.Group("/")
	content.Use(ResponseCache(s.deps.Redis, s.config.RedisTTL, s.log))
	{
		content.GET("/hero", s.listHeroImages)
		content.GET("/highlights", s.listHighlights)
		content.GET("/stadiums", s.listStadiums)
		content.GET("/stadiumSchedules", s.listStadiumSchedules)
		content.GET("/specialMatches", s.listSpecialMatches)
		content.GET("/dailyImages", s.listDailyImages)
		content.GET("/upcomingFightsBackground", s.getUpcomingFightsBackground)
		content.GET("/regularTickets", s.listRegularTickets)
		content.GET("/specialTickets", s.listSpecialTickets)
		content.GET("/promptpayQR", s.listPromptPayQR)
		content.GET("/stadiums/:id/payment-image", s.getStadiumPaymentImage)
	}

	api.POST("/bookings", s.createBooking)
	api.GET("/bookings/:id", s.getBooking)
	api.PATCH("/bookings/:id/status", s.updateBookingStatus)
	api.POST("/bookings/:id/slip", s.attachSlip)

	api.POST("/payments", s.initiatePayment)
	api.GET("/payments/:ref", s.getPayment)
	api.PATCH("/payments/:ref/status", s.updatePaymentStatus)

	api.POST("/verifications", s.requestVerification)
	api.POST("/verifications/:token/confirm", s.confirmVerification)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Cache", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.config.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.config.CORSOrigins
	}
	return cfg
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Starting HTTP server")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.Info().Msg("Shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(c.Request.Context()); err != nil {
			s.log.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse("database unavailable"))
			return
		}
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{"status": "ok"}, ""))
}
