package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salonbook/analytics"
	"salonbook/appointment"
	"salonbook/auth"
	"salonbook/docstore"
	"salonbook/identity"
	"salonbook/review"
	"salonbook/roster"
	"salonbook/salon"
)

// Server exposes the booking workflows over HTTP.
type Server struct {
	identity     *identity.Service
	sessions     *auth.Sessions
	salons       *salon.Registrar
	roster       *roster.Manager
	appointments *appointment.Service
	reviews      *review.Service
	analytics    *analytics.Aggregator
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewServer wires every workflow on top of one document store.
func NewServer(store docstore.Store, secret string, ttl time.Duration, log logrus.FieldLogger) *Server {
	creds := auth.NewCredentials(store)
	sessions := auth.NewSessions(store, secret, ttl)
	stylists := roster.NewManager(store).WithLogger(log)

	return &Server{
		identity:     identity.NewService(store, creds, sessions).WithLogger(log),
		sessions:     sessions,
		salons:       salon.NewRegistrar(store, creds).WithLogger(log),
		roster:       stylists,
		appointments: appointment.NewService(store, stylists).WithLogger(log),
		reviews:      review.NewService(store),
		analytics:    analytics.NewAggregator(store),
		log:          log,
		now:          time.Now,
	}
}

// Routes builds the gin engine.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", s.register)
	r.POST("/auth/login", s.login)
	r.POST("/salons", s.registerSalon)
	r.GET("/salons/:id", s.getSalon)
	r.GET("/salons/:id/stylists", s.listStylists)
	r.GET("/salons/:id/reviews", s.listReviews)

	authed := r.Group("/", s.requireSession())
	authed.POST("/auth/logout", s.logout)
	authed.GET("/auth/me", s.me)
	authed.PUT("/auth/email", s.changeEmail)
	authed.PUT("/auth/password", s.changePassword)

	authed.PUT("/salons/:id", s.updateSalon)
	authed.GET("/owner/salons", s.ownerSalons)
	authed.POST("/salons/:id/stylists", s.addStylist)
	authed.POST("/salons/:id/stylists/reconcile", s.reconcileStylists)
	authed.PUT("/stylists/:id", s.updateStylist)
	authed.DELETE("/stylists/:id", s.deleteStylist)

	authed.POST("/appointments", s.createAppointment)
	authed.GET("/appointments", s.myAppointments)
	authed.GET("/stylists/:id/appointments", s.stylistAppointments)
	authed.PATCH("/appointments/:id/status", s.updateAppointmentStatus)
	authed.POST("/appointments/:id/cancel", s.cancelAppointment)

	authed.POST("/salons/:id/reviews", s.submitReview)
	authed.GET("/salons/:id/analytics", s.salonAnalytics)

	return r
}

// ownedSalon loads the salon and checks that the session's user owns it.
func (s *Server) ownedSalon(c *gin.Context, salonID string) (salon.Salon, bool) {
	sal, err := s.salons.Get(c.Request.Context(), salonID)
	if err != nil {
		s.fail(c, err)
		return salon.Salon{}, false
	}
	if sal.OwnerID != sessionFrom(c).UID {
		s.fail(c, errForbidden)
		return salon.Salon{}, false
	}
	return sal, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return false
	}
	return true
}
