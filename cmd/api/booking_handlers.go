package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salonbook/apperr"
	"salonbook/appointment"
	"salonbook/review"
)

// appointmentRequest carries no price. The salon owner prices the booking
// when confirming it.
type appointmentRequest struct {
	StylistID string `json:"stylistId"`
	ServiceID string `json:"serviceId"`
	SalonID   string `json:"salonId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`
}

type statusRequest struct {
	Status       appointment.Status `json:"status"`
	ServicePrice *float64           `json:"servicePrice"`
}

type appointmentResponse struct {
	ID           string             `json:"id"`
	ClientID     string             `json:"clientId"`
	StylistID    string             `json:"stylistId"`
	ServiceID    string             `json:"serviceId"`
	SalonID      string             `json:"salonId"`
	Date         string             `json:"date"`
	Time         string             `json:"time"`
	Status       appointment.Status `json:"status"`
	ServicePrice float64            `json:"servicePrice"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	CancelledAt  *time.Time         `json:"cancelledAt,omitempty"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID        string    `json:"id"`
	SalonID   string    `json:"salonId"`
	ClientID  string    `json:"clientId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type analyticsResponse struct {
	DailyRevenue      float64 `json:"dailyRevenue"`
	WeeklyRevenue     float64 `json:"weeklyRevenue"`
	MonthlyRevenue    float64 `json:"monthlyRevenue"`
	AppointmentsToday int     `json:"appointmentsToday"`
	AppointmentsWeek  int     `json:"appointmentsWeek"`
	ClientsTotal      int     `json:"clientsTotal"`
	StylistsActive    int     `json:"stylistsActive"`
	AverageRating     float64 `json:"averageRating"`
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or a full RFC 3339 timestamp. Either way
// the booking lands on the calendar date as written.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	return t, nil
}

func toAppointment(a appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		ClientID:     a.ClientID,
		StylistID:    a.StylistID,
		ServiceID:    a.ServiceID,
		SalonID:      a.SalonID,
		Date:         a.Date.Format(dateLayout),
		Time:         a.Time,
		Status:       a.Status,
		ServicePrice: a.ServicePrice,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		CancelledAt:  a.CancelledAt,
	}
}

func toAppointments(list []appointment.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointment(a))
	}
	return out
}

func (s *Server) createAppointment(c *gin.Context) {
	var req appointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	a, err := s.appointments.Create(c.Request.Context(), appointment.Input{
		ClientID:  sessionFrom(c).UID,
		StylistID: req.StylistID,
		ServiceID: req.ServiceID,
		SalonID:   req.SalonID,
		Date:      date,
		Time:      req.Time,
		Notes:     req.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointment(a))
}

func (s *Server) myAppointments(c *gin.Context) {
	list, err := s.appointments.ListForClient(c.Request.Context(), sessionFrom(c).UID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointments(list))
}

func (s *Server) stylistAppointments(c *gin.Context) {
	st, ok := s.ownedStylist(c)
	if !ok {
		return
	}
	list, err := s.appointments.ListForStylist(c.Request.Context(), st.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointments(list))
}

func (s *Server) updateAppointmentStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	a, err := s.appointments.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, ok := s.ownedSalon(c, a.SalonID); !ok {
		return
	}
	var updated appointment.Appointment
	switch {
	case req.Status == appointment.StatusConfirmed && req.ServicePrice == nil:
		err = apperr.Invalid("servicePrice", "is required to confirm")
	case req.Status == appointment.StatusConfirmed:
		updated, err = s.appointments.Confirm(ctx, a.ID, *req.ServicePrice)
	case req.ServicePrice != nil:
		err = apperr.Invalid("servicePrice", "can only be set when confirming")
	default:
		updated, err = s.appointments.UpdateStatus(ctx, a.ID, req.Status)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointment(updated))
}

// cancelAppointment is open to the booking client and the salon owner.
func (s *Server) cancelAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := s.appointments.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if a.ClientID != sessionFrom(c).UID {
		if _, ok := s.ownedSalon(c, a.SalonID); !ok {
			return
		}
	}
	cancelled, err := s.appointments.Cancel(ctx, a.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointment(cancelled))
}

func (s *Server) submitReview(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := s.reviews.Submit(c.Request.Context(), review.Input{
		SalonID:  c.Param("id"),
		ClientID: sessionFrom(c).UID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, reviewResponse(r))
}

func (s *Server) listReviews(c *gin.Context) {
	list, err := s.reviews.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]reviewResponse, 0, len(list))
	for _, r := range list {
		out = append(out, reviewResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) salonAnalytics(c *gin.Context) {
	salonID := c.Param("id")
	if _, ok := s.ownedSalon(c, salonID); !ok {
		return
	}
	snap, err := s.analytics.Compute(c.Request.Context(), salonID, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analyticsResponse(snap))
}
