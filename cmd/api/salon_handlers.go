package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salonbook/roster"
	"salonbook/salon"
)

type registerSalonRequest struct {
	BusinessID  string `json:"businessId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	OwnerName   string `json:"ownerName"`
	Password    string `json:"password"`
}

type updateSalonRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	PostalCode  *string  `json:"postalCode"`
	Phone       *string  `json:"phone"`
	Email       *string  `json:"email"`
	ServiceIDs  []string `json:"serviceIds"`
}

type salonResponse struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"businessId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	PostalCode  string    `json:"postalCode"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	OwnerID     string    `json:"ownerId"`
	ServiceIDs  []string  `json:"serviceIds"`
	StylistIDs  []string  `json:"stylistIds"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type shiftJSON struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	IsWorking bool   `json:"isWorking"`
}

type stylistRequest struct {
	Name        *string              `json:"name"`
	Bio         *string              `json:"bio"`
	Specialties []string             `json:"specialties"`
	Schedule    map[string]shiftJSON `json:"schedule"`
}

type stylistResponse struct {
	ID          string               `json:"id"`
	BusinessID  string               `json:"businessId"`
	Name        string               `json:"name"`
	Bio         string               `json:"bio"`
	Specialties []string             `json:"specialties"`
	Schedule    map[string]shiftJSON `json:"schedule"`
	Rating      float64              `json:"rating"`
	SalonID     string               `json:"salonId"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func toSalon(s salon.Salon) salonResponse {
	return salonResponse{
		ID:          s.ID,
		BusinessID:  s.BusinessID,
		Name:        s.Name,
		Description: s.Description,
		Address:     s.Address,
		City:        s.City,
		PostalCode:  s.PostalCode,
		Phone:       s.Phone,
		Email:       s.Email,
		OwnerID:     s.OwnerID,
		ServiceIDs:  s.ServiceIDs,
		StylistIDs:  s.StylistIDs,
		Rating:      s.Rating,
		ReviewCount: s.ReviewCount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toStylist(st roster.Stylist) stylistResponse {
	schedule := make(map[string]shiftJSON, len(st.Schedule))
	for day, shift := range st.Schedule {
		schedule[day] = shiftJSON(shift)
	}
	return stylistResponse{
		ID:          st.ID,
		BusinessID:  st.BusinessID,
		Name:        st.Name,
		Bio:         st.Bio,
		Specialties: st.Specialties,
		Schedule:    schedule,
		Rating:      st.Rating,
		SalonID:     st.SalonID,
		CreatedAt:   st.CreatedAt,
	}
}

func fromSchedule(in map[string]shiftJSON) map[string]roster.Shift {
	if in == nil {
		return nil
	}
	out := make(map[string]roster.Shift, len(in))
	for day, shift := range in {
		out[day] = roster.Shift(shift)
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *Server) registerSalon(c *gin.Context) {
	var req registerSalonRequest
	if !bindJSON(c, &req) {
		return
	}
	reg, err := s.salons.RegisterSalon(c.Request.Context(), salon.RegistrationInput(req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"salonId": reg.SalonID, "ownerId": reg.OwnerID})
}

func (s *Server) getSalon(c *gin.Context) {
	sal, err := s.salons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSalon(sal))
}

func (s *Server) updateSalon(c *gin.Context) {
	var req updateSalonRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, ok := s.ownedSalon(c, c.Param("id")); !ok {
		return
	}
	sal, err := s.salons.Update(c.Request.Context(), c.Param("id"), salon.Patch(req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSalon(sal))
}

func (s *Server) ownerSalons(c *gin.Context) {
	salons, err := s.salons.ListByOwner(c.Request.Context(), sessionFrom(c).UID)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]salonResponse, 0, len(salons))
	for _, sal := range salons {
		out = append(out, toSalon(sal))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listStylists(c *gin.Context) {
	stylists, err := s.roster.ListStylists(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]stylistResponse, 0, len(stylists))
	for _, st := range stylists {
		out = append(out, toStylist(st))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addStylist(c *gin.Context) {
	var req stylistRequest
	if !bindJSON(c, &req) {
		return
	}
	salonID := c.Param("id")
	if _, ok := s.ownedSalon(c, salonID); !ok {
		return
	}
	ctx := c.Request.Context()
	id, err := s.roster.AddStylist(ctx, roster.StylistInput{
		SalonID:     salonID,
		Name:        deref(req.Name),
		Bio:         deref(req.Bio),
		Specialties: req.Specialties,
		Schedule:    fromSchedule(req.Schedule),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.roster.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStylist(st))
}

func (s *Server) reconcileStylists(c *gin.Context) {
	salonID := c.Param("id")
	if _, ok := s.ownedSalon(c, salonID); !ok {
		return
	}
	changed, err := s.roster.Reconcile(c.Request.Context(), salonID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// ownedStylist loads the stylist and checks ownership of its salon.
func (s *Server) ownedStylist(c *gin.Context) (roster.Stylist, bool) {
	st, err := s.roster.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return roster.Stylist{}, false
	}
	if _, ok := s.ownedSalon(c, st.SalonID); !ok {
		return roster.Stylist{}, false
	}
	return st, true
}

func (s *Server) updateStylist(c *gin.Context) {
	var req stylistRequest
	if !bindJSON(c, &req) {
		return
	}
	st, ok := s.ownedStylist(c)
	if !ok {
		return
	}
	updated, err := s.roster.UpdateStylist(c.Request.Context(), st.ID, roster.StylistPatch{
		Name:        req.Name,
		Bio:         req.Bio,
		Specialties: req.Specialties,
		Schedule:    fromSchedule(req.Schedule),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStylist(updated))
}

func (s *Server) deleteStylist(c *gin.Context) {
	st, ok := s.ownedStylist(c)
	if !ok {
		return
	}
	if err := s.roster.DeleteStylist(c.Request.Context(), st.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
