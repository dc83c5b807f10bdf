package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salonbook/auth"
	"salonbook/identity"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changeEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	SalonID   string    `json:"salonId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	UID       string    `json:"uid"`
	Role      auth.Role `json:"role"`
	SalonID   string    `json:"salonId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toProfile(p identity.UserProfile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		SalonID:   p.SalonID,
		CreatedAt: p.CreatedAt,
	}
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := s.identity.RegisterClient(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProfile(profile))
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, token, err := s.identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Token:     token,
		UID:       sess.UID,
		Role:      sess.Role,
		SalonID:   sess.SalonID,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.identity.SignOut(c.Request.Context(), sessionFrom(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	profile, err := s.identity.Profile(c.Request.Context(), sessionFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(profile))
}

func (s *Server) changeEmail(c *gin.Context) {
	var req changeEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := s.identity.ChangeEmail(c.Request.Context(), sessionFrom(c), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(profile))
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.identity.ChangePassword(c.Request.Context(), sessionFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
