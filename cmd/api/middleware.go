package main

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salonbook/auth"
)

const sessionKey = "session"

// slowRequest is the latency above which a request is logged as slow.
const slowRequest = 200 * time.Millisecond

// requestLogger logs one line per request and flags slow ones.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": latency.String(),
		})
		if latency > slowRequest {
			entry.Warn("slow request")
			return
		}
		entry.Info("request")
	}
}

// requireSession resolves the bearer token to a live session.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			s.fail(c, auth.ErrInvalidSession)
			return
		}

		sess, err := s.sessions.Verify(c.Request.Context(), token)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionFrom(c *gin.Context) auth.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(auth.Session)
	return sess
}
