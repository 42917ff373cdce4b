package emulator

import (
	"errors"
	"fmt"
	"time"

	"feedsync/internal/emulator/repository"
	"feedsync/internal/models"
	"feedsync/internal/remote"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	headerProject = "X-Appwrite-Project"
	headerSession = "X-Appwrite-Session"

	localAccountID = "accountID"
	localSessionID = "sessionID"
)

// issueToken signs the secret handed to the client for session s.
func (s *Server) issueToken(sess *repository.Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sess.AccountID,
		"sid": sess.ID,
		"iat": sess.CreatedAt.Unix(),
		"exp": sess.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// parseToken validates the signature and expiry and returns (accountID, sessionID).
func (s *Server) parseToken(raw string) (string, string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if sub == "" || sid == "" {
		return "", "", errors.New("invalid token structure")
	}
	return sub, sid, nil
}

// ProjectRequired rejects requests for another project. The view route may
// carry the project as a query parameter instead of a header.
func (s *Server) ProjectRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		project := c.Get(headerProject)
		if project == "" {
			project = c.Query("project")
		}
		if project != s.opts.ProjectID {
			return errProjectNotFound
		}
		return c.Next()
	}
}

// SessionRequired resolves the session secret from the session header or
// cookie. Revoked sessions are rejected even when the token is still valid.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(headerSession)
		if raw == "" {
			raw = c.Cookies(remote.SessionCookieName(s.opts.ProjectID))
		}
		if raw == "" {
			return errGuest
		}

		accountID, sessionID, err := s.parseToken(raw)
		if err != nil {
			return errGuest
		}
		sess, err := s.sessions.GetByID(c.UserContext(), sessionID)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return errGuest
			}
			return err
		}
		if sess.AccountID != accountID || time.Now().After(sess.ExpiresAt) {
			return errGuest
		}

		c.Locals(localAccountID, accountID)
		c.Locals(localSessionID, sessionID)
		return c.Next()
	}
}

func currentAccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(localAccountID).(string)
	return id
}
