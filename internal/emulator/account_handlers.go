package emulator

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"feedsync/internal/emulator/repository"
	"feedsync/internal/models"
	"feedsync/internal/remote"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 256
	maxNameLength     = 128
)

// accountView is the account document returned to clients.
type accountView struct {
	ID           string    `json:"$id"`
	CreatedAt    time.Time `json:"$createdAt"`
	UpdatedAt    time.Time `json:"$updatedAt"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Registration time.Time `json:"registration"`
	Status       bool      `json:"status"`
}

func newAccountView(a *repository.Account) accountView {
	return accountView{
		ID:           a.ID,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
		Name:         a.Name,
		Email:        a.Email,
		Registration: a.CreatedAt.UTC(),
		Status:       true,
	}
}

type sessionView struct {
	ID        string    `json:"$id"`
	CreatedAt time.Time `json:"$createdAt"`
	UserID    string    `json:"userId"`
	Expire    time.Time `json:"expire"`
	Provider  string    `json:"provider"`
	Secret    string    `json:"secret"`
	Current   bool      `json:"current"`
}

var errInvalidID = invalidArgument("Invalid `id` param: Parameter must contain at most 36 chars. Valid chars are a-z, A-Z, 0-9, period, hyphen, and underscore. Can't start with a special char")

// resolveID returns requested, or a fresh id for "unique()".
func resolveID(requested string) (string, error) {
	if requested == "" || requested == "unique()" {
		return remote.UniqueID(), nil
	}
	if len(requested) > 36 || strings.HasPrefix(requested, "_") {
		return "", errInvalidID
	}
	for _, r := range requested {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_') {
			return "", errInvalidID
		}
	}
	return requested, nil
}

// CreateAccount handles POST /v1/account
func (s *Server) CreateAccount(c *fiber.Ctx) error {
	var req struct {
		UserID   string `json:"userId"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument("Invalid request body")
	}

	id, err := resolveID(req.UserID)
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return invalidArgument("Invalid `email` param: Value must be a valid email address")
	}
	if n := utf8.RuneCountInString(req.Password); n < minPasswordLength || n > maxPasswordLength {
		return invalidArgument("Invalid `password` param: Password must be between 8 and 256 characters long.")
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		return invalidArgument("Invalid `name` param: Value must be a valid string and at most 128 chars")
	}

	existing, err := s.accounts.GetByEmail(c.UserContext(), email)
	if err != nil {
		return err
	}
	if existing != nil {
		return errUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	account := &repository.Account{
		ID:           id,
		Email:        email,
		Name:         req.Name,
		PasswordHash: string(hashed),
	}
	if err := s.accounts.Create(c.UserContext(), account); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			return errUserExists
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(newAccountView(account))
}

// CreateEmailPasswordSession handles POST /v1/account/sessions/email
func (s *Server) CreateEmailPasswordSession(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument("Invalid request body")
	}

	account, err := s.accounts.GetByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return err
	}
	if account == nil {
		return errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return errInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &repository.Session{
		ID:        remote.UniqueID(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.sessions.Create(c.UserContext(), sess); err != nil {
		return err
	}
	secret, err := s.issueToken(sess)
	if err != nil {
		return models.NewInternalError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     remote.SessionCookieName(s.opts.ProjectID),
		Value:    secret,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Status(fiber.StatusCreated).JSON(sessionView{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		UserID:    account.ID,
		Expire:    sess.ExpiresAt,
		Provider:  "email",
		Secret:    secret,
		Current:   true,
	})
}

// GetAccount handles GET /v1/account
func (s *Server) GetAccount(c *fiber.Ctx) error {
	account, err := s.accounts.GetByID(c.UserContext(), currentAccountID(c))
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return errGuest
		}
		return err
	}
	return c.JSON(newAccountView(account))
}

// DeleteSessions handles DELETE /v1/account/sessions
func (s *Server) DeleteSessions(c *fiber.Ctx) error {
	if _, err := s.sessions.DeleteByAccount(c.UserContext(), currentAccountID(c)); err != nil {
		return err
	}
	c.ClearCookie(remote.SessionCookieName(s.opts.ProjectID))
	return c.SendStatus(fiber.StatusNoContent)
}
