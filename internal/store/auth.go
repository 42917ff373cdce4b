package store

import (
	"context"
	"log/slog"
	"sync"

	"feedsync/internal/models"
	"feedsync/internal/observability"
	"feedsync/internal/remote"
)

// NetworkStatus is the last observed connectivity to the remote service.
type NetworkStatus string

const (
	NetworkOnline  NetworkStatus = "ONLINE"
	NetworkOffline NetworkStatus = "OFFLINE"
)

// AuthState is a snapshot of the auth store.
type AuthState struct {
	User          *models.User
	Authenticated bool
	Loading       bool
	Error         string
	Network       NetworkStatus
}

// OutcomeKind tags the result of an auth operation.
type OutcomeKind int

const (
	OutcomeAuthenticated OutcomeKind = iota
	OutcomeUnauthenticated
	OutcomeLoggedOut
	OutcomeNetworkUnavailable
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeLoggedOut:
		return "logged_out"
	case OutcomeNetworkUnavailable:
		return "network_unavailable"
	default:
		return "failed"
	}
}

// AuthOutcome is what an auth operation produced.
type AuthOutcome struct {
	Kind    OutcomeKind
	User    *models.User
	Message string
}

const authStoreName = "auth"

// AuthStore owns the current user and session status.
type AuthStore struct {
	notifier

	account remote.AccountService

	mu    sync.RWMutex
	state AuthState
}

// NewAuthStore creates a store with nobody signed in.
func NewAuthStore(account remote.AccountService) *AuthStore {
	return &AuthStore{
		account: account,
		state:   AuthState{Network: NetworkOnline},
	}
}

// State returns a copy of the current state.
func (s *AuthStore) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// IsAuthenticated reports whether a user is signed in.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated
}

func (s *AuthStore) update(fn func(st *AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) pending() {
	s.update(func(st *AuthState) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *AuthStore) signedIn(user *models.User) AuthOutcome {
	s.update(func(st *AuthState) {
		st.Loading = false
		st.User = user
		st.Authenticated = true
		st.Error = ""
		st.Network = NetworkOnline
	})
	return AuthOutcome{Kind: OutcomeAuthenticated, User: user}
}

// CheckStatus asks the remote service who the current session belongs to.
func (s *AuthStore) CheckStatus(ctx context.Context) (AuthOutcome, error) {
	op := begin(ctx, authStoreName, "check_status", nil)
	s.pending()

	user, err := s.account.Get(op.ctx)
	switch {
	case err == nil:
		op.fulfilled()
		return s.signedIn(user), nil

	case remote.IsUnauthorized(err):
		op.fulfilled()
		s.update(func(st *AuthState) {
			st.Loading = false
			st.User = nil
			st.Authenticated = false
			st.Error = ""
			st.Network = NetworkOnline
		})
		return AuthOutcome{Kind: OutcomeUnauthenticated}, nil

	case remote.IsNetworkError(err):
		appErr := models.NewNetworkError(err)
		op.rejected(appErr)
		s.update(func(st *AuthState) {
			st.Loading = false
			st.Network = NetworkOffline
			st.Error = appErr.Message
		})
		return AuthOutcome{Kind: OutcomeNetworkUnavailable, Message: appErr.Message}, appErr

	default:
		appErr := remoteFailure(err, MsgCheckStatusFailed)
		op.rejected(appErr)
		s.update(func(st *AuthState) {
			st.Loading = false
			st.Error = appErr.Message
		})
		return AuthOutcome{Kind: OutcomeFailed, Message: appErr.Message}, appErr
	}
}

// Register creates an account, opens a session for it and loads the user.
func (s *AuthStore) Register(ctx context.Context, email, password, name string) (AuthOutcome, error) {
	op := begin(ctx, authStoreName, "register", map[string]interface{}{"email": email})
	s.pending()

	user, err := s.register(op.ctx, email, password, name)
	if err != nil {
		return s.signInFailed(op, err, MsgRegistrationFailed)
	}
	op.fulfilled()
	return s.signedIn(user), nil
}

func (s *AuthStore) register(ctx context.Context, email, password, name string) (*models.User, error) {
	if _, err := s.account.Create(ctx, remote.UniqueID(), email, password, name); err != nil {
		return nil, err
	}
	if _, err := s.account.CreateEmailPasswordSession(ctx, email, password); err != nil {
		return nil, err
	}
	return s.account.Get(ctx)
}

// Login opens a session for the credentials and loads the user.
func (s *AuthStore) Login(ctx context.Context, email, password string) (AuthOutcome, error) {
	op := begin(ctx, authStoreName, "login", map[string]interface{}{"email": email})
	s.pending()

	user, err := s.login(op.ctx, email, password)
	if err != nil {
		return s.signInFailed(op, err, MsgLoginFailed)
	}
	op.fulfilled()
	return s.signedIn(user), nil
}

func (s *AuthStore) login(ctx context.Context, email, password string) (*models.User, error) {
	if _, err := s.account.CreateEmailPasswordSession(ctx, email, password); err != nil {
		return nil, err
	}
	return s.account.Get(ctx)
}

func (s *AuthStore) signInFailed(op *operation, err error, fallback string) (AuthOutcome, error) {
	var appErr *models.AppError
	kind := OutcomeFailed
	switch {
	case remote.IsUnauthorized(err):
		appErr = models.NewUnauthorizedError(MsgInvalidCredentials, err)
	case remote.IsNetworkError(err):
		appErr = models.NewNetworkError(err)
		kind = OutcomeNetworkUnavailable
	default:
		msg := remote.Message(err)
		if msg == "" {
			msg = fallback
		}
		appErr = models.NewRemoteError(msg, err)
	}
	op.rejected(appErr)

	s.update(func(st *AuthState) {
		st.Loading = false
		st.Error = appErr.Message
		if kind == OutcomeNetworkUnavailable {
			st.Network = NetworkOffline
		}
	})
	return AuthOutcome{Kind: kind, Message: appErr.Message}, appErr
}

// Logout deletes every session of the current user. An unreachable remote
// service still counts as logged out locally.
func (s *AuthStore) Logout(ctx context.Context) (AuthOutcome, error) {
	op := begin(ctx, authStoreName, "logout", nil)
	s.pending()

	err := s.account.DeleteSessions(op.ctx)
	if err != nil && !remote.IsNetworkError(err) {
		msg := remote.Message(err)
		if msg == "" {
			msg = MsgLogoutFailed
		}
		appErr := models.NewRemoteError(msg, err)
		op.rejected(appErr)
		s.update(func(st *AuthState) {
			st.Loading = false
			st.Error = appErr.Message
		})
		return AuthOutcome{Kind: OutcomeFailed, Message: appErr.Message}, appErr
	}

	if clearErr := s.account.ClearSession(op.ctx); clearErr != nil {
		observability.Logger().WarnContext(op.ctx, "failed to clear local session", slog.String("error", clearErr.Error()))
	}
	op.fulfilled()
	s.update(func(st *AuthState) {
		st.Loading = false
		st.User = nil
		st.Authenticated = false
		st.Error = ""
	})
	return AuthOutcome{Kind: OutcomeLoggedOut}, nil
}

// ClearError drops the current error message.
func (s *AuthStore) ClearError() {
	s.update(func(st *AuthState) {
		st.Error = ""
	})
}

// SetNetworkStatus overrides the observed connectivity.
func (s *AuthStore) SetNetworkStatus(status NetworkStatus) {
	s.update(func(st *AuthState) {
		st.Network = status
	})
}
