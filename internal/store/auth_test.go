package store

import (
	"context"
	"errors"
	"testing"

	"feedsync/internal/models"
	"feedsync/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authenticatedStore(t *testing.T, account *accountStub) *AuthStore {
	t.Helper()
	s := NewAuthStore(account)
	_, err := s.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.True(t, s.IsAuthenticated())
	return s
}

func TestAuthStore_CheckStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		preAuth   bool
		getErr    error
		wantKind  OutcomeKind
		wantAuth  bool
		wantUser  bool
		wantError string
		wantNet   NetworkStatus
		wantErr   bool
	}{
		{name: "success", wantKind: OutcomeAuthenticated, wantAuth: true, wantUser: true, wantNet: NetworkOnline},
		{name: "unauthorized clears user", preAuth: true, getErr: errUnauthorized, wantKind: OutcomeUnauthenticated, wantNet: NetworkOnline},
		{name: "network keeps auth", preAuth: true, getErr: errOffline, wantKind: OutcomeNetworkUnavailable, wantAuth: true, wantUser: true, wantError: models.NetworkUnavailableMessage, wantNet: NetworkOffline, wantErr: true},
		{name: "other failure keeps auth", preAuth: true, getErr: errServer, wantKind: OutcomeFailed, wantAuth: true, wantUser: true, wantError: "Server Error", wantNet: NetworkOnline, wantErr: true},
		{name: "undecodable response uses fallback", getErr: errors.New("decode account.get response: unexpected EOF"), wantKind: OutcomeFailed, wantError: MsgCheckStatusFailed, wantNet: NetworkOnline, wantErr: true},
		{name: "remote error without message uses fallback", preAuth: true, getErr: errNoMessage, wantKind: OutcomeFailed, wantAuth: true, wantUser: true, wantError: MsgCheckStatusFailed, wantNet: NetworkOnline, wantErr: true},
		{name: "canceled request uses fallback", getErr: &remote.TransportError{Op: "account.get", Err: context.Canceled}, wantKind: OutcomeFailed, wantError: MsgCheckStatusFailed, wantNet: NetworkOnline, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			account := noopAccount()
			var s *AuthStore
			if tt.preAuth {
				s = authenticatedStore(t, account)
			} else {
				s = NewAuthStore(account)
			}
			if tt.getErr != nil {
				account.getFn = func(context.Context) (*models.User, error) { return nil, tt.getErr }
			}

			outcome, err := s.CheckStatus(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.wantError, outcome.Message)

			st := s.State()
			assert.False(t, st.Loading)
			assert.Equal(t, tt.wantAuth, st.Authenticated)
			assert.Equal(t, tt.wantUser, st.User != nil)
			assert.Equal(t, tt.wantError, st.Error)
			assert.Equal(t, tt.wantNet, st.Network)
		})
	}
}

func TestAuthStore_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates account then session then loads user", func(t *testing.T) {
		t.Parallel()
		var steps []string
		account := noopAccount()
		account.createFn = func(_ context.Context, userID, email, _, name string) (*models.User, error) {
			steps = append(steps, "create")
			assert.NotEmpty(t, userID)
			return &models.User{ID: userID, Email: email, Name: name}, nil
		}
		account.createSessionFn = func(context.Context, string, string) (*models.Session, error) {
			steps = append(steps, "session")
			return &models.Session{Secret: "s"}, nil
		}
		account.getFn = func(context.Context) (*models.User, error) {
			steps = append(steps, "get")
			return &models.User{ID: "u9", Name: "Grace"}, nil
		}
		s := NewAuthStore(account)

		outcome, err := s.Register(context.Background(), "grace@example.com", "pw", "Grace")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAuthenticated, outcome.Kind)
		assert.Equal(t, "u9", outcome.User.ID)
		assert.Equal(t, []string{"create", "session", "get"}, steps)

		st := s.State()
		assert.True(t, st.Authenticated)
		assert.Equal(t, "Grace", st.User.Name)
		assert.Empty(t, st.Error)
	})

	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantKind OutcomeKind
		wantNet  NetworkStatus
	}{
		{name: "unauthorized", err: errUnauthorized, wantMsg: MsgInvalidCredentials, wantKind: OutcomeFailed, wantNet: NetworkOnline},
		{name: "network", err: errOffline, wantMsg: models.NetworkUnavailableMessage, wantKind: OutcomeNetworkUnavailable, wantNet: NetworkOffline},
		{name: "no remote message", err: errNoMessage, wantMsg: MsgRegistrationFailed, wantKind: OutcomeFailed, wantNet: NetworkOnline},
		{name: "conflict", err: errServerWith(409, "A user with the same email already exists"), wantMsg: "A user with the same email already exists", wantKind: OutcomeFailed, wantNet: NetworkOnline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			account := noopAccount()
			account.createFn = func(context.Context, string, string, string, string) (*models.User, error) {
				return nil, tt.err
			}
			s := NewAuthStore(account)

			outcome, err := s.Register(context.Background(), "a@b.c", "pw", "A")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.wantMsg, outcome.Message)

			st := s.State()
			assert.False(t, st.Authenticated)
			assert.False(t, st.Loading)
			assert.Equal(t, tt.wantMsg, st.Error)
			assert.Equal(t, tt.wantNet, st.Network)
		})
	}
}

func TestAuthStore_Login(t *testing.T) {
	t.Parallel()

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()
		account := noopAccount()
		account.createSessionFn = func(context.Context, string, string) (*models.Session, error) {
			return nil, errUnauthorized
		}
		s := NewAuthStore(account)

		outcome, err := s.Login(context.Background(), "a@b.c", "wrong")
		require.Error(t, err)
		assert.Equal(t, models.CodeNotAuthenticated, models.ErrorCode(err))
		assert.Equal(t, MsgInvalidCredentials, outcome.Message)
		assert.Equal(t, MsgInvalidCredentials, s.State().Error)
	})

	t.Run("fallback message", func(t *testing.T) {
		t.Parallel()
		account := noopAccount()
		account.getFn = func(context.Context) (*models.User, error) { return nil, errNoMessage }
		s := NewAuthStore(account)

		_, err := s.Login(context.Background(), "a@b.c", "pw")
		require.Error(t, err)
		assert.Equal(t, MsgLoginFailed, s.State().Error)
	})
}

func TestAuthStore_Logout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantKind  OutcomeKind
		wantAuth  bool
		wantError string
		wantClear bool
	}{
		{name: "success", wantKind: OutcomeLoggedOut, wantClear: true},
		{name: "network failure counts as logged out", err: errOffline, wantKind: OutcomeLoggedOut, wantClear: true},
		{name: "remote failure", err: errServer, wantKind: OutcomeFailed, wantAuth: true, wantError: "Server Error"},
		{name: "remote failure without message", err: errNoMessage, wantKind: OutcomeFailed, wantAuth: true, wantError: MsgLogoutFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			account := noopAccount()
			s := authenticatedStore(t, account)
			cleared := false
			account.clearSessionFn = func(context.Context) error {
				cleared = true
				return nil
			}
			account.deleteSessionsFn = func(context.Context) error { return tt.err }

			outcome, _ := s.Logout(context.Background())
			assert.Equal(t, tt.wantKind, outcome.Kind)

			st := s.State()
			assert.Equal(t, tt.wantAuth, st.Authenticated)
			assert.Equal(t, tt.wantAuth, st.User != nil)
			assert.Equal(t, tt.wantError, st.Error)
			assert.Equal(t, tt.wantClear, cleared)
		})
	}
}

func TestAuthStore_ClearErrorAndNetworkStatus(t *testing.T) {
	t.Parallel()
	account := noopAccount()
	account.createSessionFn = func(context.Context, string, string) (*models.Session, error) {
		return nil, errServer
	}
	s := NewAuthStore(account)
	_, _ = s.Login(context.Background(), "a@b.c", "pw")
	require.NotEmpty(t, s.State().Error)

	s.ClearError()
	assert.Empty(t, s.State().Error)

	s.SetNetworkStatus(NetworkOffline)
	assert.Equal(t, NetworkOffline, s.State().Network)
}

func TestAuthStore_NotifiesSubscribers(t *testing.T) {
	t.Parallel()
	s := NewAuthStore(noopAccount())

	var loading []bool
	cancel := s.Subscribe(func() {
		loading = append(loading, s.State().Loading)
	})

	_, err := s.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, loading)

	cancel()
	s.ClearError()
	assert.Len(t, loading, 2)
}

func TestAuthStore_StateIsACopy(t *testing.T) {
	t.Parallel()
	s := authenticatedStore(t, noopAccount())
	st := s.State()
	st.User.Name = "mutated"
	assert.Equal(t, "Ada", s.State().User.Name)
}

func TestOutcomeKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "logged_out", OutcomeLoggedOut.String())
	assert.Equal(t, "network_unavailable", OutcomeNetworkUnavailable.String())
}
