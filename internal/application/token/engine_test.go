package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver serves active users by email from a map.
type fakeResolver struct {
	users map[string]*domain.User
}

func (f *fakeResolver) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := f.users[email]; ok && u.IsActive {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func testUser() *domain.User {
	return &domain.User{
		UserID:   "01HZXK3V9R",
		Email:    "alice@example.com",
		IsActive: true,
		TokenKey: "k3yk3yk3yk3y",
	}
}

func newTestEngine(u *domain.User) *Engine {
	resolver := &fakeResolver{users: map[string]*domain.User{}}
	if u != nil {
		resolver.users[u.Email] = u
	}
	return NewEngine([]byte("test-secret"), 5*time.Minute, 24*time.Hour, resolver)
}

func TestCreateAccessToken_VerifyRoundtrip(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	signed, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	got, err := e.Verify(context.Background(), signed, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, u.Email, got.Email)
}

func TestCreateAccessToken_PayloadFields(t *testing.T) {
	u := testUser()
	u.IsStaff = true
	e := newTestEngine(u)

	signed, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	claims, err := e.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, u.TokenKey, claims[claimTokenKey])
	assert.Equal(t, u.Email, claims[claimEmail])
	assert.Equal(t, TypeAccess, claims[claimType])
	assert.Equal(t, u.UserID, claims[claimUserID])
	assert.Equal(t, true, claims[claimIsStaff])
}

func TestCreateToken_ExtraClaimsMergedLast(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	signed, err := e.CreateAccessToken(u, map[string]interface{}{
		"scope": "checkout",
		"email": "override@example.com", // extra claims may override base claims
	})
	require.NoError(t, err)

	claims, err := e.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "checkout", claims["scope"])
	assert.Equal(t, "override@example.com", claims[claimEmail])
}

func TestDecode_ExpiredToken_InvalidToken(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return issued }
	signed, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	e.now = func() time.Time { return issued.Add(5*time.Minute + time.Second) }
	_, err = e.Decode(signed)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestDecode_ExactlyAtExpiry_StillValid(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return issued }
	signed, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	// Expiry is strict: the token is rejected only once now is past exp, so
	// at exactly exp it still decodes.
	e.now = func() time.Time { return issued.Add(5 * time.Minute) }
	claims, err := e.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, u.Email, claims[claimEmail])

	got, err := e.Verify(context.Background(), signed, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
}

func TestDecode_MissingExpiry_InvalidToken(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	// Extra claims merge last, so a non-numeric exp overrides the real one.
	signed, err := e.CreateAccessToken(u, map[string]interface{}{"exp": "soon"})
	require.NoError(t, err)

	_, err = e.Decode(signed)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestDecode_Malformed_InvalidToken(t *testing.T) {
	e := newTestEngine(nil)
	_, err := e.Decode("not-a-jwt")
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestDecode_WrongSecret_InvalidToken(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)
	signed, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	other := NewEngine([]byte("different-secret"), 5*time.Minute, 24*time.Hour, nil)
	_, err = other.Decode(signed)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestVerify_RefreshTokenRejectedAsAccess(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	refresh, err := e.CreateRefreshToken(u, nil)
	require.NoError(t, err)

	_, err = e.Verify(context.Background(), refresh, TypeAccess)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestVerify_AccessTokenRejectedAsRefresh(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	access, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	_, err = e.Verify(context.Background(), access, TypeRefresh)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestVerify_RotatedTokenKey_InvalidatesOutstandingTokens(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	access, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)
	refresh, err := e.CreateRefreshToken(u, nil)
	require.NoError(t, err)

	u.TokenKey = "r0tat3dr0tat" // rotation == instant revocation

	_, err = e.Verify(context.Background(), access, TypeAccess)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
	_, err = e.Verify(context.Background(), refresh, TypeRefresh)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestVerify_InactiveUser_InvalidToken(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	access, err := e.CreateAccessToken(u, nil)
	require.NoError(t, err)

	u.IsActive = false
	_, err = e.Verify(context.Background(), access, TypeAccess)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestResolveUser_MissingTokenKeyClaim_InvalidToken(t *testing.T) {
	u := testUser()
	e := newTestEngine(u)

	_, err := e.ResolveUser(context.Background(), map[string]interface{}{
		claimEmail: u.Email,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}
