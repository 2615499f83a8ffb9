package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/config"
	"fleetinventory/db/dbtest"
	"fleetinventory/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *Service {
	return NewService(dbtest.New(t), zap.NewNop(), config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
}

func TestCreateUserCreatesProfile(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, CreateUserInput{
		Username:     "clerk",
		Password:     "correct horse",
		ProfileInput: ProfileInput{PhoneNumber: "0611"},
	})
	require.NoError(t, err)
	require.NotNil(t, u.Profile)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	var profiles int64
	require.NoError(t, s.db.Model(&models.UserProfile{}).Where("user_id = ?", u.ID).Count(&profiles).Error)
	assert.EqualValues(t, 1, profiles)

	_, err = s.CreateUser(ctx, CreateUserInput{Username: "clerk", Password: "another pass"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = s.CreateUser(ctx, CreateUserInput{Username: "short", Password: "x"})
	_, ok := apperror.IsValidation(err)
	assert.True(t, ok)

	profile, err := s.UpdateProfile(ctx, u.ID, ProfileInput{PhoneNumber: "0622", Address: "12 Rue Atlas"})
	require.NoError(t, err)
	assert.Equal(t, u.Profile.ID, profile.ID)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "12 Rue Atlas", got.Profile.Address)
}

func TestLoginAndValidateToken(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.CreateUser(ctx, CreateUserInput{Username: "clerk", Password: "correct horse"})
	require.NoError(t, err)

	_, _, err = s.Login(ctx, "clerk", "wrong password")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	token, user, err := s.Login(ctx, "clerk", "correct horse")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "clerk", claims.Username)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	other := NewService(s.db, zap.NewNop(), config.JWTConfig{SigningKey: "other-key", ExpirationHours: 1})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestGetOrCreateToken(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, CreateUserInput{Username: "robot", Password: "long enough"})
	require.NoError(t, err)

	first, created, err := s.GetOrCreateToken(ctx, "robot")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, first.Key, 40)

	again, created, err := s.GetOrCreateToken(ctx, "robot")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Key, again.Key)

	_, _, err = s.GetOrCreateToken(ctx, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	resolved, err := s.UserForAPIToken(ctx, first.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.ID)

	_, err = s.UserForAPIToken(ctx, "nope")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestMiddleware(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, CreateUserInput{Username: "clerk", Password: "correct horse"})
	require.NoError(t, err)
	jwtToken, err := s.GenerateToken(u)
	require.NoError(t, err)
	apiToken, _, err := s.GetOrCreateToken(ctx, "clerk")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/private", s.Middleware(), func(c *fiber.Ctx) error {
		id, ok := UserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"user_id": id, "username": Username(c)})
	})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"no credentials", "", "", fiber.StatusUnauthorized},
		{"bearer jwt", "Bearer " + jwtToken, "", fiber.StatusOK},
		{"api token", "Token " + apiToken.Key, "", fiber.StatusOK},
		{"query jwt", "", jwtToken, fiber.StatusOK},
		{"query api token", "", apiToken.Key, fiber.StatusOK},
		{"bad bearer", "Bearer garbage", "", fiber.StatusUnauthorized},
		{"api token sent as bearer", "Bearer " + apiToken.Key, "", fiber.StatusUnauthorized},
		{"malformed header", "Basic", "", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/private"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
