package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/herbalshop/internal/config"
)

func newTestLinks() *Links {
	return NewLinks(&config.LinksConfig{
		Secret:  "test-link-secret",
		TTL:     time.Hour,
		BaseURL: "http://shop.test/",
	}, NewMemoryUsedTokens())
}

func TestLinkURL(t *testing.T) {
	l := newTestLinks()
	raw, err := l.URL(EntityOrder, 42, ActionApproveCancellation)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "shop.test", u.Host)
	assert.Equal(t, "/orders/42/approve-cancellation", u.Path)
	assert.NotEmpty(t, u.Query().Get("token"))

	raw, err = l.URL(EntityProduct, 7, ActionReject)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://shop.test/products/7/reject?token="))
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	l := newTestLinks()
	token, err := l.Issue(EntityOrder, 1, ActionApprove)
	require.NoError(t, err)

	other := NewLinks(&config.LinksConfig{Secret: "another-secret", TTL: time.Hour}, NewMemoryUsedTokens())
	forged, err := other.Issue(EntityOrder, 1, ActionApprove)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		entity  string
		id      int64
		action  string
		wantErr error
	}{
		{name: "missing token", token: "", entity: EntityOrder, id: 1, action: ActionApprove, wantErr: ErrLinkInvalid},
		{name: "garbage", token: "not-a-jwt", entity: EntityOrder, id: 1, action: ActionApprove, wantErr: ErrLinkInvalid},
		{name: "wrong signature", token: forged, entity: EntityOrder, id: 1, action: ActionApprove, wantErr: ErrLinkInvalid},
		{name: "wrong id", token: token, entity: EntityOrder, id: 2, action: ActionApprove, wantErr: ErrLinkInvalid},
		{name: "wrong action", token: token, entity: EntityOrder, id: 1, action: ActionReject, wantErr: ErrLinkInvalid},
		{name: "wrong entity", token: token, entity: EntityProduct, id: 1, action: ActionApprove, wantErr: ErrLinkInvalid},
		{name: "valid", token: token, entity: EntityOrder, id: 1, action: ActionApprove},
		{name: "replay", token: token, entity: EntityOrder, id: 1, action: ActionApprove, wantErr: ErrLinkUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Redeem(ctx, tt.token, tt.entity, tt.id, tt.action)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRedeemExpired(t *testing.T) {
	l := newTestLinks()
	issued := time.Now().Add(-2 * time.Hour)
	l.now = func() time.Time { return issued }
	token, err := l.Issue(EntityProduct, 3, ActionApprove)
	require.NoError(t, err)

	l.now = time.Now
	err = l.Redeem(context.Background(), token, EntityProduct, 3, ActionApprove)
	assert.ErrorIs(t, err, ErrLinkInvalid)
}

func TestMemoryUsedTokensExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryUsedTokens()
	now := time.Now()
	m.now = func() time.Time { return now }

	first, err := m.Claim(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := m.Claim(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	now = now.Add(2 * time.Minute)
	afterExpiry, err := m.Claim(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, afterExpiry)
}

func TestParseToken(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "jwt-secret"}
	token, err := GenerateToken(cfg, Claims{UserID: 9, Email: "admin@example.com", IsAdmin: true}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)

	_, err = ParseToken(&config.JWTConfig{Secret: "other"}, token)
	assert.Error(t, err)
}
