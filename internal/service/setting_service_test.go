package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/herbalshop/internal/datamodels/setting"
	"github.com/example/herbalshop/internal/repository/memory"
)

func TestSettingService(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettingRepository(memory.NewStore())
	svc := NewSettingService(repo)

	got, err := svc.Get(ctx, setting.KeySenderAddress)
	require.NoError(t, err)
	assert.Equal(t, "", got.Value)

	require.NoError(t, svc.Set(ctx, setting.KeySenderAddress, "store@herbal.test"))
	require.NoError(t, svc.Set(ctx, setting.KeySenderSecret, "abcdefgh"))

	got, err = svc.Get(ctx, setting.KeySenderAddress)
	require.NoError(t, err)
	assert.Equal(t, "store@herbal.test", got.Value)

	got, err = svc.Get(ctx, setting.KeySenderSecret)
	require.NoError(t, err)
	assert.Equal(t, "******gh", got.Value)

	raw, err := repo.Get(ctx, setting.KeySenderSecret)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", raw)

	assert.ErrorIs(t, svc.Set(ctx, " ", "x"), ErrInvalidInput)
	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "***de", maskSecret("abcde"))
}

func TestKeyLockReleases(t *testing.T) {
	k := newKeyLock()
	unlock := k.Lock(7)
	assert.Equal(t, 1, k.size())
	unlock()
	assert.Equal(t, 0, k.size())
}
