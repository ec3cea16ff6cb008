package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/herbalshop/internal/config"
)

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Redis.Addr = ""
	cfg.RabbitMQ.URL = ""
	return cfg
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestBootstrapWarnsOnDefaultSecrets(t *testing.T) {
	logs := observeLogs(t)

	svc, cleanup, err := Bootstrap(memoryConfig())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, svc.Orders)

	warned := logs.FilterMessageSnippet("default secrets").All()
	require.Len(t, warned, 1)
	assert.Equal(t, []interface{}{"jwt.secret", "links.secret"}, warned[0].ContextMap()["keys"])
}

func TestBootstrapQuietWithOwnSecrets(t *testing.T) {
	logs := observeLogs(t)
	cfg := memoryConfig()
	cfg.JWT.Secret = "jwt-from-vault"
	cfg.Links.Secret = "links-from-vault"

	_, cleanup, err := Bootstrap(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.Zero(t, logs.FilterMessageSnippet("default secrets").Len())
}

func TestBootstrapRejectsEmptyLinkSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Links.Secret = ""
	_, cleanup, err := Bootstrap(cfg)
	defer cleanup()
	assert.ErrorContains(t, err, "links.secret")
}
