package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/triggerd/internal/model"
)

func TestResolveWebhook_Literal(t *testing.T) {
	url, err := ResolveWebhook(model.WebhookConf{URL: "https://example.com/hook"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", url)
}

func TestResolveWebhook_FromEnv(t *testing.T) {
	t.Setenv("HOOK_URL", "https://example.com/from-env")

	url, err := ResolveWebhook(model.WebhookConf{FromEnv: "HOOK_URL"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/from-env", url)
}

func TestResolveWebhook_EnvMissing(t *testing.T) {
	url, err := ResolveWebhook(model.WebhookConf{FromEnv: "DEFINITELY_NOT_SET_12345"})
	require.Error(t, err)
	assert.Empty(t, url)
	assert.Contains(t, err.Error(), "is not set")
}

func TestResolveWebhook_Empty(t *testing.T) {
	_, err := ResolveWebhook(model.WebhookConf{})
	require.Error(t, err)
}

func TestResolveHeaders(t *testing.T) {
	t.Setenv("SECRET_TOKEN", "s3cr3t")

	headers, err := ResolveHeaders([]model.HeaderConf{
		{Name: "X-Static", Value: "abc"},
		{Name: "Authorization", ValueEnv: "SECRET_TOKEN"},
	})
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, model.ResolvedHeader{Name: "X-Static", Value: "abc"}, headers[0])
	assert.Equal(t, model.ResolvedHeader{Name: "Authorization", Value: "s3cr3t"}, headers[1])
}

func TestResolveHeaders_EnvMissing(t *testing.T) {
	_, err := ResolveHeaders([]model.HeaderConf{
		{Name: "Authorization", ValueEnv: "DEFINITELY_NOT_SET_12345"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authorization")
}
