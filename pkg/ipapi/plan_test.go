package ipapi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreePlanEndpoint(t *testing.T) {
	u, err := Free().resolve("", pathSingle, "")
	require.NoError(t, err)
	assert.Equal(t, "http://ip-api.com/json", u.String())

	again, err := Free().resolve("", pathSingle, "")
	require.NoError(t, err)
	assert.Equal(t, u.String(), again.String())
}

func TestProPlanEndpoint(t *testing.T) {
	p := Pro("secret")
	u, err := p.resolve("", pathBatch, "")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "pro.ip-api.com", u.Host)
	assert.Equal(t, "/batch", u.Path)
	assert.Equal(t, "secret", u.Query().Get("key"))
	assert.Equal(t, TierPro, p.Tier())
	assert.Equal(t, "", Free().Key())
}

func TestResolveEscapesQuerySegment(t *testing.T) {
	u, err := Free().resolve("", pathSingle, "apple.com")
	require.NoError(t, err)
	assert.Equal(t, "http://ip-api.com/json/apple.com", u.String())

	u, err = Free().resolve("", pathSingle, "2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "/json/2001:db8::1", u.Path)

	u, err = Free().resolve("", pathSingle, "a b/c")
	require.NoError(t, err)
	assert.Equal(t, "/json/a%20b%2Fc", u.EscapedPath())
}

func TestResolveErrors(t *testing.T) {
	_, err := Free().resolve("", pathSingle, "bad\nquery")
	assert.True(t, errors.Is(err, ErrMalformedURL), "got %v", err)

	_, err = Free().resolve("://nope", pathSingle, "")
	assert.True(t, errors.Is(err, ErrInvalidURL), "got %v", err)

	_, err = Free().resolve("ip-api.com", pathSingle, "")
	assert.True(t, errors.Is(err, ErrInvalidURL), "got %v", err)
}

func TestResolveWithBaseOverrideKeepsKey(t *testing.T) {
	u, err := Pro("k1").resolve("http://127.0.0.1:8080/", pathSingle, "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/json/8.8.8.8?key=k1", u.String())
}
