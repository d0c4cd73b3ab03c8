package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novadb/udfhost/appconfig"
	"github.com/novadb/udfhost/registry"
)

func appWithFunctions(t *testing.T, cfg appconfig.Config) *Application {
	t.Helper()

	reg := registry.NewRegistry(nil)
	hello, err := registry.New(registry.NewConfig().
		SetName("hello").
		SetSignature(registry.Signature{Returns: "TEXT"}).
		SetCallFunc(func(ctx context.Context, args []any) (any, error) {
			return "hello", nil
		}))
	require.NoError(t, err)

	boom, err := registry.New(registry.NewConfig().
		SetName("boom").
		SetCallFunc(func(ctx context.Context, args []any) (any, error) {
			return nil, errors.New("exploded")
		}))
	require.NoError(t, err)

	require.NoError(t, reg.Register([]registry.Function{hello, boom}, true))
	return NewApplication(cfg, reg, nil)
}

func TestApplicationFunctionInfo(t *testing.T) {
	app := appWithFunctions(t, testConfig())
	info := app.FunctionInfo()
	assert.Len(t, info, 2)
	assert.Contains(t, info, "hello")
}

func TestApplicationFunctionsRoute(t *testing.T) {
	app := appWithFunctions(t, testConfig())
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/functions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer app-token")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]registry.Descriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got, "hello")
	assert.Equal(t, "TEXT", got["hello"].Signature.Returns)
}

func TestApplicationAuth(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		localDev   bool
		wantStatus int
	}{
		{name: "valid token", token: "app-token", wantStatus: http.StatusOK},
		{name: "wrong token", token: "nope", wantStatus: http.StatusUnauthorized},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "local dev skips auth", localDev: true, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.IsLocalDev = tt.localDev
			app := appWithFunctions(t, cfg)
			srv := httptest.NewServer(app.Handler())
			defer srv.Close()

			req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/functions", nil)
			require.NoError(t, err)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestApplicationInvoke(t *testing.T) {
	app := appWithFunctions(t, testConfig())
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	post := func(name, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/invoke/"+name, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer app-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		resp := post("hello", `{"args": []}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "hello", got["result"])
	})

	t.Run("unknown function", func(t *testing.T) {
		resp := post("nope", `{"args": []}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := post("hello", `{`)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("function error", func(t *testing.T) {
		resp := post("boom", `{"args": []}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warning", "error", "critical"} {
		got, err := ParseLogLevel(lvl)
		require.NoError(t, err)
		assert.Equal(t, LogLevel(lvl), got)
	}

	got, err := ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, got)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
