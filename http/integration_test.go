package http

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/fluent-http/config"
	"github.com/gaborage/fluent-http/trace"
)

type uploadResult struct {
	Fields   map[string][]string `json:"fields"`
	Files    map[string]string   `json:"files"`
	Names    map[string]string   `json:"names"`
	Token    string              `json:"token"`
	Request  string              `json:"request_id"`
	Accepted string              `json:"accept"`
}

// newUpstream starts an echo application that reports what it received.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.HideBanner = true

	e.POST("/upload", func(c echo.Context) error {
		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(nethttp.StatusBadRequest, err.Error())
		}
		result := uploadResult{
			Fields: form.Value,
			Files:  map[string]string{},
			Names:  map[string]string{},
			Token:  c.Request().Header.Get(echo.HeaderAuthorization),
		}
		for field, headers := range form.File {
			f, err := headers[0].Open()
			if err != nil {
				return err
			}
			data, _ := io.ReadAll(f)
			_ = f.Close()
			result.Files[field] = string(data)
			result.Names[field] = headers[0].Filename
		}
		return c.JSON(nethttp.StatusOK, result)
	})

	e.POST("/login", func(c echo.Context) error {
		params, err := c.FormParams()
		if err != nil {
			return err
		}
		return c.JSON(nethttp.StatusOK, uploadResult{Fields: params})
	})

	e.GET("/whoami", func(c echo.Context) error {
		return c.JSON(nethttp.StatusOK, uploadResult{
			Request:  c.Request().Header.Get(echo.HeaderXRequestID),
			Accepted: c.Request().Header.Get(echo.HeaderAccept),
			Token:    c.Request().Header.Get(echo.HeaderAuthorization),
		})
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func TestIntegrationMultipartUpload(t *testing.T) {
	upstream := newUpstream(t)

	resp, err := engineRequest(upstream.URL).
		WithToken("t0k3n").
		Attach("avatar", []byte("png-bytes"), "me.png", map[string]string{"Content-Type": "image/png"}).
		Post(context.Background(), "/upload", map[string]string{"user": "ada"})
	require.NoError(t, err)
	require.True(t, resp.Successful(), resp.String())

	var result uploadResult
	require.NoError(t, resp.Decode(&result))
	assert.Equal(t, []string{"ada"}, result.Fields["user"])
	assert.Equal(t, "png-bytes", result.Files["avatar"])
	assert.Equal(t, "me.png", result.Names["avatar"])
	assert.Equal(t, "Bearer t0k3n", result.Token)
}

func TestIntegrationFormLogin(t *testing.T) {
	upstream := newUpstream(t)

	resp, err := engineRequest(upstream.URL).AsForm().Post(context.Background(), "login", map[string]string{
		"user":     "ada",
		"password": "secret",
	})
	require.NoError(t, err)

	var result uploadResult
	require.NoError(t, resp.Decode(&result))
	assert.Equal(t, []string{"ada"}, result.Fields["user"])
	assert.Equal(t, []string{"secret"}, result.Fields["password"])
}

func TestIntegrationNamedClient(t *testing.T) {
	upstream := newUpstream(t)
	cfg := config.HTTPConfig{
		Default: "upstream",
		Servers: map[string]config.ServerConfig{
			"upstream": {
				BaseURL: upstream.URL,
				Headers: map[string]string{"Accept": "application/json"},
			},
		},
	}
	client := NewClient(cfg, nil, WithTransport(NewEngineTransport()))

	r, err := client.Request("")
	require.NoError(t, err)

	ctx := trace.WithTraceID(context.Background(), "trace-42")
	resp, err := r.WithToken("abc").Get(ctx, "/whoami", nil)
	require.NoError(t, err)

	var result uploadResult
	require.NoError(t, resp.Decode(&result))
	assert.Equal(t, "trace-42", result.Request)
	assert.Equal(t, "application/json", result.Accepted)
	assert.Equal(t, "Bearer abc", result.Token)
}

func TestIntegrationNotFoundIsNotAnError(t *testing.T) {
	upstream := newUpstream(t)

	resp, err := engineRequest(upstream.URL).Get(context.Background(), "/nowhere", nil)

	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.True(t, resp.ClientError())
	assert.True(t, IsHTTPStatusError(resp.Throw(), nethttp.StatusNotFound))
}
