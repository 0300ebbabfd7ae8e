package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dcexport/pkg/config"
	"dcexport/pkg/errors"
	"dcexport/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a client config pointed at a test server
func testClientConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Discord.Token = "test-token"
	cfg.Discord.UserAgent = "test-agent"
	if baseURL != "" {
		cfg.Discord.APIBaseURL = baseURL
	}
	cfg.Export.RequestTimeout = 5 * time.Second
	return cfg
}

// Helper function to create a response for checkResponseStatus tests
func newStatusResponse(statusCode int, header http.Header, body string) *http.Response {
	req, _ := http.NewRequest("GET", "http://example.com/channels/1/messages", nil)
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: statusCode,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("defaults", func(t *testing.T) {
		client := NewClient(testClientConfig(""), log)

		assert.NotNil(t, client)
		assert.NotNil(t, client.httpClient)
		assert.Equal(t, DefaultBaseURL, client.baseURL)
		assert.Equal(t, "test-token", client.headers["Authorization"])
		assert.Equal(t, "test-agent", client.headers["User-Agent"])
		assert.Equal(t, log, client.logger)
	})

	t.Run("base URL override", func(t *testing.T) {
		client := NewClient(testClientConfig("http://localhost:8080/api/v9/"), log)
		assert.Equal(t, "http://localhost:8080/api/v9", client.BaseURL())
	})
}

func TestSetHeaders(t *testing.T) {
	client := NewClient(testClientConfig(""), logger.NewTestLogger())

	t.Run("SetHeader", func(t *testing.T) {
		client.SetHeader("X-Custom-Header", "test-value")
		assert.Equal(t, "test-value", client.headers["X-Custom-Header"])
	})

	t.Run("SetHeaders", func(t *testing.T) {
		headers := map[string]string{
			"X-Header-1": "value1",
			"X-Header-2": "value2",
		}
		client.SetHeaders(headers)
		assert.Equal(t, "value1", client.headers["X-Header-1"])
		assert.Equal(t, "value2", client.headers["X-Header-2"])
	})
}

func TestDoRequest(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("successful request sends credential headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-token", r.Header.Get("Authorization"))
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("success"))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		req, err := http.NewRequest("GET", server.URL, nil)
		require.NoError(t, err)

		resp, err := client.doRequest(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "success", string(body))
		resp.Body.Close()
	})

	t.Run("network error", func(t *testing.T) {
		client := NewClient(testClientConfig(""), log)

		req, err := http.NewRequest("GET", "http://invalid-domain-that-does-not-exist.example", nil)
		require.NoError(t, err)

		resp, err := client.doRequest(req)
		assert.Nil(t, resp)
		assert.Error(t, err)

		var apiErr *errors.Error
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeNetwork, apiErr.Type)
	})
}

func TestCheckResponseStatus(t *testing.T) {
	client := NewClient(testClientConfig(""), logger.NewTestLogger())

	tests := []struct {
		name         string
		statusCode   int
		expectedType errors.ErrorType
	}{
		{
			name:       "200 OK",
			statusCode: http.StatusOK,
		},
		{
			name:         "401 Unauthorized",
			statusCode:   http.StatusUnauthorized,
			expectedType: errors.ErrorTypeAuth,
		},
		{
			name:         "403 Forbidden",
			statusCode:   http.StatusForbidden,
			expectedType: errors.ErrorTypeAuth,
		},
		{
			name:         "404 Not Found",
			statusCode:   http.StatusNotFound,
			expectedType: errors.ErrorTypeNotFound,
		},
		{
			name:         "429 Too Many Requests",
			statusCode:   http.StatusTooManyRequests,
			expectedType: errors.ErrorTypeRateLimit,
		},
		{
			name:         "500 Internal Server Error",
			statusCode:   http.StatusInternalServerError,
			expectedType: errors.ErrorTypeServerError,
		},
		{
			name:         "502 Bad Gateway",
			statusCode:   http.StatusBadGateway,
			expectedType: errors.ErrorTypeServerError,
		},
		{
			name:         "503 Service Unavailable",
			statusCode:   http.StatusServiceUnavailable,
			expectedType: errors.ErrorTypeServerError,
		},
		{
			name:         "400 Bad Request",
			statusCode:   http.StatusBadRequest,
			expectedType: errors.ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := newStatusResponse(tt.statusCode, nil, "")

			err := client.checkResponseStatus(resp)
			if tt.expectedType == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				var apiErr *errors.Error
				assert.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.expectedType, apiErr.Type)
				assert.Equal(t, tt.statusCode, apiErr.Code)
			}
		})
	}

	t.Run("429 carries the server wait", func(t *testing.T) {
		header := make(http.Header)
		header.Set("Retry-After", "3")
		resp := newStatusResponse(http.StatusTooManyRequests, header, "")

		err := client.checkResponseStatus(resp)
		require.Error(t, err)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeRateLimit, apiErr.Type)
		assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
	})
}

func TestParseRetryAfter(t *testing.T) {
	client := NewClient(testClientConfig(""), logger.NewTestLogger())

	tests := []struct {
		name     string
		header   string
		body     string
		expected time.Duration
	}{
		{
			name:     "integer header seconds",
			header:   "5",
			expected: 5 * time.Second,
		},
		{
			name:     "fractional header seconds",
			header:   "2.5",
			expected: 2500 * time.Millisecond,
		},
		{
			name:     "body fallback",
			body:     `{"message":"You are being rate limited.","retry_after":1.5,"global":false}`,
			expected: 1500 * time.Millisecond,
		},
		{
			name:     "unparseable header falls back to body",
			header:   "soon",
			body:     `{"retry_after":4}`,
			expected: 4 * time.Second,
		},
		{
			name:     "no wait provided",
			expected: 0,
		},
		{
			name:     "garbage body",
			body:     "not json",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := make(http.Header)
			if tt.header != "" {
				header.Set("Retry-After", tt.header)
			}
			resp := newStatusResponse(http.StatusTooManyRequests, header, tt.body)

			assert.Equal(t, tt.expected, client.parseRetryAfter(resp))
		})
	}
}

func TestGet(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient(testClientConfig(""), log)

	t.Run("successful GET", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("test response"))
		}))
		defer server.Close()

		resp, err := client.Get(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "test response", string(body))
		resp.Body.Close()
	})

	t.Run("invalid URL", func(t *testing.T) {
		resp, err := client.Get(context.Background(), "://invalid-url")
		assert.Nil(t, resp)
		assert.Error(t, err)

		var apiErr *errors.Error
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeUnknown, apiErr.Type)
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resp, err := client.Get(ctx, server.URL)
		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestGetJSON(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient(testClientConfig(""), log)

	type testData struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	}

	t.Run("successful JSON decode", func(t *testing.T) {
		expected := testData{Message: "test", Value: 42}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(expected)
		}))
		defer server.Close()

		var result testData
		err := client.GetJSON(context.Background(), server.URL, &result)
		require.NoError(t, err)
		assert.Equal(t, expected, result)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("invalid json"))
		}))
		defer server.Close()

		var result testData
		err := client.GetJSON(context.Background(), server.URL, &result)
		assert.Error(t, err)

		var apiErr *errors.Error
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		var result testData
		err := client.GetJSON(context.Background(), server.URL, &result)
		assert.Error(t, err)

		var apiErr *errors.Error
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeNotFound, apiErr.Type)
	})
}

func TestFetchChannel(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/channels/123456789012345678", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id":"123456789012345678","type":0,"name":"general"}`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		channel, err := client.FetchChannel(context.Background(), "123456789012345678")
		require.NoError(t, err)
		assert.Equal(t, "123456789012345678", channel.ID)
		assert.Equal(t, "general", channel.Name)
	})

	t.Run("unknown channel", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Unknown Channel","code":10003}`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		channel, err := client.FetchChannel(context.Background(), "123456789012345678")
		assert.Nil(t, channel)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeNotFound, apiErr.Type)
	})
}

func TestFetchMessages(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("first page omits the cursor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/channels/123456789012345678/messages", r.URL.Path)
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			assert.False(t, r.URL.Query().Has("before"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[{"id":"3","content":"c"},{"id":"2","content":"b"},{"id":"1","content":"a"}]`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		messages, err := client.FetchMessages(context.Background(), "123456789012345678", "")
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "3", messages[0].ID)
		assert.Equal(t, "1", messages[2].ID)
	})

	t.Run("subsequent page passes the cursor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "111111111111111111", r.URL.Query().Get("before"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		messages, err := client.FetchMessages(context.Background(), "123456789012345678", "111111111111111111")
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("non-array body is a parsing error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"message":"not an array"}`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		messages, err := client.FetchMessages(context.Background(), "123456789012345678", "")
		assert.Nil(t, messages)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
	})

	t.Run("message without id is a parsing error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[{"id":"3","content":"ok"},{"content":"no id"}]`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		_, err := client.FetchMessages(context.Background(), "123456789012345678", "")

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"401: Unauthorized","code":0}`))
		}))
		defer server.Close()

		client := NewClient(testClientConfig(server.URL), log)

		_, err := client.FetchMessages(context.Background(), "123456789012345678", "")

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeAuth, apiErr.Type)
	})
}

func TestClientLogging(t *testing.T) {
	log := logger.NewTestLogger()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), log)

	resp, err := client.Get(context.Background(), server.URL+"/channels/1/messages")
	require.NoError(t, err)
	defer resp.Body.Close()

	err = client.checkResponseStatus(resp)
	require.Error(t, err)

	assert.True(t, log.HasMessage("sending HTTP request"))
	assert.True(t, log.HasMessage("rate limit exceeded"))
}
