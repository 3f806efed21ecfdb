package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"financial-planner/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestNewClient_DefaultEndpoint(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/chat", c.endpoint)
	require.NotNil(t, c.httpClient.Jar)
	require.Zero(t, c.httpClient.Timeout)
}

func TestNewClient_WithTimeoutKeepsJar(t *testing.T) {
	c, err := NewClient("https://planner.example.com/chat", WithTimeout(30*time.Second))
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, c.httpClient.Timeout)
	require.NotNil(t, c.httpClient.Jar)
}

func TestNewClient_RejectsNonHTTPEndpoint(t *testing.T) {
	_, err := NewClient("ftp://example.com/chat")
	require.Error(t, err)
	require.Contains(t, err.Error(), "http or https")
}

func TestNewClient_NilHTTPClient(t *testing.T) {
	_, err := NewClient("http://localhost/chat", WithHTTPClient(nil))
	require.Error(t, err)
}

func TestChat_PostsMessageAndSnapshot(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"response":"Hi there"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/chat")
	require.NoError(t, err)

	reply, err := c.Chat(context.Background(), domain.ChatRequest{
		Message: "Hello",
		FinancialData: &domain.FormSnapshot{
			Age:      intPtr(40),
			Children: []domain.ChildEntry{{Age: intPtr(10), EducationGoal: "college"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ChatReply{Success: true, Response: "Hi there"}, reply)

	require.Equal(t, "Hello", got["message"])
	data, ok := got["financialData"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 40, data["age"])
	require.Nil(t, data["current_savings"])
}

func TestChat_NullFinancialData(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"success":true,"response":"ok"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"hi","financialData":null}`, string(raw))
}

func TestChat_ApplicationFailureIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"response":"I apologize","error":"UPSTREAM_ERROR"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	reply, err := c.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	require.False(t, reply.Success)
	require.Equal(t, "UPSTREAM_ERROR", reply.Error)
}

func TestChat_Non2xxIsHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.HTTPStatusCode())
	require.Equal(t, "bad gateway", statusErr.Body)
}

func TestChat_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestChat_KeepsSessionCookie(t *testing.T) {
	var cookies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("planner_session"); err == nil {
			cookies = append(cookies, c.Value)
		} else {
			http.SetCookie(w, &http.Cookie{Name: "planner_session", Value: "sess-1", Path: "/"})
		}
		_, _ = w.Write([]byte(`{"success":true,"response":"ok"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/chat")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := c.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
		require.NoError(t, err)
	}
	require.Equal(t, []string{"sess-1", "sess-1"}, cookies)
}
