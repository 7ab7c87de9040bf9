package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bzik/backend/internal/service/credential"
)

func TestHTTPCompleter_Success(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hello there!  "}}]}`))
	}))
	defer server.Close()

	c := NewHTTPCompleter(HTTPConfig{BaseURL: server.URL + "/", SiteURL: "https://bzik.example", SiteName: "Bzik", Temperature: 0.5}, server.Client())
	result := c.Complete(context.Background(), credential.Credential{Token: "sk-test"}, []*schema.Message{
		schema.SystemMessage("be nice"),
		schema.UserMessage("hi"),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome, "%v", result.Err)
	assert.Equal(t, "Hello there!", result.Text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "https://bzik.example", gotReferer)
	assert.Equal(t, "Bzik", gotTitle)
	assert.Equal(t, DefaultModel, gotBody["model"])
	assert.EqualValues(t, DefaultMaxTokens, gotBody["max_tokens"])
	assert.EqualValues(t, 0.5, gotBody["temperature"])
	msgs, _ := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	first, _ := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be nice", first["content"])
}

func TestHTTPCompleter_ObjectContentIsSoftFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":{"type":"text"}}}]}`))
	}))
	defer server.Close()

	c := NewHTTPCompleter(HTTPConfig{BaseURL: server.URL}, server.Client())
	result := c.Complete(context.Background(), credential.Credential{Token: "sk-test"}, []*schema.Message{schema.UserMessage("hi")})

	assert.Equal(t, OutcomeSoftFailure, result.Outcome)
	assert.Empty(t, result.Text)
}

func TestHTTPCompleter_StatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Outcome
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, OutcomeRateLimited},
		{"payment required", http.StatusPaymentRequired, `{"error":"no credit"}`, OutcomeQuotaExhausted},
		{"server error", http.StatusInternalServerError, `oops`, OutcomeFailure},
		{"unauthorized", http.StatusUnauthorized, `{}`, OutcomeFailure},
		{"empty body", http.StatusOK, ``, OutcomeSoftFailure},
		{"invalid json", http.StatusOK, `{"choices":[`, OutcomeSoftFailure},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":""}}]}`, OutcomeSoftFailure},
		{"no choices", http.StatusOK, `{"id":"x"}`, OutcomeSoftFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c := NewHTTPCompleter(HTTPConfig{BaseURL: server.URL}, server.Client())
			result := c.Complete(context.Background(), credential.Credential{Token: "k"}, []*schema.Message{schema.UserMessage("hi")})
			assert.Equal(t, tc.want, result.Outcome)
			assert.Equal(t, tc.status, result.Status)
			assert.Error(t, result.Err)
		})
	}
}

func TestHTTPCompleter_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewHTTPCompleter(HTTPConfig{BaseURL: url}, nil)
	result := c.Complete(context.Background(), credential.Credential{Token: "k"}, nil)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Error(t, result.Err)
}

func TestExtractReply(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"primary", `{"choices":[{"message":{"content":"hi"}}]}`, "hi", true},
		{"alternate fields joined", `{"choices":[{"message":{"content":""},"text":"part one"},{"content":"part two"}]}`, "part one part two", true},
		{"legacy text", `{"choices":[{"text":"completion"}]}`, "completion", true},
		{"nothing usable", `{"choices":[{"message":{}}]}`, "", false},
		{"not json", `<html>`, "", false},
		{"content parts", `{"choices":[{"message":{"content":[{"type":"text","text":"hello"},{"type":"text","text":"there"}]}}]}`, "hello there", true},
		{"content part without text", `{"choices":[{"message":{"content":[{"type":"image_url","image_url":{"url":"x"}}]}}]}`, "", false},
		{"object content", `{"choices":[{"message":{"content":{"text":"hello"}}}]}`, "", false},
		{"numeric content", `{"choices":[{"message":{"content":42}}]}`, "", false},
		{"object falls through to text", `{"choices":[{"message":{"content":{"a":1}},"text":"plain"}]}`, "plain", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractReply([]byte(tc.body))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
