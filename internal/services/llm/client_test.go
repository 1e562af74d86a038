package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testPrompt = "Respond with JSON describing the movie."

type movieAnswer struct {
	Title      string  `json:"title"`
	Year       int     `json:"year"`
	Confidence float64 `json:"confidence"`
}

func serveJSON(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

// quiet disables backoff waits so retry tests finish immediately.
func quiet(opts ...Option) []Option {
	return append([]Option{
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	}, opts...)
}

func testClient(baseURL string, opts ...Option) *Client {
	return NewClient(Config{APIKey: "test", BaseURL: baseURL, Model: "demo-model"}, opts...)
}

// choiceWith wraps content in the minimal completion envelope.
func choiceWith(content string) string {
	return `{"choices":[{"message":{"content":` + content + `}}]}`
}

func TestHealthCheckRoundTrip(t *testing.T) {
	var authHeader string
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		io.WriteString(w, choiceWith(`"{\"ok\":true}"`))
	})

	if err := testClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if authHeader != "Bearer test" {
		t.Errorf("Authorization = %q", authHeader)
	}
}

func TestHealthCheckRejectsBadKey(t *testing.T) {
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid key"}}`)
	})

	err := testClient(server.URL, quiet()...).HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected failure for 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should name the status: %v", err)
	}
}

func TestCompleteJSONUnwrapsCodeFence(t *testing.T) {
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		fenced := "```json\\n{\\\"title\\\":\\\"Spirited Away\\\",\\\"year\\\":2001,\\\"confidence\\\":0.95}\\n```"
		io.WriteString(w, choiceWith(`"`+fenced+`"`))
	})

	content, err := testClient(server.URL).CompleteJSON(context.Background(), testPrompt, "Spirited.Away.2001.mkv")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	var answer movieAnswer
	if err := DecodeLLMJSON(content, &answer); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if answer.Title != "Spirited Away" || answer.Year != 2001 {
		t.Errorf("answer = %+v", answer)
	}
}

func TestCompleteJSONReadsToolCallArguments(t *testing.T) {
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{
			"finish_reason": "tool_calls",
			"message": {
				"content": "",
				"tool_calls": [{"function":{"name":"identify_movie","arguments":"{\"title\":\"Heat\",\"year\":1995,\"confidence\":0.9}"}}]
			}
		}]}`)
	})

	content, err := testClient(server.URL).CompleteJSON(context.Background(), testPrompt, "Heat.1995.mkv")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if !strings.Contains(content, `"title":"Heat"`) {
		t.Errorf("content = %q, want tool call arguments", content)
	}
}

func TestCompleteJSONReadsStreamingDelta(t *testing.T) {
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"delta":{"content":"{\"title\":\"Alien\",\"year\":1979,\"confidence\":0.99}"}}]}`)
	})

	content, err := testClient(server.URL).CompleteJSON(context.Background(), testPrompt, "Alien.1979.mkv")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	var answer movieAnswer
	if err := DecodeLLMJSON(content, &answer); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if answer.Year != 1979 {
		t.Errorf("year = %d, want 1979", answer.Year)
	}
}

func TestCompleteJSONEmptyContentCarriesSnippet(t *testing.T) {
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"finish_reason":"stop","message":{"content":""}}]}`)
	})

	_, err := testClient(server.URL, quiet()...).CompleteJSON(context.Background(), testPrompt, "Example.Movie.mkv")
	if err == nil {
		t.Fatal("expected failure for an empty completion")
	}
	for _, want := range []string{"empty content", `finish_reason="stop"`, "response_snippet="} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestCompleteJSONHonorsRetryAfter(t *testing.T) {
	calls := 0
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, choiceWith(`"{\"title\":\"Heat\",\"year\":1995,\"confidence\":0.9}"`))
	})

	var slept []time.Duration
	client := testClient(server.URL,
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	content, err := client.CompleteJSON(context.Background(), testPrompt, "Heat.1995.mkv")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if !strings.Contains(content, "Heat") {
		t.Errorf("content = %q", content)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Errorf("slept = %v, want the server's one second", slept)
	}
}

func TestCompleteJSONRetriesEmptyCompletions(t *testing.T) {
	calls := 0
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			io.WriteString(w, choiceWith(`""`))
			return
		}
		io.WriteString(w, choiceWith(`"{\"title\":\"Alien\",\"year\":1979,\"confidence\":0.99}"`))
	})

	client := testClient(server.URL, quiet(WithRetryMaxAttempts(5))...)
	content, err := client.CompleteJSON(context.Background(), testPrompt, "Alien.1979.mkv")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if !strings.Contains(content, "Alien") {
		t.Errorf("content = %q", content)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	server := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad request"}}`)
	})

	client := testClient(server.URL, quiet(WithRetryMaxAttempts(5))...)
	if _, err := client.CompleteJSON(context.Background(), testPrompt, "Example.mkv"); err == nil {
		t.Fatal("expected failure for 400")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retries", calls)
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain object", `{"title":"Heat"}`, false},
		{"code fence", "```json\n{\"title\":\"Heat\"}\n```", false},
		{"bare fence", "```\n{\"title\":\"Heat\"}\n```", false},
		{"leading prose", `Here is the answer: {"title":"Heat"}`, false},
		{"trailing prose", `{"title":"Heat"} Let me know if that helps.`, false},
		{"empty", "", true},
		{"no json", "I cannot answer that.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target struct {
				Title string `json:"title"`
			}
			err := DecodeLLMJSON(tt.content, &target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeLLMJSON(%q) error = %v, wantErr %v", tt.content, err, tt.wantErr)
			}
			if !tt.wantErr && target.Title != "Heat" {
				t.Errorf("title = %q, want %q", target.Title, "Heat")
			}
		})
	}
}

func TestConfigured(t *testing.T) {
	if NewClient(Config{}).Configured() {
		t.Error("client without an api key should not report configured")
	}
	if !NewClient(Config{APIKey: "k"}).Configured() {
		t.Error("client with an api key should report configured")
	}
}
