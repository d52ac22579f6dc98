package googleai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/google-ai-go/googleai/schema"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("got %v, want ErrNoCredentials", err)
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"candidates":[{"index":0,"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), WithAPIKey("secret"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GenerativeModel("gemini-pro").GenerateContent(context.Background(), Text("hi")); err != nil {
		t.Fatal(err)
	}
	if gotKey != "secret" {
		t.Errorf("x-goog-api-key: got %q", gotKey)
	}
	if gotAuth != "" {
		t.Errorf("API key auth must not set Authorization, got %q", gotAuth)
	}
}

func TestTokenSourceHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"candidates":[{"index":0,"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"})
	c, err := NewClient(context.Background(), WithTokenSource(ts), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GenerativeModel("gemini-pro").GenerateContent(context.Background(), Text("hi")); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
}

func TestAPIErrorTranslation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), WithAPIKey("k"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.GenerativeModel("gemini-pro").GenerateContent(context.Background(), Text("hi"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %T (%v), want *APIError", err, err)
	}
	if apiErr.StatusCode != 429 || apiErr.Status != "RESOURCE_EXHAUSTED" || apiErr.Message != "quota exceeded" {
		t.Errorf("fields: %+v", apiErr)
	}
	if !apiErr.Temporary() {
		t.Error("429 should be temporary")
	}
}

func TestBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), WithAPIKey("k"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.GenerativeModel("gemini-pro").GenerateContent(context.Background(), Text("hi"))
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("got %v, want ErrBlocked", err)
	}
}

func TestModelNameQualification(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"candidates":[{"index":0,"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	c, _ := NewClient(context.Background(), WithAPIKey("k"), WithEndpoint(srv.URL))
	c.GenerativeModel("gemini-pro").GenerateContent(context.Background(), Text("hi"))
	if gotPath != "/models/gemini-pro:generateContent" {
		t.Errorf("path: got %q", gotPath)
	}

	c.GenerativeModel("tunedModels/mine").GenerateContent(context.Background(), Text("hi"))
	if gotPath != "/tunedModels/mine:generateContent" {
		t.Errorf("qualified name must pass through: got %q", gotPath)
	}
}

func TestListModelsPagination(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"models":[{"name":"models/a"}],"nextPageToken":"t1"}`)
		case "t1":
			fmt.Fprint(w, `{"models":[{"name":"models/b"}]}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer srv.Close()

	c, _ := NewClient(context.Background(), WithAPIKey("k"), WithEndpoint(srv.URL))
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 || models[0].Name != "models/a" || models[1].Name != "models/b" {
		t.Errorf("models: got %+v", models)
	}
	if page != 2 {
		t.Errorf("requests: got %d, want 2", page)
	}
}

func TestCountTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalTokens":12}`)
	}))
	defer srv.Close()

	c, _ := NewClient(context.Background(), WithAPIKey("k"), WithEndpoint(srv.URL))
	resp, err := c.GenerativeModel("gemini-pro").CountTokens(context.Background(), Text("how many"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalTokens != 12 {
		t.Errorf("total tokens: got %d", resp.TotalTokens)
	}
}

func TestResponseSchemaInRequest(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		fmt.Fprint(w, `{"candidates":[{"index":0,"content":{"parts":[{"text":"{}"}]}}]}`)
	}))
	defer srv.Close()

	c, _ := NewClient(context.Background(), WithAPIKey("k"), WithEndpoint(srv.URL))
	m := c.GenerativeModel("gemini-pro").WithResponseSchema(testPersonSchema())
	if _, err := m.GenerateContent(context.Background(), Text("describe a person")); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"responseMimeType":"application/json"`,
		`"responseSchema"`,
		`"type":"OBJECT"`,
		`"required":["name"]`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %s:\n%s", want, body)
		}
	}
}

// testPersonSchema builds the kind of schema the generator emits, in the
// same statement style.
func testPersonSchema() *schema.Schema {
	s0 := schema.Object()
	s1 := schema.String()
	s1.Description = "The person's full name."
	s0.Properties = map[string]*schema.Schema{"name": s1}
	s0.Required = []string{"name"}
	return s0
}
