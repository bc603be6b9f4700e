package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGemini_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("Missing API key in x-goog-api-key header")
		}
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"issues\":[]}"}]}}],
			"usageMetadata": {"promptTokenCount": 1200, "candidatesTokenCount": 30, "cachedContentTokenCount": 1000, "totalTokenCount": 1230}
		}`))
	}))
	defer server.Close()

	g, err := newGemini(context.Background(), "test-key", "gemini-2.5-flash", server.URL, server.Client())
	if err != nil {
		t.Fatalf("newGemini: %v", err)
	}

	resp, err := g.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != `{"issues":[]}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 200 || resp.Usage.OutputTokens != 30 || resp.Usage.CacheReadTokens != 1000 {
		t.Errorf("Usage = %+v", resp.Usage)
	}

	gen, _ := body["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" {
		t.Errorf("generationConfig = %v, want JSON mime type", gen)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("systemInstruction missing")
	}
}

func TestGemini_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(403)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	g, err := newGemini(context.Background(), "bad", "gemini-2.5-flash", server.URL, server.Client())
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Complete(context.Background(), testRequest())
	if !IsAuthError(err) {
		t.Errorf("err = %v, want auth error", err)
	}
}
