package kimi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"modelgateway/internal/models"
	"modelgateway/internal/provider/openaicompat"
)

func TestFetchModelsStaticList(t *testing.T) {
	a := New("https://api.kimi.com/coding/v1")
	raw, err := a.FetchModels(context.Background(), "key")
	if err != nil {
		t.Fatalf("FetchModels: %v", err)
	}

	var list models.ModelList
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 1 {
		t.Fatalf("list = %+v", list)
	}
	entry := list.Data[0]
	if entry.ID != "kimi-for-coding" || entry.Object != "model" || entry.Created != 0 || entry.OwnedBy != "kimi" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestGenerateTextPinsModelAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "KimiCLI/1.3" {
			t.Errorf("User-Agent = %q", ua)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "kimi-for-coding" {
			t.Errorf("model = %v, want kimi-for-coding", req["model"])
		}
		w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer srv.Close()

	a := New(srv.URL, openaicompat.WithHTTPClient(srv.Client()))
	orig := models.ChatRequest{"model": "kimi-k2"}
	if _, err := a.GenerateText(context.Background(), "key", orig); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if m, _ := orig.Model(); m != "kimi-k2" {
		t.Error("caller's request mutated")
	}
}
