package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const testCorpus = `ID,Resume,Category
1,"Registered nurse, ICU",HEALTHCARE
2,"Backend engineer, Go and Redis",INFORMATION-TECHNOLOGY
3,Chartered accountant,FINANCE
`

// fakeOpenAI serves embeddings and chat completions. Only the backend
// resume clears a 0.75 threshold against "Software Engineer".
type fakeOpenAI struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeOpenAI) vector(text string) []float32 {
	switch {
	case text == "Software Engineer":
		return []float32{1, 0, 0, 0}
	case strings.Contains(text, "engineer"):
		return []float32{0.8, 0.6, 0, 0}
	case strings.Contains(text, "nurse"):
		return []float32{0.5, 0.8660254, 0, 0}
	default:
		return []float32{0, 1, 0, 0}
	}
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/embeddings":
		var req struct {
			Input json.RawMessage `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var inputs []string
		if err := json.Unmarshal(req.Input, &inputs); err != nil {
			var single string
			_ = json.Unmarshal(req.Input, &single)
			inputs = []string{single}
		}

		data := make([]map[string]any, len(inputs))
		for i, in := range inputs {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": f.vector(in)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-embedding",
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": len(inputs), "total_tokens": len(inputs)},
		})

	case "/chat/completions":
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		if len(req.Messages) > 0 {
			f.prompts = append(f.prompts, req.Messages[0].Content)
		}
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Candidate 2 is a strong backend fit."},
			}},
			"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 8, "total_tokens": 58},
		})

	default:
		http.NotFound(w, r)
	}
}

func writeAppConfig(t *testing.T, baseURL string) string {
	t.Helper()
	return writeAppConfigWithBudget(t, baseURL, "")
}

// writeAppConfigWithBudget appends budget, an indented YAML block, under openai.
func writeAppConfigWithBudget(t *testing.T, baseURL, budget string) string {
	t.Helper()
	dir := t.TempDir()

	corpusPath := filepath.Join(dir, "Resume.csv")
	if err := os.WriteFile(corpusPath, []byte(testCorpus), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := fmt.Sprintf(`
logging:
  level: error
openai:
  api_key: sk-test
  base_url: %s
  dimensions: 4
%sindex:
  driver: memory
corpus:
  path: %s
pipeline:
  threshold: 0.75
metrics:
  listen_addr: ""
`, baseURL, budget, corpusPath)

	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCmd_IngestThenQuery(t *testing.T) {
	api := &fakeOpenAI{}
	server := httptest.NewServer(api)
	defer server.Close()

	cmd := NewRootCmd("dev")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("exit\n"))
	cmd.SetArgs([]string{"--config", writeAppConfig(t, server.URL), "Software Engineer"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	got := out.String()
	// document ids follow the shuffled sample order, so only the count is checked here
	for _, want := range []string{"Indexed 3 documents", "Found 1 top candidates.", "Candidate 2 is a strong backend fit."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	if len(api.prompts) != 1 {
		t.Fatalf("chat requests = %d, want 1", len(api.prompts))
	}
	if !strings.Contains(api.prompts[0], "Backend engineer, Go and Redis") ||
		strings.Contains(api.prompts[0], "Registered nurse") {
		t.Errorf("unexpected summary prompt:\n%s", api.prompts[0])
	}
}

func TestQueryCmd_RequiresIngestedIndex(t *testing.T) {
	server := httptest.NewServer(&fakeOpenAI{})
	defer server.Close()

	cmd := NewRootCmd("dev")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("exit\n"))
	cmd.SetArgs([]string{"query", "--config", writeAppConfig(t, server.URL)})

	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "attach") {
		t.Fatalf("expected attach error for an empty in-memory index, got %v", err)
	}
}

func TestRootCmd_BudgetRejectsQueries(t *testing.T) {
	server := httptest.NewServer(&fakeOpenAI{})
	defer server.Close()

	budget := "  budget:\n    daily_token_limit: 2\n    action: reject\n"
	cmd := NewRootCmd("dev")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("exit\n"))
	cmd.SetArgs([]string{"--config", writeAppConfigWithBudget(t, server.URL, budget), "Software Engineer"})

	// ingestion spends 3 tokens, so the first query is refused but the loop keeps running
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Indexed 3 documents") || !strings.Contains(got, "embedding quota exceeded") {
		t.Errorf("unexpected output:\n%s", got)
	}
}
