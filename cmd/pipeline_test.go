package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"tweet-digest/internal/artifact"
	"tweet-digest/internal/config"
	"tweet-digest/internal/model"
	"tweet-digest/internal/storage"
)

var testDate = time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)

// newTestConfig stores remote objects in a temp directory and points the
// generator at baseURL.
func newTestConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		App:     config.AppConfig{DataDir: filepath.Join(root, "data")},
		Collect: config.CollectConfig{Authors: []string{"alice", "bob"}},
		OpenAI:  config.OpenAIConfig{APIKey: "test", Model: "test-model", BaseURL: baseURL},
		Storage: config.StorageConfig{LocalDir: filepath.Join(root, "remote")},
	}
	cfg.FillDefaults()
	return cfg
}

// remotePath is where the local store keeps key.
func remotePath(cfg config.Config, file string) string {
	return filepath.Join(cfg.Storage.LocalDir, cfg.Storage.BasePath, partitionKey(testDate), file)
}

func newCompletionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"` + reply + `"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunEnrichWritesRunArtifactAndMerges(t *testing.T) {
	srv := newCompletionServer(t, "번역")
	cfg := newTestConfig(t, srv.URL+"/v1")

	fresh := model.Post{URL: "https://x.com/alice/status/2", ID: "2", Text: strings.Repeat("a", 40)}
	if err := artifact.WriteAuthor(artifact.AuthorPath(cfg.App.DataDir, "alice"), []model.Post{fresh}); err != nil {
		t.Fatal(err)
	}
	// bob has no artifact; enrichment goes on without it
	prior := model.Post{URL: "https://x.com/alice/status/1", ID: "1", Text: "old", TranslatedText: "옛"}
	if err := artifact.WritePosts(remotePath(cfg, cfg.Storage.AggregateFile), []model.Post{prior}); err != nil {
		t.Fatal(err)
	}

	merged, err := runEnrich(context.Background(), cfg, testDate, nil)
	if err != nil {
		t.Fatalf("runEnrich: %v", err)
	}

	enriched := fresh
	enriched.TranslatedText = "번역"
	if diff := cmp.Diff([]model.Post{enriched, prior}, merged); diff != "" {
		t.Fatalf("merged mismatch (-want +got):\n%s", diff)
	}

	for name, path := range map[string]string{
		"local run":  filepath.Join(cfg.App.DataDir, partitionKey(testDate), cfg.Storage.RunFile),
		"remote run": remotePath(cfg, cfg.Storage.RunFile),
	} {
		got, err := artifact.ReadPosts(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if diff := cmp.Diff([]model.Post{enriched}, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}

	remoteAgg, err := artifact.ReadPosts(remotePath(cfg, cfg.Storage.AggregateFile))
	if err != nil {
		t.Fatalf("remote aggregate: %v", err)
	}
	if diff := cmp.Diff(merged, remoteAgg); diff != "" {
		t.Fatalf("remote aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestRunEnrichRequiresAPIKey(t *testing.T) {
	cfg := newTestConfig(t, "")
	cfg.OpenAI.APIKey = ""
	if _, err := runEnrich(context.Background(), cfg, testDate, nil); err == nil {
		t.Fatalf("want error without an api key")
	}
}

func TestRunFetch(t *testing.T) {
	cfg := newTestConfig(t, "")
	posts := []model.Post{{URL: "https://x.com/alice/status/1", ID: "1", Text: "hi"}}
	if err := artifact.WriteAuthor(remotePath(cfg, artifact.AuthorFileName("alice")), posts); err != nil {
		t.Fatal(err)
	}

	fetched, err := runFetch(context.Background(), cfg, testDate)
	if err != nil {
		t.Fatalf("runFetch: %v", err)
	}
	if diff := cmp.Diff([]string{"alice"}, fetched); diff != "" {
		t.Fatalf("fetched mismatch (-want +got):\n%s", diff)
	}
	got, err := artifact.ReadAuthor(artifact.AuthorPath(cfg.App.DataDir, "alice"))
	if err != nil {
		t.Fatalf("read fetched artifact: %v", err)
	}
	if diff := cmp.Diff(posts, got); diff != "" {
		t.Fatalf("artifact mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(artifact.AuthorPath(cfg.App.DataDir, "bob")); !os.IsNotExist(err) {
		t.Fatalf("missing author produced a local file: %v", err)
	}
}

func TestRunPipelineRefusesLockedPartition(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newTestConfig(t, "")
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	rdb := storage.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	other := storage.NewRedisStore(rdb, time.Hour)
	ctx := context.Background()
	if ok, err := other.AcquireRunLock(ctx, partitionKey(testDate), time.Hour); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	err := runPipeline(ctx, cfg, testDate)
	if err == nil || !strings.Contains(err.Error(), "already being processed") {
		t.Fatalf("want lock refusal, got %v", err)
	}
	// the holder's lock is left alone
	if _, locked, _ := other.RunLockHolder(ctx, partitionKey(testDate)); !locked {
		t.Fatalf("refused run released another run's lock")
	}
	if _, err := os.Stat(filepath.Join(cfg.App.DataDir, partitionKey(testDate))); !os.IsNotExist(err) {
		t.Fatalf("refused run wrote partition data: %v", err)
	}
}
