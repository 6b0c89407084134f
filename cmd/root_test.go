package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const testToken = "tok-cli"

// resetCommandState restores every flag to its default between runs since
// the command tree and its flag variables are package globals.
func resetCommandState(t *testing.T) {
	t.Helper()

	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, child := range c.Commands() {
			reset(child)
		}
	}
	reset(rootCmd)
	runArgs = actions.Args{}
}

// setupEnv isolates config and history under temp dirs and points the client
// at baseURL.
func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	resetCommandState(t)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("PGBUILD_HISTORY_DB", filepath.Join(dir, "history.db"))
	t.Setenv("PGBUILD_BASE_URL", baseURL)
	t.Setenv("PGBUILD_USERNAME", "")
	t.Setenv("PGBUILD_PASSWORD", "")
	t.Setenv("PGBUILD_DOWNLOAD_DIR", "")
	t.Setenv("PGBUILD_PROFILE", "")
	t.Setenv("PGBUILD_LOG_LEVEL", "")
}

func execute(t *testing.T, args ...string) (errors.ExitCode, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newBuildServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "dev" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid email or password."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": testToken})
	})
	mux.HandleFunc("/api/v1/apps/42", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("auth_token") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":42,"title":"Demo"}`))
	})
	mux.HandleFunc("/api/v1/apps/42/android", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("APKDATA"))
	})
	mux.HandleFunc("/api/v1/apps/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"app not found"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListActions(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")

	code, stdout, _ := execute(t, "--list")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "List of actions:\n\n") {
		t.Errorf("unexpected header: %q", stdout)
	}
	for _, a := range actions.All() {
		if !strings.Contains(stdout, a.Name) || !strings.Contains(stdout, a.URL) {
			t.Errorf("listing is missing %s", a.Name)
		}
	}
}

func TestListActionsJSON(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")

	code, stdout, _ := execute(t, "--list", "--format", "json")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d", code)
	}
	var listed []actions.Action
	if err := json.Unmarshal([]byte(stdout), &listed); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(listed) != len(actions.All()) {
		t.Errorf("listed %d actions, want %d", len(listed), len(actions.All()))
	}
}

func TestNoActionSupplied(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")

	code, stdout, stderr := execute(t)
	if code != errors.ExitCodeFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("nothing should be printed to stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "No action was supplied.") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestUnknownActionSuggests(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")

	code, _, stderr := execute(t, "-a", "getApp")
	if code != errors.ExitCodeFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Did you mean") || !strings.Contains(stderr, "getApps") {
		t.Errorf("expected suggestions, got %q", stderr)
	}
}

func TestValidationTable(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")

	code, stdout, _ := execute(t, "-a", "updateKeyByPlatformById", "-u", "dev", "-p", "secret")
	if code != errors.ExitCodeFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "Validation errors occurred:") {
		t.Errorf("missing header: %q", stdout)
	}
	for _, msg := range []string{actions.MsgPlatform, actions.MsgKeyID, actions.MsgPayload} {
		if !strings.Contains(stdout, msg) {
			t.Errorf("missing validation %q in %q", msg, stdout)
		}
	}
	if strings.Contains(stdout, actions.MsgAppID) {
		t.Errorf("unexpected app id validation: %q", stdout)
	}
}

func TestGetPrintsData(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")

	code, stdout, stderr := execute(t, "-a", "2", "-i", "42", "-u", "dev", "-p", "secret", "--no-history")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "data: ") {
		t.Errorf("expected data prefix, got %q", stdout)
	}
	if !strings.Contains(stdout, `"title": "Demo"`) {
		t.Errorf("expected response body, got %q", stdout)
	}
}

func TestCredentialsFromEnvironment(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")
	t.Setenv("PGBUILD_USERNAME", "dev")
	t.Setenv("PGBUILD_PASSWORD", "secret")

	code, stdout, stderr := execute(t, "-a", "getAppById", "-i", "42", "--format", "json", "--no-history")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(stdout), &data); err != nil {
		t.Fatalf("json output: %v\n%s", err, stdout)
	}
	if data["title"] != "Demo" {
		t.Errorf("title = %v", data["title"])
	}
}

func TestAuthFailure(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")

	code, stdout, stderr := execute(t, "-a", "getAppById", "-i", "42", "-u", "dev", "-p", "wrong", "--no-history")
	if code != errors.ExitCodeFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "Could not authenticate user.") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRequestFailure(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")

	code, _, stderr := execute(t, "-a", "getAppById", "-i", "404", "-u", "dev", "-p", "secret", "--no-history")
	if code != errors.ExitCodeFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Could not perform action getAppById") || !strings.Contains(stderr, "app not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDownload(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")
	dir := t.TempDir()

	code, stdout, stderr := execute(t, "-a", "downloadAppById", "-i", "42", "-d", "android",
		"-u", "dev", "-p", "secret", "--output-dir", dir, "--no-history")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}

	path := filepath.Join(dir, "42_android.apk")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != "APKDATA" {
		t.Errorf("artifact = %q", data)
	}
	if !strings.Contains(stdout, "Download starting...") {
		t.Errorf("missing start message: %q", stdout)
	}
	if !strings.Contains(stdout, "Download complete.  File can be found here: "+path) {
		t.Errorf("missing completion message: %q", stdout)
	}
}

func TestDryRunSendsNothing(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = true }))
	defer srv.Close()
	setupEnv(t, srv.URL)

	code, stdout, stderr := execute(t, "-a", "createApp", "--dry-run", `{"title":"Demo"}`)
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if hit {
		t.Error("dry run must not contact the service")
	}
	for _, want := range []string{"[DRY-RUN] Would perform createApp", srv.URL + "/apps", `{"title":"Demo"}`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("dry run output missing %q: %q", want, stdout)
		}
	}
}

func TestHistoryRecordsExecutions(t *testing.T) {
	srv := newBuildServer(t)
	setupEnv(t, srv.URL+"/api/v1")

	if code, _, stderr := execute(t, "-a", "getAppById", "-i", "42", "-u", "dev", "-p", "secret"); code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	resetCommandState(t)
	if code, _, _ := execute(t, "-a", "getAppById", "-i", "404", "-u", "dev", "-p", "secret"); code != errors.ExitCodeFailure {
		t.Fatalf("expected failing request")
	}
	resetCommandState(t)

	code, stdout, stderr := execute(t, "history", "list", "--format", "json")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("history list exit code = %d, stderr = %s", code, stderr)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("history output: %v\n%s", err, stdout)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["status"] != "failure" || entries[1]["status"] != "success" {
		t.Errorf("unexpected order or status: %v", entries)
	}

	resetCommandState(t)
	code, stdout, _ = execute(t, "history", "list", "--status", "success")
	if code != errors.ExitCodeSuccess || !strings.Contains(stdout, "getAppById") || strings.Contains(stdout, "app not found") {
		t.Errorf("filtered table = %q", stdout)
	}

	resetCommandState(t)
	if code, stdout, _ := execute(t, "history", "clear", "--yes"); code != errors.ExitCodeSuccess || !strings.Contains(stdout, "Removed 2 entries.") {
		t.Errorf("history clear = %d %q", code, stdout)
	}
}

func TestActionsFilter(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")

	code, stdout, _ := execute(t, "actions", "--filter", "collab")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "addCollaborator") || strings.Contains(stdout, "getKeys") {
		t.Errorf("filter output = %q", stdout)
	}
}

func TestConfigProfiles(t *testing.T) {
	setupEnv(t, "")

	if code, _, stderr := execute(t, "config", "profiles", "add", "--name", "work", "--username", "work@example.com"); code != errors.ExitCodeSuccess {
		t.Fatalf("add exit code = %d, stderr = %s", code, stderr)
	}
	resetCommandState(t)
	if code, _, stderr := execute(t, "config", "profiles", "use", "--name", "work"); code != errors.ExitCodeSuccess {
		t.Fatalf("use exit code = %d, stderr = %s", code, stderr)
	}
	resetCommandState(t)

	code, stdout, _ := execute(t, "config", "show")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("show exit code = %d", code)
	}
	if !strings.Contains(stdout, "Active Profile: work") || !strings.Contains(stdout, "Username: work@example.com") {
		t.Errorf("config show = %q", stdout)
	}

	resetCommandState(t)
	if code, _, stderr := execute(t, "config", "profiles", "remove", "--name", "work"); code != errors.ExitCodeFailure {
		t.Errorf("removing the active profile should fail, stderr = %s", stderr)
	}
}

func TestVersion(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")
	prev := [3]string{Version, BuildTime, GitCommit}
	t.Cleanup(func() { Version, BuildTime, GitCommit = prev[0], prev[1], prev[2] })

	Version, BuildTime, GitCommit = "", "", ""
	code, stdout, _ := execute(t, "version")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d", code)
	}
	want := "pgbuild version dev\nBuilt: unknown\nGit commit: unknown\n"
	if stdout != want {
		t.Errorf("version output = %q, want %q", stdout, want)
	}

	resetCommandState(t)
	Version, BuildTime, GitCommit = "1.2.0", "2026-10-19", "abc123"
	_, stdout, _ = execute(t, "version")
	if !strings.Contains(stdout, "pgbuild version 1.2.0") || !strings.Contains(stdout, "Git commit: abc123") {
		t.Errorf("version output = %q", stdout)
	}
	if userAgent() != "pgbuild/1.2.0" {
		t.Errorf("userAgent() = %q", userAgent())
	}
}

func TestBuildWithoutPayload(t *testing.T) {
	var gotMethod, gotPath string
	srv := newBuildServer(t)
	mux := srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/api/v1/apps/42/build", func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":{"ios":"pending"}}`))
	})
	setupEnv(t, srv.URL+"/api/v1")

	code, stdout, stderr := execute(t, "-a", "buildAppsById", "-i", "42", "--dry-run")
	if code != errors.ExitCodeSuccess || !strings.Contains(stdout, "[DRY-RUN] Would perform buildAppsById") {
		t.Fatalf("dry run = %d %q %q", code, stdout, stderr)
	}

	resetCommandState(t)
	code, stdout, stderr = execute(t, "-a", "9", "-i", "42", "-u", "dev", "-p", "secret", "--no-history")
	if code != errors.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/v1/apps/42/build" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if !strings.Contains(stdout, "pending") {
		t.Errorf("stdout = %q", stdout)
	}
}
