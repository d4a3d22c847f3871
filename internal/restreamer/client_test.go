package restreamer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
)

// newTestClient points a Client at the given test server.
func newTestClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("failed to parse test server port: %v", err)
	}

	return NewClient(Connection{
		Host:     u.Hostname(),
		Port:     uint16(port),
		Username: "admin",
		Password: NewSecret("secret"),
	})
}

func loginHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("failed to decode login body: %v", err)
		}
		if creds["username"] != "admin" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
		})
	}
}

func TestLoginStoresTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", loginHandler(t))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false after successful login")
	}
}

func TestRequestsIdentifyBuild(t *testing.T) {
	agents := make(chan string, 2)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		loginHandler(t)(w, r)
	})
	mux.HandleFunc("GET /api/v3/process", func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode([]any{})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	if _, err := client.ListProcesses(context.Background()); err != nil {
		t.Fatalf("ListProcesses() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if got := <-agents; !strings.HasPrefix(got, "restreamctl/") {
			t.Errorf("User-Agent = %q, want restreamctl/ prefix", got)
		}
	}
}

func TestLoginFailureRecordsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	if err := client.Login(context.Background()); err == nil {
		t.Fatal("Login() succeeded, want error")
	}
	if client.LastError() == "" {
		t.Error("LastError() is empty after failed login")
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after failed login")
	}
}

func TestListProcessesAuthenticates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", loginHandler(t))
	mux.HandleFunc("GET /api/v3/process", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-token" {
			t.Errorf("Authorization = %q, want bearer access token", got)
		}
		json.NewEncoder(w).Encode([]Process{
			{ID: "p1", Reference: "ref1", State: "running", UptimeSeconds: 42},
			{ID: "p2", Reference: "ref2", State: "finished"},
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	processes, err := client.ListProcesses(context.Background())
	if err != nil {
		t.Fatalf("ListProcesses() failed: %v", err)
	}
	if len(processes) != 2 {
		t.Fatalf("ListProcesses() returned %d processes, want 2", len(processes))
	}
	if !processes[0].Running() {
		t.Error("processes[0].Running() = false, want true")
	}
	if processes[1].Running() {
		t.Error("processes[1].Running() = true, want false")
	}
}

func TestProcessCommands(t *testing.T) {
	var commands []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", loginHandler(t))
	mux.HandleFunc("POST /api/v3/process/p1/command", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		commands = append(commands, body["command"])
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	ctx := context.Background()
	if err := client.StartProcess(ctx, "p1"); err != nil {
		t.Fatalf("StartProcess() failed: %v", err)
	}
	if err := client.StopProcess(ctx, "p1"); err != nil {
		t.Fatalf("StopProcess() failed: %v", err)
	}
	if err := client.RestartProcess(ctx, "p1"); err != nil {
		t.Fatalf("RestartProcess() failed: %v", err)
	}

	want := []string{"start", "stop", "restart"}
	if len(commands) != len(want) {
		t.Fatalf("got %d commands, want %d", len(commands), len(want))
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("commands[%d] = %q, want %q", i, commands[i], want[i])
		}
	}
}

func TestCreateProcessBuildsTeeCommand(t *testing.T) {
	var created createProcessRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", loginHandler(t))
	mux.HandleFunc("POST /api/v3/process", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&created)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	outputs := []string{
		"rtmp://live.twitch.tv/app/key1",
		"rtmp://a.rtmp.youtube.com/live2/key2",
	}
	err := client.CreateProcess(context.Background(), "ref-123", "rtmp://localhost/live/input", outputs, "")
	if err != nil {
		t.Fatalf("CreateProcess() failed: %v", err)
	}

	if created.Reference != "ref-123" {
		t.Errorf("reference = %q, want %q", created.Reference, "ref-123")
	}
	if !created.Autostart {
		t.Error("autostart = false, want true")
	}
	wantCmd := `-re -i rtmp://localhost/live/input -c:v copy -c:a copy -f tee -map 0:v -map 0:a "[f=flv]rtmp://live.twitch.tv/app/key1|[f=flv]rtmp://a.rtmp.youtube.com/live2/key2"`
	if created.Command != wantCmd {
		t.Errorf("command = %q, want %q", created.Command, wantCmd)
	}
}

func TestCreateProcessWithFilter(t *testing.T) {
	cmd := buildTeeCommand("rtmp://in/live", []string{"rtmp://out/a"}, "crop=ih*9/16:ih,scale=1080:1920")
	if !strings.Contains(cmd, "-vf crop=ih*9/16:ih,scale=1080:1920 ") {
		t.Errorf("command missing video filter: %q", cmd)
	}
}

func TestCreateProcessValidation(t *testing.T) {
	client := NewClient(DefaultConnection())
	defer client.Close()

	if err := client.CreateProcess(context.Background(), "", "rtmp://in", []string{"rtmp://out"}, ""); err == nil {
		t.Error("CreateProcess() with empty reference succeeded, want error")
	}
	if err := client.CreateProcess(context.Background(), "ref", "rtmp://in", nil, ""); err == nil {
		t.Error("CreateProcess() with no outputs succeeded, want error")
	}
}

func TestListSessionsUnwrapsEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", loginHandler(t))
	mux.HandleFunc("GET /api/v3/sessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sessions": []Session{
				{ID: "s1", Reference: "ref1", BytesSent: 1024, RemoteAddr: "10.0.0.1"},
			},
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" || sessions[0].BytesSent != 1024 {
		t.Errorf("unexpected sessions: %+v", sessions)
	}
}

func TestRefreshTokenUsedBeforeRelogin(t *testing.T) {
	logins := 0
	refreshes := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
			"expires_at":    1, // already expired
		})
	})
	mux.HandleFunc("POST /api/v3/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		if got := r.Header.Get("Authorization"); got != "Bearer refresh-token" {
			t.Errorf("refresh Authorization = %q, want refresh token bearer", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "new-access-token"})
	})
	mux.HandleFunc("GET /api/v3/process", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer new-access-token" {
			t.Errorf("Authorization = %q, want refreshed token", got)
		}
		json.NewEncoder(w).Encode([]Process{})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	ctx := context.Background()
	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if _, err := client.ListProcesses(ctx); err != nil {
		t.Fatalf("ListProcesses() failed: %v", err)
	}

	if refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes)
	}
	if logins != 1 {
		t.Errorf("logins = %d, want 1 (refresh should avoid re-login)", logins)
	}
}

func TestOutputMutations(t *testing.T) {
	type call struct {
		method string
		path   string
		body   outputRequest
	}
	var calls []call
	record := func(w http.ResponseWriter, r *http.Request) {
		var body outputRequest
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}
		calls = append(calls, call{method: r.Method, path: r.URL.Path, body: body})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", loginHandler(t))
	mux.HandleFunc("/api/v3/process/p1/outputs", record)
	mux.HandleFunc("/api/v3/process/p1/outputs/Twitch_0", record)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newTestClient(t, ts)
	defer client.Close()

	ctx := context.Background()
	if err := client.AddProcessOutput(ctx, "p1", "Twitch_0", "rtmp://live.twitch.tv/app/key", ""); err != nil {
		t.Fatalf("AddProcessOutput() failed: %v", err)
	}
	if err := client.UpdateProcessOutput(ctx, "p1", "Twitch_0", "rtmp://live.twitch.tv/app/newkey", "scale=1920:1080,setsar=1"); err != nil {
		t.Fatalf("UpdateProcessOutput() failed: %v", err)
	}
	if err := client.RemoveProcessOutput(ctx, "p1", "Twitch_0"); err != nil {
		t.Fatalf("RemoveProcessOutput() failed: %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}
	if calls[0].method != http.MethodPost || calls[0].body.ID != "Twitch_0" {
		t.Errorf("add call = %+v", calls[0])
	}
	if calls[1].method != http.MethodPut || calls[1].body.VideoFilter == "" {
		t.Errorf("update call = %+v", calls[1])
	}
	if calls[2].method != http.MethodDelete {
		t.Errorf("remove call = %+v", calls[2])
	}
}

func TestConnectionBaseURL(t *testing.T) {
	tests := []struct {
		conn Connection
		want string
	}{
		{Connection{Host: "localhost", Port: 8080}, "http://localhost:8080"},
		{Connection{Host: "engine.example.com", Port: 443, UseTLS: true}, "https://engine.example.com:443"},
	}
	for _, tt := range tests {
		if got := tt.conn.BaseURL(); got != tt.want {
			t.Errorf("BaseURL() = %q, want %q", got, tt.want)
		}
	}
}

func TestConnectionDefaults(t *testing.T) {
	conn := Connection{}.withDefaults()
	if conn.Host != "localhost" || conn.Port != 8080 {
		t.Errorf("withDefaults() = %+v, want localhost:8080", conn)
	}

	conn = Connection{Host: "engine", Port: 9090}.withDefaults()
	if conn.Host != "engine" || conn.Port != 9090 {
		t.Errorf("withDefaults() overwrote explicit values: %+v", conn)
	}
}

func TestSecretWipe(t *testing.T) {
	s := NewSecret("hunter2")
	clone := s.Clone()

	s.Wipe()
	if !s.IsZero() {
		t.Error("secret not empty after Wipe()")
	}
	if clone.Reveal() != "hunter2" {
		t.Errorf("clone affected by wiping the original: %q", clone.Reveal())
	}
	if s.String() != "" || clone.String() != "***" {
		t.Errorf("String() leaked or mislabeled: %q / %q", s.String(), clone.String())
	}
}
