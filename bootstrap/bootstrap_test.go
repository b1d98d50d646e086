package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/easychat/component"
	"github.com/kbukum/easychat/logger"
)

// mockComponent implements component.Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	m.record("start " + m.name)
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	m.record("stop " + m.name)
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	if m.health.Name == "" {
		return component.Health{Name: m.name, Status: component.StatusHealthy}
	}
	return m.health
}

func (m *mockComponent) record(event string) {
	if m.events != nil {
		*m.events = append(*m.events, event)
	}
}

// routedComponent also reports HTTP routes and a description.
type routedComponent struct {
	mockComponent
}

func (r *routedComponent) Routes() []component.Route {
	return []component.Route{
		{Method: "POST", Path: "/api/signin", Handler: "chat.SignIn"},
		{Method: "GET", Path: "/api/events", Handler: "notify.Stream"},
	}
}

func (r *routedComponent) Describe() component.Description {
	return component.Description{Name: "HTTP Server", Type: "server", Details: "gin", Port: 8080}
}

func newTestApp(t *testing.T, opts ...Option) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithLogger(logger.Nop()), WithSummaryOutput(&out)}, opts...)
	return NewApp("easy-chat", "1.0.0", opts...), &out
}

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t)
	if app.Name != "easy-chat" {
		t.Errorf("expected name 'easy-chat', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Components == nil {
		t.Error("expected non-nil components registry")
	}
	if app.Logger == nil {
		t.Error("expected non-nil logger")
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default 15s timeout, got %v", app.gracefulTimeout)
	}
}

func TestNewAppDefaultsToGlobalLogger(t *testing.T) {
	app := NewApp("easy-chat", "dev")
	if app.Logger != logger.GetGlobalLogger() {
		t.Error("expected global logger")
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app, _ := newTestApp(t, WithGracefulTimeout(30*time.Second))
	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "database"}); err != nil {
		t.Fatalf("RegisterComponent failed: %v", err)
	}
	if app.Components.Get("database") == nil {
		t.Error("expected component to be registered")
	}
	if err := app.RegisterComponent(&mockComponent{name: "database"}); err == nil {
		t.Error("expected error for duplicate component registration")
	}
}

func TestHooks(t *testing.T) {
	t.Run("run in order", func(t *testing.T) {
		var order []string
		hooks := []Hook{
			func(ctx context.Context) error { order = append(order, "first"); return nil },
			func(ctx context.Context) error { order = append(order, "second"); return nil },
		}
		if err := runHooks(context.Background(), hooks); err != nil {
			t.Fatalf("runHooks: %v", err)
		}
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected [first second], got %v", order)
		}
	})

	t.Run("error stops execution", func(t *testing.T) {
		secondCalled := false
		hooks := []Hook{
			func(ctx context.Context) error { return fmt.Errorf("fail") },
			func(ctx context.Context) error { secondCalled = true; return nil },
		}
		err := runHooks(context.Background(), hooks)
		if err == nil || !strings.Contains(err.Error(), "hook 0 failed") {
			t.Errorf("expected hook 0 error, got %v", err)
		}
		if secondCalled {
			t.Error("expected second hook not to be called after first fails")
		}
	})
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		health  []component.Health
		wantErr bool
	}{
		{name: "empty"},
		{name: "all healthy", health: []component.Health{
			{Name: "database", Status: component.StatusHealthy},
			{Name: "notify", Status: component.StatusHealthy},
		}},
		{name: "unhealthy", wantErr: true, health: []component.Health{
			{Name: "database", Status: component.StatusUnhealthy, Message: "ping failed"},
		}},
		{name: "degraded", wantErr: true, health: []component.Health{
			{Name: "notify", Status: component.StatusDegraded},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			for _, h := range tt.health {
				app.RegisterComponent(&mockComponent{name: h.Name, health: h})
			}
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadyCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunLifecycleOrder(t *testing.T) {
	app, _ := newTestApp(t)
	var events []string
	for _, name := range []string{"database", "notify", "http-server"} {
		app.RegisterComponent(&mockComponent{name: name, events: &events})
	}
	app.OnStart(func(ctx context.Context) error { events = append(events, "onStart"); return nil })
	app.OnReady(func(ctx context.Context) error { events = append(events, "onReady"); return nil })
	app.OnStop(func(ctx context.Context) error { events = append(events, "onStop"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "start database,start notify,start http-server,onStart,onReady," +
		"onStop,stop http-server,stop notify,stop database"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("lifecycle order:\n got %s\nwant %s", got, want)
	}
}

func TestRunStartFailure(t *testing.T) {
	app, _ := newTestApp(t)
	db := &mockComponent{name: "database"}
	srv := &mockComponent{name: "http-server", startErr: errors.New("address in use")}
	app.RegisterComponent(db)
	app.RegisterComponent(srv)

	err := app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address in use") {
		t.Fatalf("expected start error, got %v", err)
	}
	if !db.stopped {
		t.Error("expected started component to be stopped after failure")
	}
	if srv.stopped {
		t.Error("component that failed to start must not be stopped")
	}
}

func TestRunHookFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		setup func(*App)
		want  string
	}{
		{"start hook", func(a *App) { a.OnStart(func(context.Context) error { return boom }) }, "onStart hook failed"},
		{"ready hook", func(a *App) { a.OnReady(func(context.Context) error { return boom }) }, "onReady hook failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			c := &mockComponent{name: "database"}
			app.RegisterComponent(c)
			tt.setup(app)

			err := app.Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) || !errors.Is(err, boom) {
				t.Fatalf("expected %q wrapping boom, got %v", tt.want, err)
			}
			if !c.stopped {
				t.Error("expected component to be stopped")
			}
		})
	}
}

func TestShutdownErrors(t *testing.T) {
	app, _ := newTestApp(t)
	c := &mockComponent{name: "database", stopErr: errors.New("close failed")}
	app.RegisterComponent(c)
	if err := app.Components.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}

	if err := app.Shutdown(context.Background()); err == nil {
		t.Error("expected shutdown error from component")
	}
	if !c.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestShutdownStopHookError(t *testing.T) {
	app, _ := newTestApp(t)
	c := &mockComponent{name: "database"}
	app.RegisterComponent(c)
	app.Components.StartAll(context.Background())
	app.OnStop(func(context.Context) error { return errors.New("flush failed") })

	if err := app.Shutdown(context.Background()); err == nil {
		t.Error("expected error from stop hook")
	}
	if !c.stopped {
		t.Error("components are stopped even when a stop hook fails")
	}
}

func TestWaitForSignalContextCancellation(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if sig := app.WaitForSignal(ctx); sig != nil {
		t.Errorf("expected nil signal on cancellation, got %v", sig)
	}
}

func TestSummaryDisplay(t *testing.T) {
	app, out := newTestApp(t)
	app.RegisterComponent(&mockComponent{name: "database"})
	app.RegisterComponent(&mockComponent{
		name:   "notify",
		health: component.Health{Name: "notify", Status: component.StatusUnhealthy, Message: "hub not running"},
	})
	app.RegisterComponent(&routedComponent{mockComponent{name: "http-server"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"easy-chat 1.0.0 started",
		"HTTP Server [server]: gin (:8080)",
		"Routes (2)",
		"/api/signin → chat.SignIn",
		"└── GET     /api/events → notify.Stream",
		"✅ database: healthy",
		"❌ notify: unhealthy (hub not running)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummaryDisplayNilRegistry(t *testing.T) {
	var out bytes.Buffer
	s := NewSummary("easy-chat", "dev")
	s.out = &out
	s.Display(context.Background(), nil)
	if !strings.Contains(out.String(), "No components registered") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestTreePrefix(t *testing.T) {
	if treePrefix(0, 2) != "├──" {
		t.Error("expected middle prefix")
	}
	if treePrefix(1, 2) != "└──" {
		t.Error("expected last prefix")
	}
}

func TestHealthStatusIcon(t *testing.T) {
	tests := map[component.HealthStatus]string{
		component.StatusHealthy:   "✅",
		component.StatusDegraded:  "⚠️",
		component.StatusUnhealthy: "❌",
		"unknown":                 "❓",
	}
	for status, want := range tests {
		if got := healthStatusIcon(status); got != want {
			t.Errorf("healthStatusIcon(%q) = %q, want %q", status, got, want)
		}
	}
}
