package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type engineAddr struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func loadEngineAddr(path string) (engineAddr, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engineAddr{}, err
	}
	var addr engineAddr
	err = toml.Unmarshal(data, &addr)
	return addr, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeAddr(t *testing.T, path, host string, port int) {
	t.Helper()
	content := fmt.Sprintf("host = %q\nport = %d\n", host, port)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newAddrFile(t *testing.T, host string, port int) string {
	t.Helper()
	f, err := os.CreateTemp("", "settings_*.toml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	f.Close()
	writeAddr(t, f.Name(), host, port)
	return f.Name()
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	path := newAddrFile(t, "localhost", 8080)

	received := make(chan engineAddr, 1)
	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](50*time.Millisecond),
	)
	watcher.OnReload(func(addr engineAddr) {
		received <- addr
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	}()

	// Let the watcher register before touching the file.
	time.Sleep(100 * time.Millisecond)
	writeAddr(t, path, "engine.lan", 9090)

	select {
	case addr := <-received:
		if addr.Host != "engine.lan" || addr.Port != 9090 {
			t.Errorf("got %+v, want engine.lan:9090", addr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

// The watcher hands live Settings to reload handlers the same way main does.
func TestConfigWatcher_ReloadsSettings(t *testing.T) {
	path := newAddrFile(t, "localhost", 8080)

	received := make(chan Settings, 1)
	watcher := NewConfigWatcher(
		path,
		LoadSettings,
		quietLogger(),
		WithDebounce[Settings](50*time.Millisecond),
	)
	watcher.OnReload(func(s Settings) {
		received <- s
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	content := "host = \"engine.lan\"\nport = 9090\n\n[[destinations]]\nservice = 1\nstream_key = \"k\"\nenabled = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-received:
		if s.Host != "engine.lan" || s.Port != 9090 {
			t.Errorf("connection = %s:%d, want engine.lan:9090", s.Host, s.Port)
		}
		if len(s.Destinations) != 1 || s.Destinations[0].StreamKey != "k" {
			t.Errorf("destinations = %+v", s.Destinations)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for settings reload")
	}
}

func TestConfigWatcher_LoadsLatestChange(t *testing.T) {
	path := newAddrFile(t, "localhost", 1)

	var loads atomic.Int32
	loader := func(p string) (engineAddr, error) {
		loads.Add(1)
		return loadEngineAddr(p)
	}

	received := make(chan engineAddr, 10)
	watcher := NewConfigWatcher(
		path,
		loader,
		quietLogger(),
		WithDebounce[engineAddr](50*time.Millisecond),
	)
	watcher.OnReload(func(addr engineAddr) {
		received <- addr
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	writeAddr(t, path, "localhost", 10)
	<-received

	time.Sleep(100 * time.Millisecond)
	writeAddr(t, path, "localhost", 20)
	addr := <-received

	if addr.Port != 20 {
		t.Errorf("port = %d, want 20", addr.Port)
	}
	if got := loads.Load(); got < 2 {
		t.Errorf("loader ran %d times, want at least 2", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	path := newAddrFile(t, "localhost", 1)

	var calls atomic.Int32
	var mu sync.Mutex
	var seen []engineAddr

	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](50*time.Millisecond),
	)
	for range 3 {
		watcher.OnReload(func(addr engineAddr) {
			calls.Add(1)
			mu.Lock()
			seen = append(seen, addr)
			mu.Unlock()
		})
	}

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	writeAddr(t, path, "engine.lan", 2)
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, addr := range seen {
		if addr.Host != "engine.lan" || addr.Port != 2 {
			t.Errorf("handler %d got %+v", i, addr)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := newAddrFile(t, "localhost", 1)

	var count1, count2 atomic.Int32
	var last1, last2 atomic.Int32
	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](50*time.Millisecond),
	)
	watcher.OnReload(func(addr engineAddr) {
		last1.Store(int32(addr.Port))
		count1.Add(1)
	})
	unsub := watcher.OnReload(func(addr engineAddr) {
		last2.Store(int32(addr.Port))
		count2.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	writeAddr(t, path, "localhost", 10)
	time.Sleep(200 * time.Millisecond)

	unsub()

	writeAddr(t, path, "localhost", 20)
	time.Sleep(200 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1 calls = %d, want 2", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2 calls = %d, want 1", got)
	}
	if got := last1.Load(); got != 20 {
		t.Errorf("handler1 last port = %d, want 20", got)
	}
	if got := last2.Load(); got != 10 {
		t.Errorf("handler2 last port = %d, want 10", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := newAddrFile(t, "localhost", 1)

	gotError := make(chan error, 1)
	gotConfig := make(chan engineAddr, 1)

	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](50*time.Millisecond),
		WithErrorHandler[engineAddr](func(err error) {
			gotError <- err
		}),
	)
	watcher.OnReload(func(addr engineAddr) {
		gotConfig <- addr
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("host = [[[broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-gotError:
	case <-gotConfig:
		t.Fatal("reload handler ran on a load error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := newAddrFile(t, "localhost", 0)

	var calls atomic.Int32
	var lastPort atomic.Int32

	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](200*time.Millisecond),
	)
	watcher.OnReload(func(addr engineAddr) {
		calls.Add(1)
		lastPort.Store(int32(addr.Port))
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	// Burst of writes inside one debounce window collapses to one reload.
	time.Sleep(100 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		writeAddr(t, path, "localhost", i)
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("reloads = %d, want 1", got)
	}
	if got := lastPort.Load(); got != 5 {
		t.Errorf("final port = %d, want 5", got)
	}
}

func TestConfigWatcher_ConcurrentSubscribers(t *testing.T) {
	path := newAddrFile(t, "localhost", 1)

	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](10*time.Millisecond),
	)

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := watcher.OnReload(func(_ engineAddr) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	for i := range 10 {
		writeAddr(t, path, "localhost", i)
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := newAddrFile(t, "localhost", 1)

	var calls atomic.Int32
	watcher := NewConfigWatcher(
		path,
		loadEngineAddr,
		quietLogger(),
		WithDebounce[engineAddr](50*time.Millisecond),
	)
	watcher.OnReload(func(_ engineAddr) {
		calls.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	writeAddr(t, path, "localhost", 99)
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("reloads after stop = %d, want 0", got)
	}
}
