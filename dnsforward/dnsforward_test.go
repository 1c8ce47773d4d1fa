package dnsforward

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderDualStack(t *testing.T) {
	f := New("/tmp/unused", "dnsmasq", "tmfifo_net0", []string{"192.168.100.1", "fd00:bf3::1"})
	content := f.Render()

	if !strings.Contains(content, "interface=tmfifo_net0\n") {
		t.Fatalf("missing interface binding:\n%s", content)
	}
	if strings.Count(content, "listen-address=") != 2 {
		t.Fatalf("expected two listen addresses:\n%s", content)
	}
	if !strings.Contains(content, "listen-address=192.168.100.1\n") ||
		!strings.Contains(content, "listen-address=fd00:bf3::1\n") {
		t.Fatalf("listen addresses do not match config:\n%s", content)
	}
	if !strings.Contains(content, "server=127.0.0.1\n") {
		t.Fatalf("queries must be forwarded to the loopback resolver:\n%s", content)
	}
}

func TestRenderSingleFamily(t *testing.T) {
	f := New("/tmp/unused", "dnsmasq", "tmfifo_net0", []string{"fd00:bf3::1"})
	content := f.Render()

	if strings.Count(content, "listen-address=") != 1 {
		t.Fatalf("expected one listen address:\n%s", content)
	}
	if strings.Contains(content, "192.168.100.1") {
		t.Fatalf("IPv6-only config must not carry IPv4 addresses:\n%s", content)
	}
}

func TestRenderIsStable(t *testing.T) {
	f := New("/tmp/unused", "dnsmasq", "tmfifo_net0", []string{"192.168.100.1"})
	if f.Render() != f.Render() {
		t.Fatal("Render must be deterministic")
	}
}

func TestEnsureRestartsStoppedUnit(t *testing.T) {
	// Converged drop-in, but the unit is not running (the name does
	// not exist on any system). Ensure must still attempt a restart
	// instead of reporting the converged file as done.
	path := filepath.Join(t.TempDir(), "bfbridge.conf")
	f := New(path, "bfbridge-test-missing-unit.service", "tmfifo_net0", []string{"192.168.100.1"})

	if err := os.WriteFile(path, []byte(f.Render()), 0644); err != nil {
		t.Fatalf("pre-write config: %v", err)
	}

	changed, err := f.Ensure()
	if err == nil && !changed {
		t.Fatal("Ensure must not report a stopped forwarder as converged")
	}
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bfbridge.conf")

	if err := writeAtomic(path, "first\n"); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	if err := writeAtomic(path, "second\n"); err != nil {
		t.Fatalf("writeAtomic overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("expected overwritten content, got %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}
