package main

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HEARTBOARD_TEST_SENSOR=http://sensor.local\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("HEARTBOARD_TEST_SENSOR") })

	if err := loadEnvFile(path, true); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv("HEARTBOARD_TEST_SENSOR"); got != "http://sensor.local" {
		t.Errorf("HEARTBOARD_TEST_SENSOR = %q", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")

	if err := loadEnvFile(missing, false); err != nil {
		t.Errorf("missing default env file should be ignored, got %v", err)
	}

	err := loadEnvFile(missing, true)
	if err == nil || !strings.Contains(err.Error(), "failed to load env file") {
		t.Errorf("missing explicit env file error = %v", err)
	}

	if err := loadEnvFile("", true); err != nil {
		t.Errorf("empty path error = %v", err)
	}
}

func TestDashboardURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"0.0.0.0:8080", "http://localhost:8080"},
		{"[::]:8080", "http://localhost:8080"},
		{"127.0.0.1:3000", "http://127.0.0.1:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			addr, err := net.ResolveTCPAddr("tcp", tt.addr)
			if err != nil {
				t.Fatal(err)
			}
			if got := dashboardURL(addr); got != tt.want {
				t.Errorf("dashboardURL(%s) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}
