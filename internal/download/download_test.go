package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownloader_ToFile(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{name: "successful_download", statusCode: http.StatusOK, body: "fake godot archive"},
		{name: "404_not_found", statusCode: http.StatusNotFound, body: "not found", wantErr: ErrNotFound},
		{name: "500_server_error", statusCode: http.StatusInternalServerError, body: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				if r.Header.Get("User-Agent") != "govem-test" {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			destPath := filepath.Join(t.TempDir(), "nested", "godot.zip")
			err := New(server.Client(), "govem-test").ToFile(context.Background(), server.URL, destPath, nil)

			if tt.statusCode != http.StatusOK {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if requests != 1 {
					t.Errorf("requests = %d, want 1 (no retries)", requests)
				}
				if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
					t.Error("destination should not exist after failed download")
				}
				if _, statErr := os.Stat(destPath + ".tmp"); !os.IsNotExist(statErr) {
					t.Error("temp file should be removed after failed download")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			content, err := os.ReadFile(destPath)
			if err != nil {
				t.Fatalf("read downloaded file: %v", err)
			}
			if string(content) != tt.body {
				t.Errorf("content = %q, want %q", content, tt.body)
			}
		})
	}
}

func TestDownloader_ToFile_Progress(t *testing.T) {
	body := strings.Repeat("x", 100_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.Write([]byte(body))
	}))
	defer server.Close()

	var last, total int64
	calls := 0
	progress := func(written, t int64) {
		calls++
		last, total = written, t
	}

	destPath := filepath.Join(t.TempDir(), "godot.zip")
	if err := New(server.Client(), "").ToFile(context.Background(), server.URL, destPath, progress); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}

	if calls == 0 {
		t.Fatal("progress callback never called")
	}
	if last != 100_000 || total != 100_000 {
		t.Errorf("final progress = %d/%d, want 100000/100000", last, total)
	}
}

func TestDownloader_ToFile_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	destPath := filepath.Join(t.TempDir(), "godot.zip")
	if err := New(server.Client(), "").ToFile(ctx, server.URL, destPath, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("ToFile() error = %v, want context.Canceled", err)
	}
}

func TestDownloader_Bytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/SHA512-SUMS.txt":
			w.Write([]byte("abc  Godot.zip\n"))
		case "/huge":
			w.Write([]byte(strings.Repeat("x", MaxSideFileSize+10)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	d := New(server.Client(), "")
	ctx := context.Background()

	data, err := d.Bytes(ctx, server.URL+"/SHA512-SUMS.txt")
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if string(data) != "abc  Godot.zip\n" {
		t.Errorf("Bytes() = %q", data)
	}

	if _, err := d.Bytes(ctx, server.URL+"/missing.sig"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Bytes(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := d.Bytes(ctx, server.URL+"/huge"); err == nil {
		t.Error("Bytes(huge) should fail")
	}
}
