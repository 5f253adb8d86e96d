package covers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/domain"
)

func newCoverServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cover.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n"))
	})
	mux.HandleFunc("/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("\xff\xd8\xff"))
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPValidator_Validate(t *testing.T) {
	server := newCoverServer(t)
	validator := NewHTTPValidator(5*time.Second, zerolog.Nop())

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "png image", url: server.URL + "/cover.png", wantErr: false},
		{name: "jpeg image", url: server.URL + "/cover.jpg", wantErr: false},
		{name: "html page", url: server.URL + "/page.html", wantErr: true},
		{name: "not found", url: server.URL + "/missing.png", wantErr: true},
		{name: "empty URL", url: "", wantErr: true},
		{name: "unreachable host", url: "http://127.0.0.1:1/cover.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(context.Background(), tt.url)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidImageURL) {
					t.Fatalf("expected ErrInvalidImageURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid image, got %v", err)
			}
		})
	}
}

func TestHTTPValidator_Validate_ContextCancelled(t *testing.T) {
	server := newCoverServer(t)
	validator := NewHTTPValidator(5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := validator.Validate(ctx, server.URL+"/cover.png"); !errors.Is(err, domain.ErrInvalidImageURL) {
		t.Fatalf("expected ErrInvalidImageURL on cancelled context, got %v", err)
	}
}
