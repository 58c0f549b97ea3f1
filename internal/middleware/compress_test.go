package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func compressPayloadHandler(payload string) http.Handler {
	return Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(payload))
	}))
}

func TestCompress_Gzip(t *testing.T) {
	payload := strings.Repeat(`{"project":"BLD-204","status":"active"}`, 100)
	handler := compressPayloadHandler(payload)

	req := httptest.NewRequest("GET", "/api/cache/stats", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if enc := rr.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", enc)
	}

	gz, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("failed to create gzip reader: %v", err)
	}
	defer gz.Close()

	decompressed, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("failed to decompress: %v", err)
	}
	if string(decompressed) != payload {
		t.Error("decompressed body does not match original payload")
	}
}

func TestCompress_BrotliPreferred(t *testing.T) {
	payload := strings.Repeat(`{"project":"BLD-204","status":"active"}`, 100)
	handler := compressPayloadHandler(payload)

	req := httptest.NewRequest("GET", "/api/cache/stats", nil)
	req.Header.Set("Accept-Encoding", "br, gzip")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if enc := rr.Header().Get("Content-Encoding"); enc != "br" {
		t.Fatalf("Content-Encoding = %q, want br", enc)
	}

	decompressed, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatalf("failed to decompress: %v", err)
	}
	if string(decompressed) != payload {
		t.Error("decompressed body does not match original payload")
	}
}

func TestCompress_NoAcceptEncoding(t *testing.T) {
	payload := `{"ok":true}`
	handler := compressPayloadHandler(payload)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if enc := rr.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q, want none", enc)
	}
	if rr.Body.String() != payload {
		t.Errorf("body = %q, want %q", rr.Body.String(), payload)
	}
}

func TestCompress_Ratio(t *testing.T) {
	// Repetitive JSON like a cached project listing compresses well; both
	// codecs should cut it to under 30% of its original size.
	var sb strings.Builder
	sb.WriteString(`{"projects":[`)
	for i := 0; i < 1000; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"code":"BLD-204","name":"Riverside Tower","status":"active"}`)
	}
	sb.WriteString(`]}`)
	payload := sb.String()

	for _, encoding := range []string{"gzip", "br"} {
		t.Run(encoding, func(t *testing.T) {
			handler := compressPayloadHandler(payload)

			req := httptest.NewRequest("GET", "/api/projects", nil)
			req.Header.Set("Accept-Encoding", encoding)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			compressed := rr.Body.Len()
			ratio := float64(compressed) / float64(len(payload))
			if ratio > 0.30 {
				t.Errorf("compression ratio %.2f exceeds 0.30 (compressed %d of %d bytes)",
					ratio, compressed, len(payload))
			}
		})
	}
}
