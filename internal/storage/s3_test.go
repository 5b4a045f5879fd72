package storage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"", ""},
		{"http://localhost:9000/fairytales", "http://localhost:9000/fairytales/tales/1/a.wav"},
		{"http://localhost:9000/fairytales/", "http://localhost:9000/fairytales/tales/1/a.wav"},
	}
	for _, tt := range tests {
		c, err := NewClient(context.Background(), Options{Region: "us-east-1", Bucket: "fairytales", AccessKey: "k", SecretKey: "s", PublicURL: tt.base})
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		if got := c.PublicURL("tales/1/a.wav"); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestGeneratePresignedURL(t *testing.T) {
	c, err := NewClient(context.Background(), Options{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Bucket:    "fairytales",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	u, err := c.GeneratePresignedURL("tales/abc/the_fox.wav", 15*time.Minute)
	if err != nil {
		t.Fatalf("GeneratePresignedURL: %v", err)
	}
	if !strings.HasPrefix(u, "http://localhost:9000/fairytales/tales/abc/the_fox.wav?") {
		t.Errorf("url = %q", u)
	}
	if !strings.Contains(u, "X-Amz-Expires=900") {
		t.Errorf("url missing expiry: %q", u)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"minio:9000", false, "http://minio:9000"},
		{"minio:9000", true, "https://minio:9000"},
		{"https://r2.example.com", false, "https://r2.example.com"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.endpoint, tt.useSSL); got != tt.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.endpoint, tt.useSSL, got, tt.want)
		}
	}
}
