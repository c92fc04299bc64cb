package objstore

import (
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestKey(t *testing.T) {
	tests := []struct {
		base, partition, file string
		want                  string
	}{
		{"news_data", "20240703", "summarized_posts_history.json", "news_data/20240703/summarized_posts_history.json"},
		{"/news_data/", "20240703", "alice_posts.json", "news_data/20240703/alice_posts.json"},
		{"", "20240703", "a.json", "20240703/a.json"},
	}
	for _, tt := range tests {
		if got := Key(tt.base, tt.partition, tt.file); got != tt.want {
			t.Errorf("Key(%q, %q, %q) = %q, want %q", tt.base, tt.partition, tt.file, got, tt.want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &s3types.NoSuchKey{}, true},
		{"wrapped not found", fmt.Errorf("get: %w", &s3types.NotFound{}), true},
		{"generic api not found", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Fatalf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
