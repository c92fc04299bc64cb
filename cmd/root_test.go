package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"tweet-digest/internal/config"
)

func TestHeadlessDefault(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want bool
	}{
		{"omitted", "browser:\n  wait_timeout: 5s\n", true},
		{"disabled", "browser:\n  headless: false\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			applyDefaults(v)
			v.SetConfigType("yaml")
			if err := v.ReadConfig(strings.NewReader(tt.yaml)); err != nil {
				t.Fatalf("ReadConfig: %v", err)
			}
			var c config.Config
			if err := v.Unmarshal(&c); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if c.Browser.Headless != tt.want {
				t.Fatalf("headless = %v, want %v", c.Browser.Headless, tt.want)
			}
		})
	}
}
