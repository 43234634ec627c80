package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":                  "8080",
				"ENV":                   "production",
				"DATABASE_URL":          "postgres://localhost/test",
				"EXTRACTOR_TYPE":        "synthetic",
				"MATCH_HIGH_THRESHOLD":  "0.9",
				"MATCH_MIN_GAP":         "0.05",
				"NEGATIVE_CACHE_POLICY": "permanent",
				"EXTRACTION_TIMEOUT":    "3s",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.ExtractorType == "synthetic" &&
					c.HighThreshold == 0.9 &&
					c.MinGap == 0.05 &&
					c.NegativeCachePolicy == "permanent" &&
					c.ExtractionTimeout == 3*time.Second
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.ExtractorType == "deepface" &&
					c.DeepFaceModel == "ArcFace" &&
					c.HighThreshold == 0.85 &&
					c.MediumThreshold == 0.70 &&
					c.MinGap == 0.08 &&
					c.CandidateLimit == 3 &&
					c.NegativeCachePolicy == "ttl" &&
					c.NegativeCacheTTL == 10*time.Minute &&
					c.DurableCache &&
					c.FanOutLimit == 8
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "fails when medium exceeds high",
			envVars: map[string]string{
				"DATABASE_URL":           "postgres://localhost/test",
				"MATCH_HIGH_THRESHOLD":   "0.6",
				"MATCH_MEDIUM_THRESHOLD": "0.7",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown extractor",
			envVars: map[string]string{
				"DATABASE_URL":   "postgres://localhost/test",
				"EXTRACTOR_TYPE": "random",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown negative cache policy",
			envVars: map[string]string{
				"DATABASE_URL":          "postgres://localhost/test",
				"NEGATIVE_CACHE_POLICY": "forever",
			},
			wantErr: true,
		},
		{
			name: "fails when webhook has no secret",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"WEBHOOK_URL":  "https://example.com/hook",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_Thresholds(t *testing.T) {
	c := &Config{HighThreshold: 0.9, MediumThreshold: 0.6, MinGap: 0.05}
	th := c.Thresholds()

	if th.High != 0.9 || th.Medium != 0.6 || th.MinGap != 0.05 {
		t.Errorf("Thresholds() = %+v", th)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
