package installer

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		latest   string
		expected int
		wantErr  bool
	}{
		{"older patch", "0.7.0", "0.7.1", -1, false},
		{"older minor", "0.7.0", "0.8.0", -1, false},
		{"older major", "0.7.0", "1.0.0", -1, false},
		{"equal", "0.7.2", "0.7.2", 0, false},
		{"newer", "0.8.0", "0.7.0", 1, false},
		{"v prefix both", "v0.7.0", "v0.7.1", -1, false},
		{"prerelease less than release", "1.0.0-beta", "1.0.0", -1, false},
		{"invalid current", "notaversion", "1.0.0", 0, true},
		{"dev version", "dev", "1.0.0", 0, true},
		{"network tag", "0.7.0", "gemini-3h-2024-jun-18", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CompareVersions(tt.current, tt.latest)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.current, tt.latest, result, tt.expected)
			}
		})
	}
}

func TestIsUpdateAvailable(t *testing.T) {
	tests := []struct {
		current, latest string
		expected        bool
	}{
		{"0.7.0", "0.8.0", true},
		{"0.8.0", "v0.8.0", false},
		{"0.9.0", "0.8.0", false},
	}
	for _, tt := range tests {
		got, err := IsUpdateAvailable(tt.current, tt.latest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.expected {
			t.Errorf("IsUpdateAvailable(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.expected)
		}
	}
}
