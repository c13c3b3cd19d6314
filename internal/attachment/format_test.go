package attachment

import "testing"

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 B"},
		{name: "small byte count", bytes: 512, want: "512.0 B"},
		{name: "one kilobyte", bytes: 1024, want: "1.0 KB"},
		{name: "one and a half kilobytes", bytes: 1536, want: "1.5 KB"},
		{name: "one megabyte", bytes: 1 << 20, want: "1.0 MB"},
		{name: "one gigabyte", bytes: 1 << 30, want: "1.0 GB"},
		{name: "above gigabyte range stays in GB", bytes: 1 << 40, want: "1024.0 GB"},
		{name: "just below a unit boundary", bytes: 1023, want: "1023.0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSize(tt.bytes); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
