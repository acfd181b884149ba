package cmd

import "testing"

func TestValidateAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"port only", ":8080", false},
		{"localhost", "localhost:8080", false},
		{"ipv4", "127.0.0.1:3400", false},
		{"ipv6", "[::1]:8080", false},
		{"auto-assign port", ":0", false},
		{"missing port", "localhost", true},
		{"empty port", "localhost:", true},
		{"non-numeric port", "localhost:http", true},
		{"port too large", "localhost:70000", true},
		{"negative port", "localhost:-1", true},
		{"whitespace host", "bad host:8080", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
