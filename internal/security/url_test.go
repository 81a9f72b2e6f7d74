package security

import (
	"strings"
	"testing"
)

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		// Valid URLs
		{name: "valid https url", url: "https://hooks.example.com/deliver", wantErr: ""},
		{name: "valid http url", url: "http://hooks.example.com/deliver", wantErr: ""},
		{name: "public IP", url: "http://93.184.216.34/deliver", wantErr: ""},
		// Invalid schemes
		{name: "file scheme", url: "file:///etc/passwd", wantErr: "URL scheme must be http or https"},
		{name: "ftp scheme", url: "ftp://files.example.com/file.txt", wantErr: "URL scheme must be http or https"},
		{name: "missing host", url: "https://", wantErr: "URL must have a host"},
		// Localhost
		{name: "localhost", url: "http://localhost/hook", wantErr: "requests to localhost are not allowed"},
		{name: "localhost with port", url: "http://localhost:4000/hook", wantErr: "requests to localhost are not allowed"},
		// Loopback IPs
		{name: "127.0.0.1", url: "http://127.0.0.1/hook", wantErr: "requests to loopback addresses are not allowed"},
		{name: "ipv6 loopback", url: "http://[::1]/hook", wantErr: "requests to loopback addresses are not allowed"},
		// Private networks
		{name: "10.x.x.x", url: "http://10.0.0.1/hook", wantErr: "requests to private network addresses are not allowed"},
		{name: "172.16.x.x", url: "http://172.16.0.1/hook", wantErr: "requests to private network addresses are not allowed"},
		{name: "192.168.x.x", url: "http://192.168.1.1/hook", wantErr: "requests to private network addresses are not allowed"},
		// Link-local
		{name: "metadata endpoint", url: "http://169.254.169.254/latest/meta-data", wantErr: "requests to link-local addresses are not allowed"},
		// Unspecified
		{name: "0.0.0.0", url: "http://0.0.0.0/hook", wantErr: "requests to unspecified addresses are not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookURL(tt.url, false)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateWebhookURL() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("ValidateWebhookURL() expected error containing %q", tt.wantErr)
				} else if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ValidateWebhookURL() error = %q, want to contain %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestValidateWebhookURLAllowLoopback(t *testing.T) {
	allowed := []string{
		"http://localhost:4000/hook",
		"http://127.0.0.1/hook",
		"http://[::1]/hook",
	}
	for _, u := range allowed {
		if err := ValidateWebhookURL(u, true); err != nil {
			t.Errorf("ValidateWebhookURL(%q, allowLoopback) unexpected error: %v", u, err)
		}
	}

	// Private and link-local stay blocked even with loopback allowed.
	if err := ValidateWebhookURL("http://192.168.1.1/hook", true); err == nil {
		t.Error("ValidateWebhookURL() allowed a private address with allowLoopback set")
	}
	if err := ValidateWebhookURL("http://169.254.169.254/x", true); err == nil {
		t.Error("ValidateWebhookURL() allowed a link-local address with allowLoopback set")
	}
}
