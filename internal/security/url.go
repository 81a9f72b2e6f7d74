// Package security provides shared validation for outbound requests.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateWebhookURL checks a webhook destination for SSRF problems.
// It rejects non-HTTP schemes, localhost, loopback, private-network,
// link-local, and unspecified addresses. allowLoopback permits
// localhost and loopback targets, for testing delivery against a
// local receiver.
func ValidateWebhookURL(rawURL string, allowLoopback bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL must have a host")
	}

	hostLower := strings.ToLower(host)
	if hostLower == "localhost" || hostLower == "localhost.localdomain" {
		if allowLoopback {
			return nil
		}
		return fmt.Errorf("requests to localhost are not allowed")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Not an IP address - could be a hostname that resolves to an
		// internal IP. A more complete solution would resolve the
		// hostname and check the result.
		return nil
	}

	if ip.IsLoopback() {
		if allowLoopback {
			return nil
		}
		return fmt.Errorf("requests to loopback addresses are not allowed")
	}

	// Block private network addresses
	if ip.IsPrivate() {
		return fmt.Errorf("requests to private network addresses are not allowed")
	}

	// Block link-local addresses (169.254.0.0/16, fe80::/10); this
	// covers cloud metadata endpoints like 169.254.169.254
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("requests to link-local addresses are not allowed")
	}

	// Block unspecified addresses (0.0.0.0, ::)
	if ip.IsUnspecified() {
		return fmt.Errorf("requests to unspecified addresses are not allowed")
	}

	return nil
}
