package attachments

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/starford/secondbrain/internal/apperr"
)

var metadataIP = net.ParseIP("169.254.169.254")

// IsRemote reports whether ref is an http(s) URL rather than a stored file name.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// CheckRemoteURL rejects URLs that are not http(s) or that point at an
// internal host.
func CheckRemoteURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %s", apperr.ErrInvalid, err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme: %s (only http/https)", apperr.ErrInvalid, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("%w: URL has no host", apperr.ErrInvalid)
	}
	return CheckHost(parsed.Hostname())
}

// CheckHost rejects loopback, unspecified, link-local and cloud metadata
// addresses. Names that do not resolve are left to the HTTP client.
func CheckHost(host string) error {
	if strings.EqualFold(host, "localhost") || strings.EqualFold(host, "metadata.google.internal") {
		return fmt.Errorf("%w: blocked host: %s", apperr.ErrInvalid, host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ips = resolved
	}

	for _, ip := range ips {
		switch {
		case ip.IsLoopback():
			return fmt.Errorf("%w: blocked host: loopback address %s", apperr.ErrInvalid, host)
		case ip.Equal(metadataIP):
			return fmt.Errorf("%w: blocked host: cloud metadata address %s", apperr.ErrInvalid, host)
		case ip.IsUnspecified(), ip.IsLinkLocalUnicast():
			return fmt.Errorf("%w: blocked host: %s", apperr.ErrInvalid, host)
		}
	}
	return nil
}
