package probe

import "strings"

// ExtractHostname strips one leading "http://" or "https://" prefix and
// returns everything up to the first "/". The result is not validated.
func ExtractHostname(rawURL string) string {
	host := rawURL
	switch {
	case strings.HasPrefix(host, "https://"):
		host = strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return host
}
