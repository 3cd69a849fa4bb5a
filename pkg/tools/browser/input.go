package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// decodeInput fills v from a tool input. A JSON object is unmarshalled into v;
// any other non-empty text is stored in *plain, the tool's primary argument.
func decodeInput(input string, v any, plain *string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if strings.HasPrefix(input, "{") {
		if err := json.Unmarshal([]byte(input), v); err != nil {
			return fmt.Errorf("invalid input: %w", err)
		}
		return nil
	}
	if plain == nil {
		return fmt.Errorf("invalid input: expected a JSON object")
	}
	*plain = input
	return nil
}

// parseTabID accepts "2", "[2]", "tab-2" or "#2".
func parseTabID(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"), "#")
	s = strings.TrimPrefix(strings.ToLower(s), "tab-")
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tab id %q", s)
	}
	return id, nil
}

// normalizeURL adds https:// to bare hosts and rejects unusable URLs.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	if raw == "about:blank" {
		return raw, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "file":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" && u.Scheme != "file" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}
	return u.String(), nil
}
