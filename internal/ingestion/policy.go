package ingestion

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAllowedExtensions is the allow-list used when none is configured.
var DefaultAllowedExtensions = []string{".pdf", ".jpg", ".png"}

// Verdict is the validation outcome for one object.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Policy is a default-deny allow-list of extensions with an optional size
// ceiling.
type Policy struct {
	allowed      map[string]struct{}
	maxSizeBytes int64
}

// NewPolicy normalizes extensions to lower case with a leading dot.
// maxSizeBytes <= 0 disables the size check.
func NewPolicy(extensions []string, maxSizeBytes int64) (*Policy, error) {
	p := &Policy{allowed: make(map[string]struct{}, len(extensions)), maxSizeBytes: maxSizeBytes}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.allowed[ext] = struct{}{}
	}
	if len(p.allowed) == 0 {
		return nil, fmt.Errorf("allow-list %v has no usable extensions", extensions)
	}
	return p, nil
}

// Check validates an extension (as returned by Extension) and a size read
// from the object store.
func (p *Policy) Check(ext string, size int64) Verdict {
	if _, ok := p.allowed[strings.ToLower(ext)]; !ok {
		return Verdict{Reason: fmt.Sprintf("extension %q not allowed", ext)}
	}
	if p.maxSizeBytes > 0 && size > p.maxSizeBytes {
		return Verdict{Reason: fmt.Sprintf("size %d exceeds limit %d", size, p.maxSizeBytes)}
	}
	return Verdict{Allowed: true}
}

// Extension returns the lower-cased suffix from the last dot. A key with
// no dot yields the whole key, which then fails any allow-list.
func Extension(key string) string {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return strings.ToLower(key)
	}
	return strings.ToLower(key[i:])
}

// DecodeKey reverses the form encoding object stores apply to keys in
// event payloads ("+" for space, %XX escapes).
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("decode key %q: %w", raw, err)
	}
	return key, nil
}
