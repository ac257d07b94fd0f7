// Package trust validates and normalizes the remote caches (substituters) a
// declaration trusts, together with the public keys that sign their artifacts.
package trust

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
)

// Entry is a trust declaration as written in a declaration file.
type Entry struct {
	URL       string `yaml:"url" json:"url"`
	PublicKey string `yaml:"public_key" json:"public_key"`
	// Trusted defaults to true when omitted.
	Trusted *bool `yaml:"trusted,omitempty" json:"trusted,omitempty"`
}

// Descriptor is a validated, normalized trust entry.
type Descriptor struct {
	Cache     string `json:"cache"`
	URL       string `json:"url"`
	PublicKey string `json:"public_key"`
	Trusted   bool   `json:"trusted"`
}

// Snapshot is the immutable, cache-id ordered view of a Registry.
type Snapshot []Descriptor

// Registry holds validated trust descriptors.
type Registry struct {
	descriptors Snapshot
}

var allowedSchemes = map[string]bool{
	"https": true,
	"http":  true,
	"s3":    true,
	"file":  true,
}

// Register validates every entry. An entry missing its URL or its public key is
// rejected: a substituter that cannot be verified is a configuration error.
// Entries are processed in cache-id order so the first reported error is stable.
func Register(entries map[string]Entry) (*Registry, error) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	r := &Registry{descriptors: make(Snapshot, 0, len(ids))}
	for _, id := range ids {
		d, err := normalize(id, entries[id])
		if err != nil {
			return nil, err
		}
		r.descriptors = append(r.descriptors, d)
	}
	return r, nil
}

func normalize(id string, e Entry) (Descriptor, error) {
	rawURL := strings.TrimSpace(e.URL)
	key := strings.TrimSpace(e.PublicKey)
	switch {
	case rawURL == "" && key == "":
		return Descriptor{}, perrors.IncompleteTrustEntry(id, "url,public_key")
	case rawURL == "":
		return Descriptor{}, perrors.IncompleteTrustEntry(id, "url")
	case key == "":
		return Descriptor{}, perrors.IncompleteTrustEntry(id, "public_key")
	}

	u, err := NormalizeURL(rawURL)
	if err != nil {
		return Descriptor{}, perrors.InvalidTrustEntry(id, "url", err.Error())
	}
	if err := ValidateKey(key); err != nil {
		return Descriptor{}, perrors.InvalidTrustEntry(id, "public_key", err.Error())
	}

	trusted := true
	if e.Trusted != nil {
		trusted = *e.Trusted
	}
	return Descriptor{Cache: id, URL: u, PublicKey: key, Trusted: trusted}, nil
}

// NormalizeURL checks the scheme, converts the host to its ASCII (IDNA) form and
// trims trailing slashes from the path. IP literals bypass IDNA.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if !allowedSchemes[scheme] {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Scheme = scheme

	if host := u.Hostname(); host != "" {
		ascii := host
		if ip := net.ParseIP(host); ip != nil {
			ascii = ip.String()
		} else if ascii, err = idna.Lookup.ToASCII(host); err != nil {
			return "", fmt.Errorf("invalid host %q: %w", host, err)
		}
		switch port := u.Port(); {
		case port != "":
			u.Host = net.JoinHostPort(ascii, port)
		case strings.Contains(ascii, ":"):
			u.Host = "[" + ascii + "]"
		default:
			u.Host = ascii
		}
	} else if scheme != "file" {
		return "", fmt.Errorf("missing host")
	}

	// A hostless file URL keeps its root path.
	if trimmed := strings.TrimRight(u.Path, "/"); trimmed != "" || u.Host != "" {
		u.Path = trimmed
	} else if u.Path != "" {
		u.Path = "/"
	}
	u.RawPath = ""
	u.Fragment = ""
	return u.String(), nil
}

// ValidateKey checks a "<name>:<base64 ed25519 public key>" signing key.
func ValidateKey(key string) error {
	name, encoded, ok := strings.Cut(key, ":")
	if !ok || name == "" {
		return fmt.Errorf("key must have the form <name>:<base64>")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("key is not valid base64: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("key has %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return nil
}

// Snapshot returns a copy of the descriptors ordered by cache id.
func (r *Registry) Snapshot() Snapshot {
	out := make(Snapshot, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Substituters lists the URLs of trusted caches.
func (s Snapshot) Substituters() []string {
	var out []string
	for _, d := range s {
		if d.Trusted {
			out = append(out, d.URL)
		}
	}
	return out
}

// PublicKeys lists the signing keys of trusted caches.
func (s Snapshot) PublicKeys() []string {
	var out []string
	for _, d := range s {
		if d.Trusted {
			out = append(out, d.PublicKey)
		}
	}
	return out
}

// NixConfig renders the trusted caches as nix.conf settings.
func (s Snapshot) NixConfig() string {
	subs := s.Substituters()
	if len(subs) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "extra-substituters = %s\n", strings.Join(subs, " "))
	fmt.Fprintf(&b, "extra-trusted-public-keys = %s\n", strings.Join(s.PublicKeys(), " "))
	return b.String()
}
