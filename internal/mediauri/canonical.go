// Package mediauri normalizes photo references to their canonical storage-relative form.
//
// Clients may send either the canonical URI ("/uploads/123.jpg") or an absolute URL built
// from one of the configured public base URLs ("https://cdn.example.com/uploads/123.jpg").
// All lookups, comparisons and persisted values use the canonical form.
package mediauri

import (
	"fmt"
	"net/url"
	"strings"

	"photogram/internal/model"
)

type base struct {
	scheme string
	host   string
	path   string
}

// Canonicalizer strips any known public base URL from a photo reference.
type Canonicalizer struct {
	bases []base
}

// New builds a Canonicalizer for the given public base URLs. Each base must be an
// absolute URL; an optional path prefix is part of the base.
func New(baseURLs []string) (*Canonicalizer, error) {
	c := &Canonicalizer{}
	for _, raw := range baseURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse base url %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("base url %q must be absolute", raw)
		}
		c.bases = append(c.bases, base{
			scheme: strings.ToLower(u.Scheme),
			host:   strings.ToLower(u.Host),
			path:   strings.TrimSuffix(u.Path, "/"),
		})
	}
	return c, nil
}

// MustNew is New for static configuration; it panics on an invalid base.
func MustNew(baseURLs ...string) *Canonicalizer {
	c, err := New(baseURLs)
	if err != nil {
		panic(err)
	}
	return c
}

// Canonical returns the storage-relative form of ref. Canonical input is returned
// unchanged and an upload path missing its leading slash gets one. Absolute URLs on an
// unknown host are returned as given, so they never match a stored photo.
func (c *Canonicalizer) Canonical(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "/") {
		return ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.Scheme == "" && u.Host == "" && strings.HasPrefix(ref, model.UploadFolder+"/") {
		return "/" + ref
	}
	if u.Scheme == "" || u.Host == "" {
		return ref
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	for _, b := range c.bases {
		if b.scheme != scheme || b.host != host {
			continue
		}
		if b.path != "" && u.Path != b.path && !strings.HasPrefix(u.Path, b.path+"/") {
			continue
		}
		rest := strings.TrimPrefix(u.Path, b.path)
		if rest == "" {
			rest = "/"
		}
		return rest
	}
	return ref
}

// Absolute joins a canonical URI onto the first configured base, for clients that
// need a fetchable URL. With no bases configured the URI is returned unchanged.
func (c *Canonicalizer) Absolute(uri string) string {
	if len(c.bases) == 0 || !strings.HasPrefix(uri, "/") {
		return uri
	}
	b := c.bases[0]
	return b.scheme + "://" + b.host + b.path + uri
}
