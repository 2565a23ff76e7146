package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsupportedScheme is returned when a resource location uses a scheme
// other than a local path or http/https.
var ErrUnsupportedScheme = errors.New("resource: unsupported scheme")

// A Resource is a readable scene asset stream backed by a local file or a
// remote http/https URL. Callers must Close it.
type Resource struct {
	io.ReadCloser
	location *url.URL
}

// Path returns the location of this resource.
func (r *Resource) Path() string {
	return r.location.String()
}

// Name returns the last path element of the resource location.
func (r *Resource) Name() string {
	return path.Base(r.location.Path)
}

// Ext returns the lower-cased file extension (including the dot).
func (r *Resource) Ext() string {
	return strings.ToLower(path.Ext(r.location.Path))
}

// IsRemote returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.location.Scheme != ""
}

// Open a resource stream. Locations without a scheme that are not absolute
// are resolved against the directory of relTo when relTo is not nil; this
// allows .obj files to reference their .mtl libraries both on disk and
// over http.
func Open(location string, relTo *Resource) (*Resource, error) {
	loc, err := url.Parse(strings.ReplaceAll(location, `\`, `/`))
	if err != nil {
		return nil, fmt.Errorf("resource: invalid location %q: %w", location, err)
	}

	if loc.Scheme == "" && relTo != nil && !filepath.IsAbs(loc.Path) {
		loc, err = resolveRelative(loc.Path, relTo)
		if err != nil {
			return nil, err
		}
	}

	var stream io.ReadCloser
	switch loc.Scheme {
	case "":
		if stream, err = os.Open(filepath.Clean(loc.Path)); err != nil {
			return nil, fmt.Errorf("resource: %w", err)
		}
	case "http", "https":
		resp, err := http.Get(loc.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %w", loc, err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", loc, resp.StatusCode)
		}
		stream = resp.Body
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedScheme, loc.Scheme)
	}

	return &Resource{ReadCloser: stream, location: loc}, nil
}

// FromStream wraps an in-memory stream as a resource with the given name.
func FromStream(name string, source io.Reader) *Resource {
	loc, err := url.Parse(name)
	if err != nil {
		loc = &url.URL{Path: name}
	}
	return &Resource{ReadCloser: io.NopCloser(source), location: loc}
}

func resolveRelative(relPath string, relTo *Resource) (*url.URL, error) {
	if relTo.IsRemote() {
		base := *relTo.location
		base.Path = path.Join(path.Dir(base.Path), relPath)
		return &base, nil
	}

	parentDir, err := filepath.Abs(filepath.Dir(relTo.location.Path))
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s: %w", relTo.Path(), err)
	}
	return &url.URL{Path: filepath.ToSlash(filepath.Join(parentDir, relPath))}, nil
}
