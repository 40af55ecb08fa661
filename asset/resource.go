package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Client used for fetching remote resources.
var HTTPClient = &http.Client{Timeout: 30 * time.Second}

// The Resource type wraps a streamable scene file that is either stored
// locally or served over http/https.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Return the remote path to this resource. If this is a remote resource then
// this method returns the base path (without leading /) of the remote URL.
// Otherwise, this method returns the same value as Path().
func (r *Resource) RemotePath() string {
	if r.IsRemote() {
		return path.Base(r.url.Path)
	}
	return r.Path()
}

// Get the lower-cased extension of the resource path including the dot.
func (r *Resource) Ext() string {
	return strings.ToLower(path.Ext(r.url.Path))
}

// Get the base name of the resource path without its extension. It is used
// for naming geometry that does not define a name of its own.
func (r *Resource) Name() string {
	base := path.Base(r.url.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Create a new Resource data stream. If relTo is specified and pathToResource
// does not define a scheme, then the path to the new Resource will be generated
// by concatenating the base path of relTo and pathToResource.
//
// Remote resources are fetched with HTTPClient. The caller must close the
// returned Resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	url, err := resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch url.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(url.Path))
		if err != nil {
			return nil, err
		}
	case "http", "https":
		resp, err := HTTPClient.Get(url.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %s", url.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", url.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("resource: unsupported scheme '%s'", url.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        url,
	}, nil
}

// Parse pathToResource and, if it is relative, anchor it to the directory
// containing relTo.
func resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	// Replace backslashes with forward slashes and try parsing as a URL
	target, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, err
	}
	if target.Scheme != "" || relTo == nil || path.IsAbs(target.Path) {
		return target, nil
	}

	base := *relTo.url
	if base.Scheme == "" {
		abs, err := filepath.Abs(filepath.FromSlash(base.Path))
		if err != nil {
			return nil, fmt.Errorf("resource: could not detect abs path for %s; %s", base.String(), err.Error())
		}
		base.Path = filepath.ToSlash(abs)
	}
	base.Path = path.Join(path.Dir(base.Path), target.Path)
	base.RawQuery = target.RawQuery
	return &base, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	u, err := url.Parse(name)
	if err != nil {
		u = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        u,
	}
}
