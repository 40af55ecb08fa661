package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource")
	}
	if res.RemotePath() != res.Path() {
		t.Fatalf("expected remote path of local resource to match its path; got %s", res.RemotePath())
	}
}

func TestLocalRelativeResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "parts"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "parts", "wheel.obj"), []byte("v 0 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	parent := NewResourceFromStream(filepath.ToSlash(filepath.Join(dir, "car.obj")), strings.NewReader(""))
	res, err := NewResource("parts/wheel.obj", parent)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v 0 0 0\n" {
		t.Fatalf("unexpected resource contents %q", data)
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() {
		t.Fatal("expected remote resource")
	}
	if res.RemotePath() != filepath.Base(thisFile) {
		t.Fatalf("expected remote path to be %s; got %s", filepath.Base(thisFile), res.RemotePath())
	}

	fetchUrl = server.URL + "/file-not-found.foo"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		if r.URL.Path == "/foo/scene.obj" {
			w.Write([]byte("OK"))
		} else if r.URL.Path == "/foo/parts/hair.obj" {
			w.Write([]byte("OK"))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := NewResource(server.URL+"/foo/scene.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("parts/hair.obj", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
	if exp := server.URL + "/foo/parts/hair.obj"; res2.Path() != exp {
		t.Fatalf("expected resolved path to be %s; got %s", exp, res2.Path())
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := NewResource("gopher://digging.go", nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceFetchError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	fetchUrl := server.URL + "/foo.obj"
	server.Close()

	_, err := NewResource(fetchUrl, nil)
	if err == nil || !strings.HasPrefix(err.Error(), "resource: could not fetch") {
		t.Fatalf("expected to get a fetch error; got %v", err)
	}
}

func TestResourceNameAndExt(t *testing.T) {
	type spec struct {
		path    string
		expName string
		expExt  string
	}
	specs := []spec{
		{"scene.obj", "scene", ".obj"},
		{"/tmp/Scene.OBJ", "Scene", ".obj"},
		{"http://example.com/assets/hair.zip?v=2", "hair", ".zip"},
		{"noext", "noext", ""},
	}

	for idx, s := range specs {
		res := NewResourceFromStream(s.path, strings.NewReader(""))
		if res.Name() != s.expName {
			t.Errorf("[spec %d] expected name %q; got %q", idx, s.expName, res.Name())
		}
		if res.Ext() != s.expExt {
			t.Errorf("[spec %d] expected ext %q; got %q", idx, s.expExt, res.Ext())
		}
	}
}
