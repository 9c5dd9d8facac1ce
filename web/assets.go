package web

import (
	"crypto/sha512"
	"embed"
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"
)

//go:embed static
var staticFiles embed.FS

// Integrity returns the subresource integrity value ("sha384-...") of data.
func Integrity(data []byte) string {
	sum := sha512.Sum384(data)
	return "sha384-" + base64.StdEncoding.EncodeToString(sum[:])
}

// assetIntegrity maps each embedded asset's URL path to its SRI value.
func assetIntegrity() (map[string]string, error) {
	out := make(map[string]string)
	err := fs.WalkDir(staticFiles, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(staticFiles, p)
		if err != nil {
			return err
		}
		out["/"+p] = Integrity(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hashing embedded assets: %w", err)
	}
	return out, nil
}

// ScriptHashes returns the SRI values of the embedded scripts in path order,
// suitable for the script-src directive.
func ScriptHashes() ([]string, error) {
	assets, err := assetIntegrity()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(assets))
	for p := range assets {
		if path.Ext(p) == ".js" {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	hashes := make([]string, len(paths))
	for i, p := range paths {
		hashes[i] = assets[p]
	}
	return hashes, nil
}

// staticHandler serves embedded files under /static/. Directories are not
// listed.
func staticHandler() (http.Handler, error) {
	fsys, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("loading embedded static assets: %w", err)
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(fsys)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/static/")
		if info, err := fs.Stat(fsys, name); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}), nil
}
