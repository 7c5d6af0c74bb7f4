package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
)

//go:embed web/*
var content embed.FS

// Handler returns an http.Handler serving the dashboard assets.
//
// When dir names an existing directory, assets are read from it on every
// request. Otherwise the embedded copy is used.
//
// Extensionless paths that match no file serve index.html so deep links
// such as /monitors/xo-therm open the dashboard. Missing assets with an
// extension are 404s.
//
// Panics if the embedded assets cannot be loaded (build error).
func Handler(dir string) http.Handler {
	fsys := assets(dir)
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		name := path.Clean("/" + r.URL.Path)[1:]
		if name == "" {
			fileServer.ServeHTTP(w, r)
			return
		}

		if _, err := fs.Stat(fsys, name); err != nil {
			if path.Ext(name) != "" {
				http.NotFound(w, r)
				return
			}
			r2 := r.Clone(r.Context())
			r2.URL.Path = "/"
			fileServer.ServeHTTP(w, r2)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func assets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	web, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("panel: failed to load embedded assets: %v", err))
	}
	return web
}
