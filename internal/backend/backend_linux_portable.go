//go:build linux && portable

package backend

import "keywatch/internal/portable"

func init() {
	portableBackend = func(opts Options) *Backend {
		return &Backend{Name: "portable", Adapter: portable.New(opts.Log), Resolver: portable.Resolver{}}
	}
}
