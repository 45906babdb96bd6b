package backend

import "keywatch/internal/portable"

// Names lists the backends available on this platform.
func Names() []string {
	return []string{"portable"}
}

func defaultName(DisplayServer) string {
	return "portable"
}

func build(name string, opts Options) (*Backend, error) {
	return &Backend{Name: name, Adapter: portable.New(opts.Log), Resolver: portable.Resolver{}}, nil
}
