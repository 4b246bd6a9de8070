package local

import "github.com/gobeaver/contentkit"

func init() {
	contentkit.RegisterStorage("local", func(cfg *contentkit.Config) (contentkit.Storage, error) {
		return New(cfg.LocalRoot)
	})
}
