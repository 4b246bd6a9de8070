package memory

import "github.com/gobeaver/contentkit"

func init() {
	contentkit.RegisterStorage("memory", func(cfg *contentkit.Config) (contentkit.Storage, error) {
		return New(Config{MaxSize: cfg.MemoryMaxSize}), nil
	})
}
