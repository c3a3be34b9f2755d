// Command pagewarm warms a site's page cache from the command line and moves
// snapshots in and out of it. It speaks the same store layout as the embedded
// cache, so a CI job can pre-seed the store a deployed host later reads.
//
// Configuration is environment-driven:
//
//	PAGEWARM_BASE_URL     site root, e.g. https://docs.example.org (required)
//	PAGEWARM_SITE_VERSION compiled-in cache version of the site (required)
//	PAGEWARM_PAGES        comma-separated page keys (default index.html,install.html,docs.html)
//	PAGEWARM_DB           sqlite store path (default pagecache.db)
//	PAGEWARM_REDIS_ADDR   use redis instead of sqlite when set
//	PAGEWARM_CONCURRENCY  parallel fetches (default 4)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/LoosePrince/pagecache"
	"github.com/LoosePrince/pagecache/kv"
	kvredis "github.com/LoosePrince/pagecache/kv/redis"
	kvsqlite "github.com/LoosePrince/pagecache/kv/sqlite"
	logadapter "github.com/LoosePrince/pagecache/log/logrus"
)

type config struct {
	BaseURL     string   `env:"PAGEWARM_BASE_URL,required"`
	SiteVersion string   `env:"PAGEWARM_SITE_VERSION,required"`
	Pages       []string `env:"PAGEWARM_PAGES" envSeparator:"," envDefault:"index.html,install.html,docs.html"`
	DBPath      string   `env:"PAGEWARM_DB" envDefault:"pagecache.db"`
	RedisAddr   string   `env:"PAGEWARM_REDIS_ADDR"`
	Concurrency int      `env:"PAGEWARM_CONCURRENCY" envDefault:"4"`
}

func main() {
	exportPath := flag.String("export", "", "write a snapshot of the cache to this file after warming")
	importPath := flag.String("import", "", "seed the cache from this snapshot before warming")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// errors unwind through run so the store is closed before exiting
	if err := run(log, *importPath, *exportPath); err != nil {
		log.WithError(err).Fatal("pagewarm")
	}
}

func run(log *logrus.Logger, importPath, exportPath string) error {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	c, err := pagecache.New(pagecache.Options{
		Store:        store,
		Version:      cfg.SiteVersion,
		Pages:        cfg.Pages,
		BaseURL:      cfg.BaseURL,
		Logger:       logadapter.LogrusLogger{E: logrus.NewEntry(log)},
		WarmParallel: cfg.Concurrency,
	})
	if err != nil {
		store.Close(ctx)
		return fmt.Errorf("init cache: %w", err)
	}
	defer c.Close(ctx)

	if importPath != "" {
		f, err := os.Open(importPath)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		n, err := c.Import(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
		log.WithField("entries", n).Info("snapshot imported")
	}

	if err := c.Warm(ctx); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}
	log.WithField("pages", len(cfg.Pages)).Info("cache warm")

	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		if err := c.Export(ctx, f); err != nil {
			f.Close()
			return fmt.Errorf("export snapshot: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close snapshot: %w", err)
		}
		log.WithField("path", exportPath).Info("snapshot written")
	}
	return nil
}

func openStore(cfg config) (kv.Store, error) {
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		return kvredis.New(kvredis.Config{Client: client, CloseClient: true})
	}
	return kvsqlite.Open(kvsqlite.Config{Path: cfg.DBPath})
}
