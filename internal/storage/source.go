package storage

import (
	"fmt"

	"hiredup/internal/config"
	"hiredup/internal/jobs"
)

// NewCatalogSource 根据 catalog.source 选择目录数据源。
func NewCatalogSource(cfg *config.Config) (jobs.Source, error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourceEmbedded:
		return jobs.EmbeddedSource{}, nil
	case config.CatalogSourceFile:
		return jobs.FileSource{Path: cfg.Catalog.Path}, nil
	case config.CatalogSourceMinIO:
		client, err := NewClient(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("init storage client: %w", err)
		}
		return CatalogSource{Reader: client, Object: cfg.Catalog.Object}, nil
	}
	return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
}
