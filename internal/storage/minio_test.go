package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"hiredup/internal/config"
	"hiredup/internal/jobs"
)

type fakeObjects map[string][]byte

func (f fakeObjects) ReadObject(_ context.Context, key string) ([]byte, error) {
	data, ok := f[key]
	if !ok {
		return nil, wrapObjectError(key, minio.ErrorResponse{Code: "NoSuchKey"})
	}
	return data, nil
}

func TestCatalogSource_DecodesByObjectExtension(t *testing.T) {
	objects := fakeObjects{
		"jobs.yaml": []byte("- id: \"1\"\n  job_title: Analyst\n"),
		"jobs.json": []byte(`[{"id":"2","job_title":"Engineer"}]`),
	}

	list, err := CatalogSource{Reader: objects, Object: "jobs.yaml"}.Load(context.Background())
	if err != nil || len(list) != 1 || list[0].Title != "Analyst" {
		t.Fatalf("yaml load = %+v, %v", list, err)
	}
	list, err = CatalogSource{Reader: objects, Object: "jobs.json"}.Load(context.Background())
	if err != nil || len(list) != 1 || list[0].Title != "Engineer" {
		t.Fatalf("json load = %+v, %v", list, err)
	}
}

func TestCatalogSource_MissingObject(t *testing.T) {
	_, err := CatalogSource{Reader: fakeObjects{}, Object: "nope.json"}.Load(context.Background())
	if !errors.Is(err, ErrObjectMissing) {
		t.Fatalf("err = %v, want ErrObjectMissing", err)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	if !IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatal("NoSuchKey not detected")
	}
	if IsNoSuchKey(errors.New("access denied")) {
		t.Fatal("unrelated error reported as missing key")
	}
	if !IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}) {
		t.Fatal("NoSuchBucket not detected")
	}
}

func TestNewCatalogSource_LocalSources(t *testing.T) {
	cfg := &config.Config{Catalog: config.CatalogConfig{Source: config.CatalogSourceEmbedded}}
	src, err := NewCatalogSource(cfg)
	if err != nil {
		t.Fatalf("embedded: %v", err)
	}
	if _, ok := src.(jobs.EmbeddedSource); !ok {
		t.Fatalf("embedded source = %T", src)
	}

	cfg.Catalog = config.CatalogConfig{Source: config.CatalogSourceFile, Path: "/srv/jobs.yaml"}
	src, err = NewCatalogSource(cfg)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if fs, ok := src.(jobs.FileSource); !ok || fs.Path != "/srv/jobs.yaml" {
		t.Fatalf("file source = %#v", src)
	}

	cfg.Catalog.Source = "ftp"
	if _, err := NewCatalogSource(cfg); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
