package jobs

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

//go:embed data/seed.json
var seedCatalog []byte

// 数据格式。
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Source supplies the initial job list for a Catalog.
type Source interface {
	Load(ctx context.Context) ([]Job, error)
}

// EmbeddedSource 读取随二进制一起发布的示例数据集。
type EmbeddedSource struct{}

func (EmbeddedSource) Load(_ context.Context) ([]Job, error) {
	return Decode(seedCatalog, FormatJSON)
}

// FileSource reads a JSON or YAML dataset from disk; the extension picks the format.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]Job, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Decode(data, FormatFromName(s.Path))
}

// FormatFromName maps a file or object name to a dataset format.
func FormatFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

var descriptionPolicy = bluemonday.StrictPolicy()

// Decode parses a dataset, rejects entries without an ID and strips markup
// from descriptions.
func Decode(data []byte, format string) ([]Job, error) {
	var list []Job
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	for i := range list {
		list[i].ID = strings.TrimSpace(list[i].ID)
		if list[i].ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		list[i].Description = sanitizeDescription(list[i].Description)
	}
	return list, nil
}

// sanitizeDescription 去除 HTML 标签；StrictPolicy 会转义实体，这里还原为纯文本。
func sanitizeDescription(s string) string {
	if s == "" {
		return s
	}
	return html.UnescapeString(descriptionPolicy.Sanitize(s))
}
