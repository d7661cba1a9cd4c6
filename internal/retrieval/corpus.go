package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"seekbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// corpusFile is the on-disk shape of a document corpus file: either a
// single document or a list under "documents".
type corpusFile struct {
	Documents []corpusDoc `yaml:"documents"`
}

type corpusDoc struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// LoadCorpus reads YAML corpus files from the given paths (files or
// directories) and indexes every document. It returns the number of
// documents indexed. Files that fail to parse are skipped with a warning.
func LoadCorpus(ctx context.Context, idx *SQLiteIndex, paths []string, logger *slog.Logger) (int, error) {
	total := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return total, fmt.Errorf("corpus path %s: %w", path, err)
		}

		var files []string
		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return total, fmt.Errorf("read corpus dir: %w", err)
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				name := e.Name()
				if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
					files = append(files, filepath.Join(path, name))
				}
			}
		} else {
			files = []string{path}
		}

		for _, file := range files {
			n, err := loadCorpusFile(ctx, idx, file, logger)
			if err != nil {
				logger.Warn("cannot load corpus file", "path", file, "err", err)
				continue
			}
			total += n
		}
	}
	return total, nil
}

func loadCorpusFile(ctx context.Context, idx *SQLiteIndex, path string, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var cf corpusFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return 0, fmt.Errorf("parse corpus file: %w", err)
	}

	n := 0
	for i, cd := range cf.Documents {
		if strings.TrimSpace(cd.Text) == "" {
			continue
		}
		id := cd.ID
		if id == "" {
			id = fmt.Sprintf("%s:%d", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), i)
		}
		title := cd.Title
		if title == "" {
			title = id
		}
		if err := idx.Add(ctx, domain.Document{ID: id, Title: title, Text: cd.Text}); err != nil {
			return n, err
		}
		n++
	}

	logger.Info("indexed corpus file", "path", path, "documents", n)
	return n, nil
}
