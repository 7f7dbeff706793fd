package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/imi/internal/extract"
	"github.com/hyperjump/imi/internal/fileid"
	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/pkg/utils"
	"go.uber.org/zap"
)

// DirectoryLoader makes one item per matching file under Root. Hidden files and
// directories are skipped. Files that fail extraction are logged and left out.
type DirectoryLoader struct {
	Root       string
	Extensions []string
	Extractor  *extract.Extractor
	Logger     *zap.Logger
}

// Load walks Root.
func (l DirectoryLoader) Load(ctx context.Context) ([]models.Item, error) {
	info, err := os.Stat(l.Root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, l.Root)
	}
	ex := l.Extractor
	if ex == nil {
		ex = extract.NewExtractor(0)
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var items []models.Item
	err = filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != l.Root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !utils.HasExtension(path, l.Extensions) {
			return nil
		}

		text, err := ex.Extract(path)
		if err != nil {
			logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}
		items = append(items, fileItem(l.Root, path, text, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func fileItem(root, path, text string, d fs.DirEntry) models.Item {
	name := d.Name()
	ext := strings.ToLower(filepath.Ext(name))
	meta := map[string]string{"ext": ext}
	if info, err := d.Info(); err == nil {
		meta["size"] = strconv.FormatInt(info.Size(), 10)
		meta["modified"] = info.ModTime().UTC().Format(time.RFC3339)
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		if dir := filepath.Dir(rel); dir != "." {
			meta["folder"] = filepath.ToSlash(dir)
		}
	}
	return models.Item{
		ID:          fileid.ForPath(root, path),
		Title:       strings.TrimSuffix(name, filepath.Ext(name)),
		Description: text,
		Path:        path,
		Metadata:    meta,
	}
}
