package records

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/medvault/medvault/internal/platform/api"
)

// LoadAttachments reads each local file into a self-contained data URL so a
// new treatment's attachments need no separate upload step. Files are read
// concurrently but the result keeps the order paths were given in; if any
// single read fails the whole batch fails and nothing is returned.
func LoadAttachments(ctx context.Context, paths []string) ([]api.MedicalFile, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	files := make([]api.MedicalFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			f, err := loadAttachment(path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func loadAttachment(path string) (api.MedicalFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.MedicalFile{}, fmt.Errorf("read attachment %s: %w", path, err)
	}

	name := filepath.Base(path)
	return api.MedicalFile{
		ID:         uuid.New().String(),
		Name:       name,
		Type:       fileTypeLabel(name),
		URL:        dataURL(name, data),
		UploadedAt: time.Now().UTC(),
	}, nil
}

// fileTypeLabel derives the display label from the file name: the extension,
// uppercased, without the dot. Extensionless files are labelled FILE.
func fileTypeLabel(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "FILE"
	}
	return strings.ToUpper(ext)
}

func dataURL(name string, data []byte) string {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
