// Package registry resolves model names to local checkpoint files,
// downloading them from the object store on first use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr"
	"github.com/transformerzoo/zoo-server/pkg/transformer"
)

const (
	checkpointFileName = "model.ckpt"

	// completionIndicationFile marks a fully downloaded checkpoint. A
	// partial download from a crashed run will not have it and gets
	// re-downloaded.
	completionIndicationFile = "completed.txt"
)

// ErrModelNotFound is returned when the object store has no checkpoint
// for the requested model.
var ErrModelNotFound = errors.New("model not found")

// ErrModelTooLarge is returned when the stored checkpoint exceeds the
// configured size limit.
var ErrModelTooLarge = errors.New("model exceeds size limit")

type s3Client interface {
	Download(ctx context.Context, w io.WriterAt, key string) error
	ListObjectsPages(ctx context.Context, prefix string, f func(page *s3.ListObjectsV2Output, lastPage bool) bool) error
}

// New returns a new R backed by the object store.
func New(modelDir, pathPrefix string, sizeLimitGiB float64, s3Client s3Client, logger logr.Logger) *R {
	return &R{
		modelDir:       modelDir,
		pathPrefix:     pathPrefix,
		sizeLimitBytes: int64(sizeLimitGiB * 1024 * 1024 * 1024),
		s3Client:       s3Client,
		logger:         logger.WithName("registry"),
	}
}

// NewStandalone returns an R that fabricates checkpoints with random
// weights instead of downloading them. For local development only.
func NewStandalone(modelDir string, logger logr.Logger) *R {
	return &R{
		modelDir:   modelDir,
		standalone: true,
		logger:     logger.WithName("registry"),
	}
}

// R locates model checkpoints.
type R struct {
	modelDir       string
	pathPrefix     string
	sizeLimitBytes int64

	s3Client   s3Client
	standalone bool

	logger logr.Logger
}

// CheckpointPath returns the local path of the model checkpoint without
// downloading anything.
func (r *R) CheckpointPath(modelName string) string {
	return filepath.Join(r.modelDir, modelName, checkpointFileName)
}

// Ensure makes the checkpoint for the model available locally and
// returns its path. Already-downloaded checkpoints are reused.
func (r *R) Ensure(ctx context.Context, modelName string) (string, error) {
	destPath := r.CheckpointPath(modelName)
	completionDir := filepath.Dir(destPath)
	if err := os.MkdirAll(completionDir, 0755); err != nil {
		return "", err
	}
	marker := filepath.Join(completionDir, completionIndicationFile)

	if _, err := os.Stat(marker); err == nil {
		r.logger.V(1).Info("Checkpoint already downloaded", "model", modelName)
		return destPath, nil
	}

	if r.standalone {
		if err := r.fabricate(destPath); err != nil {
			return "", err
		}
	} else {
		if err := r.download(ctx, modelName, destPath); err != nil {
			return "", err
		}
	}

	f, err := os.Create(marker)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return destPath, nil
}

func (r *R) download(ctx context.Context, modelName, destPath string) error {
	key := path.Join(r.pathPrefix, modelName, checkpointFileName)

	size, err := r.storedSize(ctx, key)
	if err != nil {
		return err
	}
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelName)
	}
	if size > r.sizeLimitBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrModelTooLarge, modelName, size, r.sizeLimitBytes)
	}

	r.logger.Info("Downloading checkpoint", "model", modelName, "key", key, "size", size)
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if err := r.s3Client.Download(ctx, f, key); err != nil {
		f.Close()
		return fmt.Errorf("download: %s", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.logger.Info("Downloaded checkpoint", "model", modelName, "path", destPath)
	return nil
}

// storedSize sums the sizes of the objects stored under the key. The
// checkpoint is a single object, but listing keeps the guard cheap and
// avoids a HEAD round trip on missing models.
func (r *R) storedSize(ctx context.Context, key string) (int64, error) {
	var total int64
	err := r.s3Client.ListObjectsPages(ctx, key, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if obj.Size != nil {
				total += *obj.Size
			}
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("list objects: %s", err)
	}
	return total, nil
}

func (r *R) fabricate(destPath string) error {
	r.logger.Info("Fabricating checkpoint with random weights", "path", destPath)
	m, err := transformer.New(transformer.DefaultConfig())
	if err != nil {
		return err
	}
	return m.Save(destPath)
}
