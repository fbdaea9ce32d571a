package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/samcharles93/fpbench/internal/logger"
)

// DefaultMirror serves the gzipped Fashion-MNIST IDX files.
const DefaultMirror = "https://storage.googleapis.com/tensorflow/tf-keras-datasets/"

const (
	trainImages = "train-images-idx3-ubyte"
	trainLabels = "train-labels-idx1-ubyte"
	testImages  = "t10k-images-idx3-ubyte"
	testLabels  = "t10k-labels-idx1-ubyte"
)

// checksums are the published MD5 digests of the gzipped files.
var checksums = map[string]string{
	trainImages + ".gz": "8d4fb7e6c68d591d4c3dfef9ec88bf0d",
	trainLabels + ".gz": "25c81989df183df01b3e8a0aad5dffbe",
	testImages + ".gz":  "bef4ecab320f06d8554ea6380940ec79",
	testLabels + ".gz":  "bb300cfdad3c16e7a12a480ee83cd310",
}

var (
	ErrNotFound = errors.New("dataset file not found")
	ErrChecksum = errors.New("dataset checksum mismatch")
)

// Options controls where and how Load finds the dataset files.
type Options struct {
	// Dir holds the IDX files, gzipped or not. Empty means DefaultDir().
	Dir string
	// Download fetches missing files from Mirror.
	Download bool
	Mirror   string
	// Verify checks gzipped files against their published digests.
	Verify bool
	// Limit truncates each partition to at most Limit samples when positive.
	Limit int

	Client *http.Client
}

// DefaultDir returns the per-user cache directory for the dataset.
func DefaultDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fpbench", "fashion-mnist")
	}
	return filepath.Join(dir, "fpbench", "fashion-mnist")
}

// Load reads the Fashion-MNIST train and test partitions. A missing file is
// an error unless Download is set.
func Load(ctx context.Context, opts Options) (*Dataset, error) {
	log := logger.FromContext(ctx).With("component", "dataset")
	if opts.Dir == "" {
		opts.Dir = DefaultDir()
	}
	if opts.Mirror == "" {
		opts.Mirror = DefaultMirror
	}

	start := time.Now()
	files := make(map[string][]byte, 4)
	for _, name := range []string{trainImages, trainLabels, testImages, testLabels} {
		data, err := readIDX(ctx, opts, name)
		if err != nil {
			return nil, err
		}
		files[name] = data
	}

	train, err := newPartition(files[trainImages], files[trainLabels])
	if err != nil {
		return nil, fmt.Errorf("train partition: %w", err)
	}
	test, err := newPartition(files[testImages], files[testLabels])
	if err != nil {
		return nil, fmt.Errorf("test partition: %w", err)
	}

	ds := &Dataset{Train: train.Head(opts.Limit), Test: test.Head(opts.Limit)}
	log.Info("dataset loaded",
		"dir", opts.Dir,
		"train", ds.Train.Len(),
		"test", ds.Test.Len(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return ds, nil
}

// readIDX returns the uncompressed bytes of one IDX file. Uncompressed files
// are mapped and copied out; gzipped ones are verified and inflated.
func readIDX(ctx context.Context, opts Options, name string) ([]byte, error) {
	log := logger.FromContext(ctx)
	rawPath := filepath.Join(opts.Dir, name)
	gzPath := rawPath + ".gz"

	if _, err := os.Stat(gzPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", gzPath, err)
		}
		if _, err := os.Stat(rawPath); err == nil {
			log.Debug("mapping uncompressed idx", "path", rawPath)
			data, release, err := mapFile(rawPath)
			if err != nil {
				return nil, fmt.Errorf("map %s: %w", rawPath, err)
			}
			defer release()
			return bytes.Clone(data), nil
		}
		if !opts.Download {
			return nil, fmt.Errorf("%w: %s (run with --download or place the file in %s)", ErrNotFound, name, opts.Dir)
		}
		if err := download(ctx, opts, name+".gz", gzPath); err != nil {
			return nil, err
		}
	}

	compressed, err := os.ReadFile(gzPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", gzPath, err)
	}
	if opts.Verify {
		if err := verify(name+".gz", compressed); err != nil {
			return nil, err
		}
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gunzip %s: %w", gzPath, err)
	}
	defer func() { _ = zr.Close() }()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip %s: %w", gzPath, err)
	}
	return data, nil
}

func verify(name string, data []byte) error {
	want, ok := checksums[name]
	if !ok {
		return nil
	}
	sum := md5.Sum(data)
	if got := hex.EncodeToString(sum[:]); got != want {
		return fmt.Errorf("%w: %s has md5 %s, want %s", ErrChecksum, name, got, want)
	}
	return nil
}

// download fetches name from the mirror into dst via a temporary file so a
// failed transfer never leaves a partial file behind.
func download(ctx context.Context, opts Options, name, dst string) error {
	log := logger.FromContext(ctx)
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	url := opts.Mirror + name
	log.Info("downloading dataset file", "url", url)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", name, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), name+".*.part")
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), dst)
}
