package zenodo

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/caderidris/senseurcity-etl/internal/domain"
)

// Download fetches the dataset archive to dest with a single HTTP attempt;
// retry policy belongs to whoever schedules the program. An existing file is
// reused unless force is set.
func Download(ctx context.Context, client *http.Client, url, dest string, force bool, logger *slog.Logger) error {
	if _, err := os.Stat(dest); err == nil {
		if !force {
			logger.Info("archive already exists, skipping download", "path", dest)
			return nil
		}
		logger.Info("archive already exists, replacing contents", "path", dest)
	}

	logger.Info("downloading dataset archive", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download archive: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create download folder: %w", err)
	}
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	logger.Debug("archive written", "path", dest, "bytes", n)
	return nil
}

// File is one device CSV from the archive: the filename stem (the device
// key) and the parsed raw table.
type File struct {
	Name  string
	Table *domain.Table
}

// Dataset is an opened archive positioned at its dataset/ folder.
type Dataset struct {
	reader     *zip.Reader
	closer     io.Closer
	datasetDir string
}

// OpenDataset opens the archive at path and locates the dataset/ folder,
// which may sit at the root or nested under a single "senseurcity_data_v*"
// folder. Multiple candidate folders, or none, is an error: the caller has
// the wrong zip.
func OpenDataset(zipPath string) (*Dataset, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	ds, err := newDataset(&rc.Reader)
	if err != nil {
		rc.Close() //nolint:errcheck // already failing
		return nil, err
	}
	ds.closer = rc
	return ds, nil
}

func newDataset(reader *zip.Reader) (*Dataset, error) {
	dir, err := findDatasetDir(reader)
	if err != nil {
		return nil, err
	}
	return &Dataset{reader: reader, datasetDir: dir}, nil
}

func findDatasetDir(reader *zip.Reader) (string, error) {
	roots := make(map[string]bool)
	for _, f := range reader.File {
		root, _, _ := strings.Cut(f.Name, "/")
		if root == "dataset" || strings.Contains(root, "senseurcity_data_v") {
			roots[root] = true
		}
	}

	switch len(roots) {
	case 0:
		return "", fmt.Errorf("'dataset' folder missing from provided zip file; redownload or choose the correct zip file")
	case 1:
		for root := range roots {
			if root == "dataset" {
				return "dataset/", nil
			}
			return root + "/dataset/", nil
		}
	}

	var names []string
	for root := range roots {
		names = append(names, root)
	}
	return "", fmt.Errorf("zip file contains multiple datasets: %s", strings.Join(names, ", "))
}

// Close releases the underlying archive handle, if any.
func (d *Dataset) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// Files yields the parsed CSV of every device belonging to a selected city,
// in archive order. The yielded name is the CSV filename stem, which doubles
// as the device key. A city with no matching CSVs is logged and skipped; a
// CSV that fails to parse stops the sequence with the error.
func (d *Dataset) Files(cities Cities, logger *slog.Logger) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		for _, cp := range cityPrefixes {
			if !cities.Has(cp.city) {
				continue
			}
			matched := false
			for _, zf := range d.reader.File {
				if !d.matches(zf.Name, cp.prefix) {
					continue
				}
				matched = true
				file, err := d.parseEntry(zf)
				if err != nil {
					yield(File{}, err)
					return
				}
				logger.Debug("returning csv", "file", file.Name)
				if !yield(file, nil) {
					return
				}
			}
			if !matched {
				logger.Warn("no csv files found for city", "city", cp.prefix[:len(cp.prefix)-1])
			}
		}
	}
}

func (d *Dataset) matches(entryName, cityPrefix string) bool {
	return strings.HasPrefix(entryName, d.datasetDir+cityPrefix) &&
		strings.HasSuffix(entryName, ".csv")
}

func (d *Dataset) parseEntry(zf *zip.File) (File, error) {
	r, err := zf.Open()
	if err != nil {
		return File{}, fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer r.Close()

	table, err := ParseCSV(r)
	if err != nil {
		return File{}, fmt.Errorf("parse %s: %w", zf.Name, err)
	}
	stem := strings.TrimSuffix(path.Base(zf.Name), ".csv")
	return File{Name: stem, Table: table}, nil
}
