package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
)

// reloadDebounce groups bursts of file events into a single reload
const reloadDebounce = 250 * time.Millisecond

// FileSystemStorage serves entities from a directory of YAML fixture files
type FileSystemStorage struct {
	*Snapshot
	rootDir string
	metrics *observability.Metrics
}

// NewFileSystemStorage loads every *.yaml / *.yml file below rootDir
func NewFileSystemStorage(rootDir string) (*FileSystemStorage, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", rootDir)
	}

	graph, err := LoadDir(rootDir)
	if err != nil {
		return nil, err
	}
	return &FileSystemStorage{Snapshot: NewSnapshot(graph), rootDir: rootDir}, nil
}

// LoadDir reads all fixture files below rootDir into a graph
func LoadDir(rootDir string) (*entity.Graph, error) {
	records, err := ReadRecords(rootDir)
	if err != nil {
		return nil, err
	}

	graph, err := entity.NewGraph(records)
	if err != nil {
		return nil, fmt.Errorf("invalid fixtures in %s: %w", rootDir, err)
	}
	return graph, nil
}

// ReadRecords reads the records of every fixture file below rootDir, in file
// name order. Records are not validated.
func ReadRecords(rootDir string) ([]entity.Record, error) {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isFixture(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}
	sort.Strings(files)

	var records []entity.Record
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture file: %w", err)
		}

		var fileRecords []entity.Record
		if err := yaml.Unmarshal(data, &fileRecords); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		records = append(records, fileRecords...)
	}
	return records, nil
}

func isFixture(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Root returns the fixture directory
func (s *FileSystemStorage) Root() string {
	return s.rootDir
}

// SetMetrics records the current snapshot and every later reload to metrics
func (s *FileSystemStorage) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
	s.recordReload(nil)
}

// Reload re-reads the fixture directory; the previous snapshot is kept on error
func (s *FileSystemStorage) Reload() error {
	graph, err := LoadDir(s.rootDir)
	if err != nil {
		s.recordReload(err)
		return err
	}
	s.Replace(graph)
	s.recordReload(nil)
	return nil
}

func (s *FileSystemStorage) recordReload(err error) {
	if s.metrics != nil {
		s.metrics.RecordSnapshotReload(TypeFilesystem, s.Len(), err)
	}
}

// Watch reloads fixtures whenever files below the root change, until ctx is done
func (s *FileSystemStorage) Watch(ctx context.Context, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	err = filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.rootDir, err)
	}

	go func() {
		defer watcher.Close()
		defer observability.RecoverPanic(logger, "fixture watcher")

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := watcher.Add(event.Name); err != nil {
							logger.WithError(err).Warnf("Failed to watch %s", event.Name)
						}
					}
				}
				if !isFixture(event.Name) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := s.Reload(); err != nil {
					logger.WithError(err).Error("Fixture reload failed, keeping previous snapshot")
					continue
				}
				logger.WithField("entities", s.Len()).Info("Fixtures reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Fixture watcher error")
			}
		}
	}()

	return nil
}

// HealthCheck implements Store
func (s *FileSystemStorage) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.rootDir); err != nil {
		return fmt.Errorf("fixture directory unavailable: %w", err)
	}
	return nil
}

// Close implements Store
func (s *FileSystemStorage) Close() error {
	return nil
}
