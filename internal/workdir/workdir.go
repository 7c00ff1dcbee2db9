// Package workdir manages the single working directory of a run. Every file
// is overwritten unconditionally; nothing is versioned or retained.
package workdir

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	appLog "posteragent/internal/log"
)

// File names inside the working directory.
const (
	RawCaptureFile = "poster_scan.png"
	OptimizedFile  = "poster_scan_optimized.jpg"
	EventFile      = "event.ics"
)

// Store writes run artifacts below Dir on Fs.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a Store rooted at dir on the given filesystem. Pass
// afero.NewOsFs() in production.
func New(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Dir returns the working directory path.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of a working-directory file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Ensure creates the working directory if needed.
func (s *Store) Ensure() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("workdir: create %s: %w", s.dir, err)
	}
	return nil
}

// SaveRaw overwrites the raw full-frame capture.
func (s *Store) SaveRaw(png []byte) (string, error) {
	return s.write(RawCaptureFile, png)
}

// SaveOptimized overwrites the recompressed derivative sent for extraction.
func (s *Store) SaveOptimized(jpg []byte) (string, error) {
	return s.write(OptimizedFile, jpg)
}

// SaveEvent overwrites the exported calendar artifact.
func (s *Store) SaveEvent(ics []byte) (string, error) {
	return s.write(EventFile, ics)
}

// Read returns the contents of a working-directory file.
func (s *Store) Read(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.Path(name))
}

func (s *Store) write(name string, data []byte) (string, error) {
	if err := s.Ensure(); err != nil {
		return "", err
	}
	p := s.Path(name)
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("workdir: write %s: %w", name, err)
	}
	appLog.Debug("workdir file written", "path", p, "bytes", len(data))
	return p, nil
}
