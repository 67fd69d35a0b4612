package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

const (
	historyDir = "history"
	tmpSuffix  = ".tmp"
)

// FileStore writes snapshots as flat files under dir. Every artifact is
// staged to a temporary file first; only when all are staged are the
// previous files archived and replaced, and the freshness marker is written
// last.
type FileStore struct {
	dir     string
	loc     *time.Location
	history bool
	log     logger.Logger
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:     dir,
		loc:     time.Local,
		history: true,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write persists snap. If any artifact fails to stage, nothing on disk
// changes and the marker keeps the previous run's time.
func (s *FileStore) Write(ctx context.Context, snap *model.Snapshot) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.RecordSnapshotWrite(outcome, time.Since(start))
	}()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	staged := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, p := range staged {
			_ = os.Remove(p)
		}
	}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			cleanup()
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		tmp := s.path(a.name) + tmpSuffix
		if err := writeFile(tmp, func(w io.Writer) error { return a.encode(w, snap) }); err != nil {
			cleanup()
			return fmt.Errorf("%w: stage %s: %v", ErrWrite, a.name, err)
		}
		staged = append(staged, tmp)
	}

	if s.history {
		if err := s.archive(); err != nil {
			cleanup()
			return err
		}
	}

	for _, a := range artifacts {
		if err := os.Rename(s.path(a.name)+tmpSuffix, s.path(a.name)); err != nil {
			cleanup()
			return fmt.Errorf("%w: replace %s: %v", ErrWrite, a.name, err)
		}
	}

	marker := snap.UpdatedAt.In(s.loc).Format(markerLayout)
	if err := writeFile(s.path(FileMarker)+tmpSuffix, func(w io.Writer) error {
		_, err := io.WriteString(w, marker)
		return err
	}); err != nil {
		return fmt.Errorf("%w: stage marker: %v", ErrWrite, err)
	}
	if err := os.Rename(s.path(FileMarker)+tmpSuffix, s.path(FileMarker)); err != nil {
		return fmt.Errorf("%w: replace marker: %v", ErrWrite, err)
	}

	s.log.Info(ctx, "snapshot written",
		logger.String("dir", s.dir),
		logger.String("updated_at", marker),
		logger.Int("members", len(snap.Members)),
		logger.Int("problems", len(snap.Problems)))
	return nil
}

// Read loads the persisted snapshot. It returns model.ErrNoSnapshot when no
// marker exists.
func (s *FileStore) Read(ctx context.Context) (*model.Snapshot, error) {
	updated, err := s.Marker()
	if err != nil {
		return nil, err
	}
	snap := &model.Snapshot{UpdatedAt: updated}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := readFile(s.path(a.name), func(r io.Reader) error { return a.decode(r, snap) }); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRead, a.name, err)
		}
	}
	return snap, nil
}

// Marker returns the time recorded by the last successful write.
func (s *FileStore) Marker() (time.Time, error) {
	raw, err := os.ReadFile(s.path(FileMarker))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, model.ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: marker: %v", ErrRead, err)
	}
	t, err := time.ParseInLocation(markerLayout, strings.TrimSpace(string(raw)), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: marker: %v", ErrRead, err)
	}
	return t, nil
}

// archive copies the current artifacts to history/, suffixed with the date
// of the snapshot they belong to. Missing artifacts are skipped.
func (s *FileStore) archive() error {
	prev, err := s.Marker()
	if errors.Is(err, model.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, historyDir), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	for _, a := range artifacts {
		src := s.path(a.name)
		dst := s.HistoryPath(a.name, prev)
		if err := copyFile(src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: %s: %v", ErrArchive, a.name, err)
		}
	}
	return nil
}

// HistoryPath returns where an artifact of the snapshot dated day is archived.
func (s *FileStore) HistoryPath(name string, day time.Time) string {
	ext := filepath.Ext(name)
	return filepath.Join(s.dir, historyDir, strings.TrimSuffix(name, ext)+"_"+day.Format(time.DateOnly)+ext)
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func readFile(path string, consume func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return consume(bufio.NewReader(f))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	return writeFile(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
