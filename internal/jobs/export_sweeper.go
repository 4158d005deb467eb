package jobs

import (
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
)

var _ CronJob = (*ExportSweeper)(nil)

// ExportSweeper deletes export artifacts older than the retention and removes
// the document directories it leaves empty.
type ExportSweeper struct {
	dir       string
	retention time.Duration
	schedule  string
	now       func() time.Time
}

func NewExportSweeper(dir string, retention time.Duration, schedule string) *ExportSweeper {
	return &ExportSweeper{
		dir:       dir,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
	}
}

func (s *ExportSweeper) Schedule() string {
	return s.schedule
}

func (s *ExportSweeper) Run() {
	removed, err := s.Sweep()
	if err != nil {
		logrus.Errorf("failed to sweep exports: %v", err)
		return
	}
	if removed > 0 {
		logrus.Infof("removed %d expired export artifacts", removed)
	}
}

// Sweep returns the number of removed artifacts.
func (s *ExportSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.retention)
	touched := mapset.NewThreadUnsafeSet[string]()
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		docDir := filepath.Join(s.dir, entry.Name())

		err := filepath.WalkDir(docDir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.ModTime().After(cutoff) {
				return nil
			}

			if err := os.Remove(path); err != nil {
				logrus.Warnf("failed to remove expired export %s: %v", path, err)
				return nil
			}
			removed++
			touched.Add(docDir)
			return nil
		})
		if err != nil {
			logrus.Warnf("failed to sweep %s: %v", docDir, err)
		}
	}

	for docDir := range touched.Iter() {
		removeEmptyDirs(docDir)
	}

	return removed, nil
}

// removeEmptyDirs removes dir and its subdirectories when they hold no files.
func removeEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			removeEmptyDirs(filepath.Join(dir, entry.Name()))
		}
	}

	if entries, err = os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
