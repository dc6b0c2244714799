package ledger

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"splitter/internal/logger"
)

var backupPattern = regexp.MustCompile(`^.+_backup_\d{8}_\d{6}(_\d+)?\.(?i:xlsx|xlsm)$`)

// IsBackupName reports whether name follows the backup naming scheme.
func IsBackupName(name string) bool {
	return backupPattern.MatchString(name)
}

// RetentionPolicy prunes backups older than KeepDays, then keeps the
// KeepLastN most recent of the rest.
type RetentionPolicy struct {
	KeepLastN int
	KeepDays  int

	now    func() time.Time
	remove func(string) error
	log    zerolog.Logger
}

// PruneResult summarizes a prune run.
type PruneResult struct {
	DeletedByAge   []string
	DeletedByCount []string
	Failed         []string
	Kept           int
}

// NewRetentionPolicy returns a policy using the wall clock.
func NewRetentionPolicy(keepLastN, keepDays int) *RetentionPolicy {
	return &RetentionPolicy{
		KeepLastN: keepLastN,
		KeepDays:  keepDays,
		now:       time.Now,
		remove:    os.Remove,
		log:       logger.WithComponent("ledger-retention"),
	}
}

// Prune applies the policy to dir with the given limits.
func Prune(dir string, keepLastN, keepDays int) PruneResult {
	return NewRetentionPolicy(keepLastN, keepDays).Prune(dir)
}

type backupFile struct {
	path    string
	modTime time.Time
}

// Prune deletes expired and surplus backups in dir. Paths in protect are
// never deleted and count as kept. Deletion failures are logged and
// skipped; a missing directory is not an error.
func (p *RetentionPolicy) Prune(dir string, protect ...string) PruneResult {
	var result PruneResult

	backups, err := p.list(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn().Err(err).Str("dir", dir).Msg("Could not list backups, skipping retention")
		}
		return result
	}

	protected := make(map[string]bool, len(protect))
	for _, path := range protect {
		protected[filepath.Clean(path)] = true
	}

	cutoff := p.now().Add(-time.Duration(p.KeepDays) * 24 * time.Hour)
	survivors := backups[:0]
	for _, b := range backups {
		if protected[b.path] {
			result.Kept++
			continue
		}
		if !b.modTime.Before(cutoff) {
			survivors = append(survivors, b)
			continue
		}
		if p.delete(b.path, "age") {
			result.DeletedByAge = append(result.DeletedByAge, b.path)
		} else {
			result.Failed = append(result.Failed, b.path)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].modTime.After(survivors[j].modTime)
	})

	keep := p.KeepLastN - result.Kept
	if keep < 0 {
		keep = 0
	}
	for i, b := range survivors {
		if i < keep {
			result.Kept++
			continue
		}
		if p.delete(b.path, "count") {
			result.DeletedByCount = append(result.DeletedByCount, b.path)
		} else {
			result.Failed = append(result.Failed, b.path)
		}
	}

	return result
}

func (p *RetentionPolicy) list(dir string) ([]backupFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var backups []backupFile
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}
	return backups, nil
}

func (p *RetentionPolicy) delete(path, reason string) bool {
	if err := p.remove(path); err != nil {
		p.log.Warn().Err(err).Str("backup", path).Str("reason", reason).Msg("Could not delete backup")
		return false
	}
	p.log.Info().Str("backup", path).Str("reason", reason).Msg("Backup deleted")
	return true
}
