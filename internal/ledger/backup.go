package ledger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupTimeLayout = "20060102_150405"

// BackupName returns {stem}_backup_{YYYYMMDD_HHMMSS}{ext} for the ledger.
func BackupName(ledgerPath string, at time.Time) string {
	base := filepath.Base(ledgerPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_backup_%s%s", stem, at.Format(backupTimeLayout), ext)
}

// maxBackupsPerSecond bounds the _N suffixes tried for one timestamp.
const maxBackupsPerSecond = 100

// CreateBackup copies the ledger into backupDir under a timestamped name.
// A backup taken in the same second gets a _2, _3... suffix instead of
// replacing the earlier one. The copy's modification time is set to at so
// retention ages backups from their creation.
func CreateBackup(ledgerPath, backupDir string, at time.Time) (string, error) {
	const op = "CreateBackup"

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("%s: create backup directory: %w", op, err)
	}

	src, err := os.Open(ledgerPath)
	if err != nil {
		return "", fmt.Errorf("%s: open ledger: %w", op, err)
	}
	defer src.Close()

	dst, out, err := createExclusive(backupDir, BackupName(ledgerPath, at))
	if err != nil {
		return "", fmt.Errorf("%s: create backup file: %w", op, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("%s: copy ledger: %w", op, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("%s: close backup file: %w", op, err)
	}

	if err := os.Chtimes(dst, at, at); err != nil {
		return "", fmt.Errorf("%s: set backup time: %w", op, err)
	}

	return dst, nil
}

// createExclusive creates name in dir, adding a numeric suffix before the
// extension while the name is taken.
func createExclusive(dir, name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 1; n <= maxBackupsPerSecond; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("%s: %d backups already exist for this second", name, maxBackupsPerSecond)
}
