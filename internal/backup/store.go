// Package backup implements the content-indexed shadow copy and checksum
// catalog that the detection engine restores from. It owns the shadow
// directory tree and the catalog database exclusively; every other
// component only calls through the operations below.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // pure-Go driver, registers as "sqlite"

	"github.com/ransomguard/ransomguard/internal/rgerrors"
)

// minFreeBytes is the free-space floor the shadow directory's volume must
// keep above a pending write. A ransomware storm racing the backup store for
// disk space is exactly when running out would be most damaging.
const minFreeBytes = 64 * 1024 * 1024

// recoveryThrottleEvery and recoveryThrottleSleep implement the
// checksum_recovery throttle: pause briefly every N processed files so a
// large catalog scan doesn't saturate disk I/O during an active incident.
const (
	recoveryThrottleEvery = 10
	recoveryThrottleSleep = 100 * time.Millisecond
)

var errInsufficientSpace = errors.New("backup: insufficient free space on shadow volume")
var errOutsideTree = errors.New("backup: path outside monitored tree")

// Entry is one catalog row.
type Entry struct {
	RelPath      string
	Checksum     string
	LastModified time.Time
	Deleted      bool
	LastUpdated  time.Time
}

// Stats summarizes the catalog for the control surface.
type Stats struct {
	ActiveCount     int
	TombstonedCount int
}

// Store is the Backup Store: a shadow directory plus a SQLite catalog.
type Store struct {
	db            *sql.DB
	logger        *slog.Logger
	monitoringDir string
	backupDir     string

	stmts statements

	backupGroup singleflight.Group // coalesces concurrent backup(path) for the same path
	restoring   atomic.Bool        // restore_all non-reentrancy guard

	recoveringMu sync.Mutex
	recovering   map[string]struct{} // relpaths currently mid-restore
}

type statements struct {
	upsert     *sql.Stmt
	get        *sql.Stmt
	markDel    *sql.Stmt
	cleanup    *sql.Stmt
	listActive *sql.Stmt
	listSince  *sql.Stmt
	stats      *sql.Stmt
}

// NewStore opens (creating if absent) the catalog database at dbPath,
// applies migrations, and prepares statements. monitoringDir is the
// protected tree root used to compute relative paths; backupDir is the
// shadow tree root. Use ":memory:" for dbPath in tests.
func NewStore(monitoringDir, backupDir, dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, rgerrors.IO(err, backupDir)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, rgerrors.IO(err, dbPath)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, rgerrors.IO(err, dbPath)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, rgerrors.IO(err, dbPath)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:            db,
		logger:        logger,
		monitoringDir: monitoringDir,
		backupDir:     backupDir,
		recovering:    make(map[string]struct{}),
	}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error
	prep := func(query string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		stmt, err = s.db.PrepareContext(ctx, query)
		return stmt
	}

	s.stmts.upsert = prep(`INSERT INTO checksums (relpath, checksum, last_modified, deleted, last_updated)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(relpath) DO UPDATE SET
			checksum = excluded.checksum,
			last_modified = excluded.last_modified,
			deleted = 0,
			last_updated = excluded.last_updated`)

	s.stmts.get = prep(`SELECT relpath, checksum, last_modified, deleted, last_updated
		FROM checksums WHERE relpath = ?`)

	s.stmts.markDel = prep(`INSERT INTO checksums (relpath, checksum, last_modified, deleted, last_updated)
		VALUES (?, '', 0, 1, ?)
		ON CONFLICT(relpath) DO UPDATE SET deleted = 1, last_updated = excluded.last_updated`)

	s.stmts.cleanup = prep(`DELETE FROM checksums WHERE deleted = 1 AND last_updated < ?`)

	s.stmts.listActive = prep(`SELECT relpath, checksum, last_modified, deleted, last_updated
		FROM checksums WHERE deleted = 0`)

	s.stmts.listSince = prep(`SELECT relpath, checksum, last_modified, deleted, last_updated
		FROM checksums WHERE deleted = 0 OR last_updated > ?`)

	s.stmts.stats = prep(`SELECT
		SUM(CASE WHEN deleted = 0 THEN 1 ELSE 0 END),
		SUM(CASE WHEN deleted = 1 THEN 1 ELSE 0 END)
		FROM checksums`)

	return err
}

// Close releases the catalog database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) relPath(abspath string) (string, error) {
	rel, err := filepath.Rel(s.monitoringDir, abspath)
	if err != nil {
		return "", rgerrors.IO(err, abspath)
	}
	if strings.HasPrefix(rel, "..") {
		return "", rgerrors.IO(errOutsideTree, abspath).WithContext("reason", "outside monitored tree")
	}
	return rel, nil
}

// Backup hashes abspath's contents, copies bytes and mtime into the shadow
// tree, and upserts the catalog row with deleted=false. Fails with
// rgerrors.CodeIO if the source is missing or the copy fails. Idempotent:
// re-backing up identical content is harmless. Concurrent calls for the
// same path are coalesced into one hash+copy.
func (s *Store) Backup(ctx context.Context, abspath string) error {
	rel, err := s.relPath(abspath)
	if err != nil {
		return err
	}

	_, err, _ = s.backupGroup.Do(rel, func() (any, error) {
		return nil, s.doBackup(ctx, abspath, rel)
	})
	return err
}

func (s *Store) doBackup(ctx context.Context, abspath, rel string) error {
	info, err := os.Stat(abspath)
	if err != nil {
		return rgerrors.IO(err, abspath)
	}

	if err := s.checkDiskSpace(info.Size()); err != nil {
		return err
	}

	sum, err := hashFile(abspath)
	if err != nil {
		return rgerrors.IO(err, abspath)
	}

	dst := filepath.Join(s.backupDir, rel)
	if err := copyFileWithRetry(ctx, abspath, dst); err != nil {
		return rgerrors.IO(err, abspath)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		s.logger.Warn("preserving backup mtime failed", "path", dst, "error", err)
	}

	now := time.Now()
	if _, err := s.stmts.upsert.ExecContext(ctx, rel, sum, info.ModTime().Unix(), now.Unix()); err != nil {
		return rgerrors.IO(err, rel)
	}

	return nil
}

// checkDiskSpace returns an IO error if the shadow volume lacks room for an
// incoming write of the given size plus the reserve floor.
func (s *Store) checkDiskSpace(incoming int64) error {
	free, err := availableBytes(s.backupDir)
	if err != nil {
		// Not every platform implements this; degrade to "allow" rather than
		// blocking backups over an unanswerable question.
		return nil
	}
	if free < minFreeBytes+uint64(max64(incoming, 0)) {
		return rgerrors.IO(errInsufficientSpace, s.backupDir).WithContext("reason", "insufficient free space")
	}
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// ensureRestoreDiskSpace guards RestoreAll/ChecksumRecovery against writing
// into an already-nearly-full monitored volume: a restore that itself fills
// the disk would turn a ransomware incident into a second, self-inflicted
// outage. Degrades to "allow" on platforms availableBytes can't answer for,
// matching checkDiskSpace's own policy.
func (s *Store) ensureRestoreDiskSpace() error {
	free, err := availableBytes(s.monitoringDir)
	if err != nil {
		return nil
	}
	if free < minFreeBytes {
		return rgerrors.IO(errInsufficientSpace, s.monitoringDir).WithContext("reason", "insufficient free space for restore")
	}
	return nil
}

// Restore overwrites the live path at relpath with the shadow copy,
// creating parent directories as needed. Fails with rgerrors.CodeNoBackup
// if no shadow file exists.
func (s *Store) Restore(ctx context.Context, relpath string) error {
	src := filepath.Join(s.backupDir, relpath)
	if _, err := os.Stat(src); err != nil {
		return rgerrors.NoBackup(relpath)
	}

	s.setRecovering(relpath, true)
	defer s.setRecovering(relpath, false)

	dst := filepath.Join(s.monitoringDir, relpath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return rgerrors.IO(err, dst)
	}

	if err := copyFileWithRetry(ctx, src, dst); err != nil {
		return rgerrors.IO(err, dst)
	}

	return nil
}

func (s *Store) setRecovering(relpath string, active bool) {
	s.recoveringMu.Lock()
	defer s.recoveringMu.Unlock()
	if active {
		s.recovering[relpath] = struct{}{}
	} else {
		delete(s.recovering, relpath)
	}
}

// IsRecovering reports whether relpath is currently mid-restore, so callers
// (the Dispatcher) can recognize self-inflicted events during recovery.
func (s *Store) IsRecovering(relpath string) bool {
	s.recoveringMu.Lock()
	defer s.recoveringMu.Unlock()
	_, ok := s.recovering[relpath]
	return ok
}

// RestoreAll walks the shadow tree and restores every file. Not re-entrant:
// a call while one is already in progress returns (0, 0) immediately
// (rgerrors.CodeRecoveryBusy semantics, but surfaced as zero counts per the
// engine's recovery contract rather than an error). progress, if non-nil,
// is invoked after each file with the running (done, total) count — this is
// how the orchestrator observes restore progress without the store holding
// a back-reference to it.
func (s *Store) RestoreAll(ctx context.Context, progress func(done, total int)) (restored, failed int) {
	if !s.restoring.CompareAndSwap(false, true) {
		return 0, 0
	}
	defer s.restoring.Store(false)

	if err := s.ensureRestoreDiskSpace(); err != nil {
		s.logger.Error("restore_all aborted", "error", err)
		return 0, 0
	}

	paths, err := s.shadowFiles()
	if err != nil {
		s.logger.Error("enumerating shadow tree failed", "error", err)
		return 0, 0
	}

	total := len(paths)
	var errs error
	for i, rel := range paths {
		if err := s.Restore(ctx, rel); err != nil {
			failed++
			errs = multierr.Append(errs, err)
			s.logger.Warn("restore failed", "relpath", rel, "error", err)
		} else {
			restored++
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	if errs != nil {
		s.logger.Error("restore_all completed with failures", "restored", restored, "failed", failed)
	}

	return restored, failed
}

func (s *Store) shadowFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.backupDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.backupDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, rgerrors.IO(err, s.backupDir)
	}
	return paths, nil
}

// ChecksumRecovery restores any catalog row whose live content diverges
// from the recorded checksum, restricted to rows that are live or were
// tombstoned after detectionTime (a nil detectionTime recovers every live
// row, treating all tombstones as legitimate deletes). Throttles with a
// short sleep every recoveryThrottleEvery files so a full-catalog scan
// during an incident doesn't saturate disk I/O.
func (s *Store) ChecksumRecovery(ctx context.Context, detectionTime *time.Time) (restored, failed int, err error) {
	if err := s.ensureRestoreDiskSpace(); err != nil {
		return 0, 0, err
	}

	rows, err := s.rowsForRecovery(ctx, detectionTime)
	if err != nil {
		return 0, 0, err
	}

	var errs error
	for i, row := range rows {
		abspath := filepath.Join(s.monitoringDir, row.RelPath)
		modified, checkErr := s.isModifiedEntry(abspath, row)
		if checkErr != nil {
			failed++
			errs = multierr.Append(errs, checkErr)
		} else if modified {
			if restoreErr := s.Restore(ctx, row.RelPath); restoreErr != nil {
				failed++
				errs = multierr.Append(errs, restoreErr)
			} else {
				restored++
			}
		}

		if (i+1)%recoveryThrottleEvery == 0 {
			time.Sleep(recoveryThrottleSleep)
		}
	}

	return restored, failed, errs
}

func (s *Store) rowsForRecovery(ctx context.Context, detectionTime *time.Time) ([]Entry, error) {
	var rows *sql.Rows
	var err error
	if detectionTime == nil {
		rows, err = s.stmts.listActive.QueryContext(ctx)
	} else {
		rows, err = s.stmts.listSince.QueryContext(ctx, detectionTime.Unix())
	}
	if err != nil {
		return nil, rgerrors.IO(err, "checksums")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var lastMod, lastUpd int64
		var deleted int
		if err := rows.Scan(&e.RelPath, &e.Checksum, &lastMod, &deleted, &lastUpd); err != nil {
			return nil, rgerrors.IO(err, "checksums")
		}
		e.LastModified = time.Unix(lastMod, 0)
		e.LastUpdated = time.Unix(lastUpd, 0)
		e.Deleted = deleted != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) isModifiedEntry(abspath string, row Entry) (bool, error) {
	sum, err := hashFile(abspath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, rgerrors.IO(err, abspath)
	}
	return sum != row.Checksum, nil
}

// IsModified hashes abspath's current content and compares it to the
// catalog entry. A missing catalog row reports false (treated as new); a
// tombstoned row reports true (reappearance is itself a change).
func (s *Store) IsModified(ctx context.Context, abspath string) (bool, error) {
	rel, err := s.relPath(abspath)
	if err != nil {
		return false, err
	}

	row := s.stmts.get.QueryRowContext(ctx, rel)
	var e Entry
	var lastMod, lastUpd int64
	var deleted int
	switch err := row.Scan(&e.RelPath, &e.Checksum, &lastMod, &deleted, &lastUpd); err {
	case sql.ErrNoRows:
		return false, nil
	case nil:
		// fallthrough to comparison below
	default:
		return false, rgerrors.IO(err, rel)
	}

	if deleted != 0 {
		return true, nil
	}

	sum, err := hashFile(abspath)
	if err != nil {
		return false, rgerrors.IO(err, abspath)
	}

	return sum != e.Checksum, nil
}

// MarkDeleted tombstones relpath's catalog row, inserting one if absent.
func (s *Store) MarkDeleted(ctx context.Context, relpath string) error {
	_, err := s.stmts.markDel.ExecContext(ctx, relpath, time.Now().Unix())
	if err != nil {
		return rgerrors.IO(err, relpath)
	}
	return nil
}

// Cleanup deletes tombstoned rows older than olderThanDays and returns the
// number of rows removed.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Unix()
	res, err := s.stmts.cleanup.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, rgerrors.IO(err, "checksums")
	}
	return res.RowsAffected()
}

// Stats summarizes the catalog for the control surface.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var active, tombstoned sql.NullInt64
	if err := s.stmts.stats.QueryRowContext(ctx).Scan(&active, &tombstoned); err != nil {
		return Stats{}, rgerrors.IO(err, "checksums")
	}
	return Stats{ActiveCount: int(active.Int64), TombstonedCount: int(tombstoned.Int64)}, nil
}

// copyFileWithRetry copies src to dst, retrying transient I/O errors with a
// short exponential backoff. Non-transient errors (permission, missing
// file) are returned immediately.
func copyFileWithRetry(ctx context.Context, src, dst string) error {
	b, err := retry.NewExponential(20 * time.Millisecond)
	if err != nil {
		return err
	}
	b = retry.WithMaxRetries(3, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := copyFile(src, dst)
		if err == nil {
			return nil
		}
		if os.IsTimeout(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dst)
}
