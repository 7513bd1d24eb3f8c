package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/scan"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/session"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
)

const (
	tsLayout   = "2006-01-02T15:04:05Z"
	summaryLen = 120
)

type Stats struct {
	Scanned   int
	Updated   int
	Skipped   int
	Pruned    int
	Errors    int
	Messages  int
	Malformed int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d errors=%d messages=%d malformed=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors, s.Messages, s.Malformed)
}

// IndexAll brings the index in line with the session files under root:
// changed files are re-parsed, unchanged ones skipped and vanished ones
// pruned. Per-file failures are logged and counted, not returned.
func IndexAll(db *DB, root string, p *session.Parser, logger *slog.Logger) (Stats, error) {
	var stats Stats
	if logger == nil {
		logger = slog.Default()
	}

	files, err := scan.ScanRoot(root)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	// track which files we see, for pruning
	seenKeys := make(map[string]struct{})

	for _, fi := range files {
		seenKeys[fi.Key] = struct{}{}

		needs, err := needsUpdate(db, fi.Key, fi.Mtime, fi.Size)
		if err != nil {
			stats.Errors++
			logger.Warn("check session", "path", fi.Path, "err", err)
			continue
		}
		if !needs {
			stats.Skipped++
			continue
		}

		tr, err := IndexFile(db, fi, p)
		if err != nil {
			stats.Errors++
			logger.Warn("index session", "path", fi.Path, "err", err)
			continue
		}
		stats.Updated++
		stats.Messages += len(tr.Messages)
		stats.Malformed += tr.Stats.Malformed
	}

	// prune sessions whose files no longer exist
	pruned, err := pruneSessions(db, seenKeys)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	return stats, nil
}

// IndexFile parses one session at the full level and replaces whatever the
// index held for it.
func IndexFile(db *DB, fi scan.FileInfo, p *session.Parser) (*session.Transcript, error) {
	tr, err := p.ParseTranscript(fi.Path, transcript.Full)
	if err != nil {
		return nil, err
	}
	if err := storeSession(db, fi, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

func needsUpdate(db *DB, sessionKey string, mtime, size int64) (bool, error) {
	info, err := db.GetSessionInfo(sessionKey)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil // new session
	}
	return info.Mtime != mtime || info.Size != size, nil
}

func storeSession(db *DB, fi scan.FileInfo, tr *session.Transcript) error {
	// delete old data first
	if err := db.DeleteSession(fi.Key); err != nil {
		return err
	}

	tx, err := db.Raw().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	created, updated := timeRange(tr.Messages)
	_, err = tx.Exec(
		`INSERT INTO sessions (session_key, file_path, created_at, updated_at, summary, messages, malformed, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fi.Key,
		fi.Path,
		formatTime(created),
		formatTime(updated),
		sessionSummary(tr.Messages),
		len(tr.Messages),
		tr.Stats.Malformed,
		fi.Mtime,
		fi.Size,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (` + messageColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range tr.Messages {
		_, err := stmt.Exec(
			fi.Key,
			i,
			m.ID,
			m.ParentID,
			formatTime(m.Timestamp),
			m.Role,
			string(m.Kind),
			m.SummaryText,
			m.Line,
			m.Offset,
			m.Length,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// sessionSummary is the first genuine user question.
func sessionSummary(msgs []transcript.Message) string {
	for _, m := range msgs {
		if m.Role == jsonl.RoleUser && m.Kind == transcript.KindText && transcript.IsGenuineTurn(m) && m.SummaryText != "" {
			return classify.Truncate(m.SummaryText, summaryLen)
		}
	}
	return ""
}

func timeRange(msgs []transcript.Message) (first, last time.Time) {
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return first, last
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(tsLayout)
}

func pruneSessions(db *DB, seenKeys map[string]struct{}) (int, error) {
	allKeys, err := db.AllSessionKeys()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for key := range allKeys {
		if _, ok := seenKeys[key]; !ok {
			if err := db.DeleteSession(key); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}
