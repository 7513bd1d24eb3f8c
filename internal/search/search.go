package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/index"
)

type Result struct {
	SessionKey string
	FilePath   string
	MessageID  string
	Seq        int
	Line       int
	UpdatedAt  string
	Summary    string
	Snippet    string
	Role       string
	Kind       string
	Rank       float64
}

type Options struct {
	Query   string
	Role    string // "" = all, "user", "assistant"
	Kind    string // "" = all, "text", "thinking", ...
	Since   string // "" = no filter, e.g. "2024-01-01"
	Limit   int
	AllHits bool // keep every hit instead of the best one per session
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// fts5Operators pass through to MATCH unquoted.
var fts5Operators = map[string]bool{"AND": true, "OR": true, "NOT": true, "NEAR": true}

// ftsQuery quotes every plain term so punctuation such as "-" or ":" in a
// term is not read as query syntax. Queries that already quote are left
// alone.
func ftsQuery(q string) string {
	if strings.ContainsRune(q, '"') {
		return q
	}
	terms := strings.Fields(q)
	for i, t := range terms {
		if fts5Operators[t] {
			continue
		}
		terms[i] = `"` + t + `"`
	}
	return strings.Join(terms, " ")
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	runes := []rune(text)
	qRunes := []rune(query)
	lower := []rune(strings.ToLower(text))
	qLower := strings.ToLower(query)

	runePos := -1
	if len(lower) == len(runes) {
		runePos = indexRunes(lower, []rune(qLower))
	}
	if runePos < 0 {
		// no match, return head
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}

	start := runePos - contextChars
	if start < 0 {
		start = 0
	}
	end := runePos + len(qRunes) + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func Search(db *index.DB, opts Options) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// Fetch more results before dedup so we still have enough after
	origLimit := opts.Limit
	if !opts.AllHits {
		opts.Limit = origLimit * 3
	}

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}
	if opts.AllHits {
		return results, nil
	}

	// Deduplicate: keep only the best-ranked result per session
	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.SessionKey] {
			continue
		}
		seen[r.SessionKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

// filters builds the WHERE clauses shared by both search paths.
func filters(opts Options) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if opts.Role != "" {
		conditions = append(conditions, "m.role = ?")
		args = append(args, opts.Role)
	}
	if opts.Kind != "" {
		conditions = append(conditions, "m.kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Since != "" {
		conditions = append(conditions, "s.updated_at >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"messages_fts MATCH ?"}
	args := []interface{}{ftsQuery(opts.Query)}
	more, moreArgs := filters(opts)
	conditions = append(conditions, more...)
	args = append(args, moreArgs...)

	query := fmt.Sprintf(`
		SELECT
			m.session_key,
			s.file_path,
			m.message_id,
			m.seq,
			m.line_number,
			s.updated_at,
			s.summary,
			snippet(messages_fts, 0, '>>>','<<<', '...', 40) as snip,
			m.role,
			m.kind,
			bm25(messages_fts, 1.0) as rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		JOIN sessions s ON m.session_key = s.session_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.SessionKey, &r.FilePath, &r.MessageID, &r.Seq, &r.Line,
			&r.UpdatedAt, &r.Summary, &r.Snippet, &r.Role, &r.Kind, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	// LIKE match for CJK substring search
	conditions := []string{"m.text LIKE ?"}
	args := []interface{}{"%" + opts.Query + "%"}
	more, moreArgs := filters(opts)
	conditions = append(conditions, more...)
	args = append(args, moreArgs...)

	query := fmt.Sprintf(`
		SELECT
			m.session_key,
			s.file_path,
			m.message_id,
			m.seq,
			m.line_number,
			s.updated_at,
			s.summary,
			m.text,
			m.role,
			m.kind
		FROM messages m
		JOIN sessions s ON m.session_key = s.session_key
		WHERE %s
		ORDER BY s.updated_at DESC, m.seq
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var fullText string
		if err := rows.Scan(
			&r.SessionKey, &r.FilePath, &r.MessageID, &r.Seq, &r.Line,
			&r.UpdatedAt, &r.Summary, &fullText, &r.Role, &r.Kind,
		); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(fullText, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListAll returns indexed sessions newest first. Query, when set, filters
// on summary or path.
func ListAll(db *index.DB, opts Options) ([]Result, error) {
	query := `
		SELECT session_key, file_path, updated_at, summary, messages
		FROM sessions`
	var args []interface{}
	var conditions []string
	if opts.Query != "" {
		conditions = append(conditions, "(summary LIKE ? OR file_path LIKE ?)")
		like := "%" + opts.Query + "%"
		args = append(args, like, like)
	}
	if opts.Since != "" {
		conditions = append(conditions, "updated_at >= ?")
		args = append(args, opts.Since)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, session_key"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var n int
		if err := rows.Scan(&r.SessionKey, &r.FilePath, &r.UpdatedAt, &r.Summary, &n); err != nil {
			return nil, err
		}
		r.Seq = -1
		r.Snippet = fmt.Sprintf("%d messages", n)
		results = append(results, r)
	}
	return results, rows.Err()
}
