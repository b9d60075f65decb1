package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lysyi3m/legal-updates/app/updates"
)

const updateColumns = `id, title, slug, published_at, jurisdiction, tags, summary, summary_tr,
	source_name, source_url, source_urls, status, update_hash, created_at, updated_at`

type updateRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Slug         string         `db:"slug"`
	PublishedAt  time.Time      `db:"published_at"`
	Jurisdiction string         `db:"jurisdiction"`
	Tags         pq.StringArray `db:"tags"`
	Summary      string         `db:"summary"`
	SummaryTr    sql.NullString `db:"summary_tr"`
	SourceName   string         `db:"source_name"`
	SourceURL    string         `db:"source_url"`
	SourceURLs   pq.StringArray `db:"source_urls"`
	Status       string         `db:"status"`
	Hash         string         `db:"update_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r updateRow) toModel() updates.LegalUpdate {
	u := updates.LegalUpdate{
		ID:           r.ID,
		Title:        r.Title,
		Slug:         r.Slug,
		PublishedAt:  r.PublishedAt.UTC(),
		Jurisdiction: updates.Jurisdiction(r.Jurisdiction),
		Tags:         []string(r.Tags),
		Summary:      r.Summary,
		SourceName:   r.SourceName,
		SourceURL:    r.SourceURL,
		SourceURLs:   []string(r.SourceURLs),
		Status:       updates.Status(r.Status),
		Hash:         r.Hash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if u.Tags == nil {
		u.Tags = []string{}
	}
	if u.SourceURLs == nil {
		u.SourceURLs = []string{}
	}
	if r.SummaryTr.Valid {
		summaryTr := r.SummaryTr.String
		u.SummaryTr = &summaryTr
	}
	return u
}

// PostgresStore is the hosted backend on the legal_updates table.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresStore) Backend() string { return "postgres" }

func (s *PostgresStore) InsertIfNew(ctx context.Context, in updates.Input) (updates.LegalUpdate, bool, error) {
	in, err := validateInput(in)
	if err != nil {
		return updates.LegalUpdate{}, false, err
	}
	hash := in.Hash()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return updates.LegalUpdate{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getByHash(ctx, tx, hash)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return updates.LegalUpdate{}, false, err
	}

	slug, err := updates.UniqueSlug(in.Slug, func(candidate string) (bool, error) {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM legal_updates WHERE slug = $1)`, candidate); err != nil {
			return false, fmt.Errorf("failed to check slug: %w", err)
		}
		return exists, nil
	})
	if err != nil {
		return updates.LegalUpdate{}, false, err
	}

	record := updates.NewRecord(uuid.NewString(), in, s.now())
	record.Slug = slug

	var summaryTr sql.NullString
	if record.SummaryTr != nil {
		summaryTr = sql.NullString{String: *record.SummaryTr, Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO legal_updates (`+updateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (update_hash) DO NOTHING
	`, record.ID, record.Title, record.Slug, record.PublishedAt, string(record.Jurisdiction),
		pq.Array(record.Tags), record.Summary, summaryTr, record.SourceName, record.SourceURL,
		pq.Array(record.SourceURLs), string(record.Status), record.Hash, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return updates.LegalUpdate{}, false, fmt.Errorf("failed to insert update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return updates.LegalUpdate{}, false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		// Lost a race with a concurrent run inserting the same hash.
		existing, err := getByHash(ctx, tx, hash)
		if err != nil {
			return updates.LegalUpdate{}, false, err
		}
		return existing, false, nil
	}

	if err := tx.Commit(); err != nil {
		return updates.LegalUpdate{}, false, fmt.Errorf("failed to commit insert: %w", err)
	}
	return record, true, nil
}

func getByHash(ctx context.Context, q sqlx.QueryerContext, hash string) (updates.LegalUpdate, error) {
	var row updateRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+updateColumns+` FROM legal_updates WHERE update_hash = $1`, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return updates.LegalUpdate{}, ErrNotFound
	}
	if err != nil {
		return updates.LegalUpdate{}, fmt.Errorf("failed to look up update hash: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) List(ctx context.Context, filters updates.UpdateFilters) ([]updates.LegalUpdate, error) {
	query, args := buildListQuery(filters)

	var rows []updateRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}

	result := make([]updates.LegalUpdate, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func buildListQuery(filters updates.UpdateFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, strings.ReplaceAll(condition, "?", "$"+strconv.Itoa(len(args))))
	}

	if filters.Jurisdiction != "" {
		add("jurisdiction = ?", string(filters.Jurisdiction))
	}
	if filters.Status != "" {
		add("status = ?", string(filters.Status))
	}
	if filters.Tag != "" {
		add("? = ANY(tags)", strings.ToLower(filters.Tag))
	}
	if filters.Search != "" {
		add("(title ILIKE ? OR summary ILIKE ?)", "%"+escapeLike(filters.Search)+"%")
	}
	if filters.From != nil {
		add("published_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		add("published_at <= ?", filters.To.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT " + updateColumns + " FROM legal_updates")
	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY published_at DESC, created_at DESC")
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (updates.LegalUpdate, error) {
	var row updateRow
	err := s.db.GetContext(ctx, &row, `SELECT `+updateColumns+` FROM legal_updates WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return updates.LegalUpdate{}, ErrNotFound
	}
	if err != nil {
		return updates.LegalUpdate{}, fmt.Errorf("failed to get update by slug: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status updates.Status) (updates.LegalUpdate, error) {
	if !status.Valid() {
		return updates.LegalUpdate{}, fmt.Errorf("%w: %q", updates.ErrInvalidStatus, status)
	}
	if _, err := uuid.Parse(id); err != nil {
		return updates.LegalUpdate{}, ErrNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return updates.LegalUpdate{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT status FROM legal_updates WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return updates.LegalUpdate{}, ErrNotFound
	}
	if err != nil {
		return updates.LegalUpdate{}, fmt.Errorf("failed to read update status: %w", err)
	}

	if !updates.CanTransition(updates.Status(current), status) {
		return updates.LegalUpdate{}, fmt.Errorf("%w: cannot move from %s to %s", updates.ErrInvalidStatus, current, status)
	}

	var row updateRow
	err = tx.GetContext(ctx, &row, `
		UPDATE legal_updates SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+updateColumns, string(status), s.now(), id)
	if err != nil {
		return updates.LegalUpdate{}, fmt.Errorf("failed to update status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return updates.LegalUpdate{}, fmt.Errorf("failed to commit status update: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) Hashes(ctx context.Context) (map[string]struct{}, error) {
	var hashes []string
	if err := s.db.SelectContext(ctx, &hashes, `SELECT update_hash FROM legal_updates`); err != nil {
		return nil, fmt.Errorf("failed to load update hashes: %w", err)
	}

	set := make(map[string]struct{}, len(hashes))
	for _, hash := range hashes {
		set[hash] = struct{}{}
	}
	return set, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM legal_updates`); err != nil {
		return 0, fmt.Errorf("failed to get update count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
