package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/berrythewa/clipvault/internal/types"

	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// sqliteDriverName is mattn/go-sqlite3 with a unicode aware lower() added,
// since the builtin one only folds ASCII.
const sqliteDriverName = "sqlite3_clipvault"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

type dialect struct {
	name          string
	driver        string
	migrateDriver string
	migrations    string
	numbered      bool
	// searchExpr is a format string taking the placeholder of the lowered needle
	searchExpr string
	lockRow    string
}

var (
	postgresDialect = &dialect{
		name:          BackendPostgres,
		driver:        "postgres",
		migrateDriver: "postgres",
		migrations:    "postgres",
		numbered:      true,
		searchExpr:    "strpos(lower(COALESCE(text_content, '')), %s) > 0",
		lockRow:       " FOR UPDATE",
	}
	sqliteDialect = &dialect{
		name:          BackendSQLite,
		driver:        sqliteDriverName,
		migrateDriver: "sqlite3",
		migrations:    "sqlite3",
		searchExpr:    "instr(unicode_lower(COALESCE(text_content, '')), %s) > 0",
	}
)

// args collects query arguments and hands out dialect placeholders
type args struct {
	d    *dialect
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	if a.d.numbered {
		return "$" + strconv.Itoa(len(a.vals))
	}
	return "?"
}

func (a *args) clone() *args {
	return &args{d: a.d, vals: append([]any(nil), a.vals...)}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLConfig holds configuration for the primary store
type SQLConfig struct {
	URL string
	Options
}

// SQLStorage is the primary store on top of database/sql
type SQLStorage struct {
	db     *sql.DB
	d      *dialect
	logger *zap.Logger
	now    func() time.Time
}

const itemColumns = "id, content_type, text_content, image_data, created_at, is_favorite"

// NewSQLStorage connects to the database named by cfg.URL and migrates it
func NewSQLStorage(ctx context.Context, cfg SQLConfig) (*SQLStorage, error) {
	opts := cfg.Options.withDefaults()

	d, dsn, err := parseDatabaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if err := migrateSchema(d, dsn, opts.Logger); err != nil {
		return nil, persistErr(d.name, "migrate schema", err)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, persistErr(d.name, "open database", err)
	}
	if d == sqliteDialect {
		// One writer at a time; BEGIN IMMEDIATE serializes the rest.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, persistErr(d.name, "connect", err)
	}

	opts.Logger.Debug("SQLStorage initialized", zap.String("backend", d.name))

	return &SQLStorage{
		db:     db,
		d:      d,
		logger: opts.Logger,
		now:    opts.Now,
	}, nil
}

// parseDatabaseURL maps a connection string to a dialect and driver DSN.
// postgres:// is accepted and rewritten to postgresql://.
func parseDatabaseURL(raw string) (*dialect, string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "postgres://"):
		return postgresDialect, "postgresql://" + strings.TrimPrefix(raw, "postgres://"), nil
	case strings.HasPrefix(raw, "postgresql://"):
		return postgresDialect, raw, nil
	case strings.HasPrefix(raw, "sqlite3://"):
		return sqliteDialect, sqliteDSN(strings.TrimPrefix(raw, "sqlite3://")), nil
	case strings.HasPrefix(raw, "sqlite://"):
		return sqliteDialect, sqliteDSN(strings.TrimPrefix(raw, "sqlite://")), nil
	case strings.HasPrefix(raw, "file:"):
		return sqliteDialect, sqliteDSN(raw), nil
	default:
		return nil, "", types.NewValidationError("database_url", "unsupported scheme in "+RedactURL(raw))
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// RedactURL hides the password of a connection string for logging
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

func (s *SQLStorage) Backend() string { return s.d.name }

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) args() *args {
	return &args{d: s.d}
}

func (s *SQLStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Insert persists a new item and returns its id
func (s *SQLStorage) Insert(ctx context.Context, draft *types.Draft) (int64, error) {
	if err := validateDraft(draft); err != nil {
		return 0, err
	}

	var text, image any
	if draft.ContentType == types.TypeImage {
		image = draft.Image
	} else {
		text = draft.Text
	}
	created := types.Timestamp(s.now()).UnixMicro()

	a := s.args()
	query := fmt.Sprintf(
		"INSERT INTO items (content_type, text_content, image_data, created_at, is_favorite) VALUES (%s, %s, %s, %s, %s) RETURNING id",
		a.add(string(draft.ContentType)), a.add(text), a.add(image), a.add(created), a.add(false))

	var id int64
	if err := s.db.QueryRowContext(ctx, query, a.vals...).Scan(&id); err != nil {
		return 0, persistErr(s.d.name, "insert item", err)
	}

	s.logger.Debug("Item inserted",
		zap.Int64("id", id),
		zap.String("type", string(draft.ContentType)),
		zap.String("backend", s.d.name))
	return id, nil
}

// Get returns the item with the given id
func (s *SQLStorage) Get(ctx context.Context, id int64) (*types.Item, error) {
	item, err := s.getItem(ctx, s.db, id)
	if err != nil {
		return nil, persistErr(s.d.name, "get item", err)
	}
	return item, nil
}

func (s *SQLStorage) getItem(ctx context.Context, q querier, id int64) (*types.Item, error) {
	a := s.args()
	row := q.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = "+a.add(id), a.vals...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tags, err := s.loadTags(ctx, q, id)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}

// UpdateFavorite sets the favorite flag
func (s *SQLStorage) UpdateFavorite(ctx context.Context, id int64, favorite bool) (*types.Item, error) {
	var item *types.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a := s.args()
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE items SET is_favorite = %s WHERE id = %s", a.add(favorite), a.add(id)),
			a.vals...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return types.ErrNotFound
		}
		item, err = s.getItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, persistErr(s.d.name, "update favorite", err)
	}
	return item, nil
}

// ToggleFavorite flips the favorite flag in one statement
func (s *SQLStorage) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	a := s.args()
	var state bool
	err := s.db.QueryRowContext(ctx,
		"UPDATE items SET is_favorite = NOT is_favorite WHERE id = "+a.add(id)+" RETURNING is_favorite",
		a.vals...).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return false, types.ErrNotFound
	}
	if err != nil {
		return false, persistErr(s.d.name, "toggle favorite", err)
	}
	return state, nil
}

// UpdateTags replaces the tag set of an item
func (s *SQLStorage) UpdateTags(ctx context.Context, id int64, tags []string) (*types.Item, error) {
	return s.ModifyTags(ctx, id, func([]string) []string { return tags })
}

// ModifyTags locks the item row and rewrites its tags from fn's result
func (s *SQLStorage) ModifyTags(ctx context.Context, id int64, fn func([]string) []string) (*types.Item, error) {
	var item *types.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a := s.args()
		var locked int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM items WHERE id = "+a.add(id)+s.d.lockRow, a.vals...).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}

		current, err := s.loadTags(ctx, tx, id)
		if err != nil {
			return err
		}
		next := uniqueTags(fn(current))

		a = s.args()
		if _, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = "+a.add(id), a.vals...); err != nil {
			return err
		}
		for _, tag := range next {
			a = s.args()
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO item_tags (item_id, tag) VALUES (%s, %s)", a.add(id), a.add(tag)),
				a.vals...); err != nil {
				return err
			}
		}

		item, err = s.getItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, persistErr(s.d.name, "update tags", err)
	}
	return item, nil
}

// Delete removes the item and its tags in one transaction
func (s *SQLStorage) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a := s.args()
		if _, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = "+a.add(id), a.vals...); err != nil {
			return err
		}
		a = s.args()
		res, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = "+a.add(id), a.vals...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, persistErr(s.d.name, "delete item", err)
	}
	return deleted, nil
}

// Clear removes every item, or every non-favorite item when keepFavorites is set
func (s *SQLStorage) Clear(ctx context.Context, keepFavorites bool) (int, error) {
	var count int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		tagsQuery := "DELETE FROM item_tags"
		itemsQuery := "DELETE FROM items"
		ta, ia := s.args(), s.args()
		if keepFavorites {
			tagsQuery += " WHERE item_id IN (SELECT id FROM items WHERE is_favorite = " + ta.add(false) + ")"
			itemsQuery += " WHERE is_favorite = " + ia.add(false)
		}
		if _, err := tx.ExecContext(ctx, tagsQuery, ta.vals...); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, itemsQuery, ia.vals...)
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, persistErr(s.d.name, "clear history", err)
	}

	s.logger.Info("History cleared",
		zap.Int64("deleted_items", count),
		zap.Bool("keep_favorites", keepFavorites))
	return int(count), nil
}

func (s *SQLStorage) whereClause(q types.Query, a *args) string {
	var conds []string
	switch q.Filter {
	case types.FilterText:
		conds = append(conds, "content_type = "+a.add(string(types.TypeText)))
	case types.FilterImage:
		conds = append(conds, "content_type = "+a.add(string(types.TypeImage)))
	case types.FilterFavorites:
		conds = append(conds, "is_favorite = "+a.add(true))
	}
	if q.Search != "" {
		conds = append(conds, "content_type = "+a.add(string(types.TypeText)))
		conds = append(conds, fmt.Sprintf(s.d.searchExpr, a.add(strings.ToLower(q.Search))))
	}
	if q.Tag != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM item_tags t WHERE t.item_id = items.id AND t.tag = "+a.add(q.Tag)+")")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// List counts the matching items and returns the requested page from the
// same transaction
func (s *SQLStorage) List(ctx context.Context, q types.Query) ([]*types.Item, int, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	var (
		items []*types.Item
		total int
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a := s.args()
		where := s.whereClause(q, a)

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM items"+where, a.vals...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}

		pa := a.clone()
		query := "SELECT " + itemColumns + " FROM items" + where +
			" ORDER BY created_at DESC, id DESC LIMIT " + pa.add(q.PageSize) + " OFFSET " + pa.add(q.Offset())
		rows, err := tx.QueryContext(ctx, query, pa.vals...)
		if err != nil {
			return fmt.Errorf("failed to query items: %w", err)
		}
		items, err = scanItems(rows)
		if err != nil {
			return err
		}
		return s.attachTags(ctx, tx, items)
	})
	if err != nil {
		return nil, 0, persistErr(s.d.name, "list items", err)
	}
	if items == nil {
		items = []*types.Item{}
	}
	return items, total, nil
}

// MostRecent returns the newest item or nil when the table is empty
func (s *SQLStorage) MostRecent(ctx context.Context) (*types.Item, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items ORDER BY created_at DESC, id DESC LIMIT 1")
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr(s.d.name, "get most recent item", err)
	}
	if item.Tags, err = s.loadTags(ctx, s.db, item.ID); err != nil {
		return nil, persistErr(s.d.name, "get most recent item", err)
	}
	return item, nil
}

// AllTags returns every distinct tag in use
func (s *SQLStorage) AllTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT tag FROM item_tags")
	if err != nil {
		return nil, persistErr(s.d.name, "list tags", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, persistErr(s.d.name, "list tags", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(s.d.name, "list tags", err)
	}
	return uniqueTags(tags), nil
}

func (s *SQLStorage) loadTags(ctx context.Context, q querier, id int64) ([]string, error) {
	a := s.args()
	rows, err := q.QueryContext(ctx, "SELECT tag FROM item_tags WHERE item_id = "+a.add(id), a.vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uniqueTags(tags), nil
}

func (s *SQLStorage) attachTags(ctx context.Context, q querier, items []*types.Item) error {
	if len(items) == 0 {
		return nil
	}

	a := s.args()
	byID := make(map[int64]*types.Item, len(items))
	placeholders := make([]string, 0, len(items))
	for _, item := range items {
		byID[item.ID] = item
		placeholders = append(placeholders, a.add(item.ID))
	}

	rows, err := q.QueryContext(ctx,
		"SELECT item_id, tag FROM item_tags WHERE item_id IN ("+strings.Join(placeholders, ", ")+")",
		a.vals...)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}
		if item, ok := byID[id]; ok {
			item.Tags = append(item.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, item := range items {
		item.Tags = uniqueTags(item.Tags)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*types.Item, error) {
	var (
		item    types.Item
		ctype   string
		text    sql.NullString
		image   []byte
		created int64
	)
	if err := row.Scan(&item.ID, &ctype, &text, &image, &created, &item.IsFavorite); err != nil {
		return nil, err
	}
	item.ContentType = types.ContentType(ctype)
	item.Text = text.String
	item.Image = image
	item.CreatedAt = time.UnixMicro(created).UTC()
	item.Tags = []string{}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*types.Item, error) {
	defer rows.Close()

	var items []*types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
