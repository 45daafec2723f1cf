// internal/infra/persistence/ent/base.go
package ent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-sql-driver/mysql"
	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/photox-team/photox-app/pkg/domain/repository"
)

// execQuerier 同时由 *sql.DB 和 *sql.Tx 实现
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type base struct {
	db      execQuerier
	dialect string
}

func newBase(db execQuerier, dbType string) base {
	d := dialect.SQLite
	switch dbType {
	case "mysql":
		d = dialect.MySQL
	case "postgres":
		d = dialect.Postgres
	}
	return base{db: db, dialect: d}
}

func (b base) builder() *entsql.DialectBuilder {
	return entsql.Dialect(b.dialect)
}

func (b base) exec(ctx context.Context, q entsql.Querier) (sql.Result, error) {
	query, args := q.Query()
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, convertErr(err)
	}
	return res, nil
}

// execAffected 执行语句并返回受影响行数
func (b base) execAffected(ctx context.Context, q entsql.Querier) (int, error) {
	res, err := b.exec(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("获取受影响行数失败: %w", err)
	}
	return int(n), nil
}

func (b base) query(ctx context.Context, q entsql.Querier) (*sql.Rows, error) {
	query, args := q.Query()
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, convertErr(err)
	}
	return rows, nil
}

// insert 执行插入并返回自增ID，postgres 走 RETURNING
func (b base) insert(ctx context.Context, ib *entsql.InsertBuilder) (uint, error) {
	if b.dialect == dialect.Postgres {
		ib.Returning("id")
		query, args := ib.Query()
		var id int64
		if err := b.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, convertErr(err)
		}
		return uint(id), nil
	}
	res, err := b.exec(ctx, ib)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取自增ID失败: %w", err)
	}
	return uint(id), nil
}

// count 执行 COUNT 查询
func (b base) count(ctx context.Context, sel *entsql.Selector) (int64, error) {
	query, args := sel.Query()
	var n int64
	if err := b.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, convertErr(err)
	}
	return n, nil
}

// queryIDs 查询单列整数结果
func (b base) queryIDs(ctx context.Context, sel *entsql.Selector) ([]uint, error) {
	rows, err := b.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("扫描ID失败: %w", err)
		}
		ids = append(ids, uint(id))
	}
	return ids, rows.Err()
}

// convertErr 把驱动相关的错误转换为仓库层的哨兵错误
func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// SQLite 驱动的错误信息
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

// now 统一使用秒级 UTC 时间，保证各数据库排序一致
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// scanTime 兼容驱动返回 time.Time、文本或 unix 秒
type scanTime struct {
	Time time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *scanTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case int64:
		t.Time = time.Unix(v, 0).UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("无法将 %T 转换为时间", src)
	}
	return nil
}

func (t *scanTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("无法解析时间 '%s'", s)
}

func nullableUint(v sql.NullInt64) *uint {
	if !v.Valid {
		return nil
	}
	u := uint(v.Int64)
	return &u
}

func uintOrNil(v *uint) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("序列化字符串列表失败: %w", err)
	}
	return string(data), nil
}

func decodeStrings(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func columns(t *entsql.SelectTable, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = t.C(n)
	}
	return out
}
