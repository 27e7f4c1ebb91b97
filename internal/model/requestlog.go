package model

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/fachebot/counsel-assist/internal/api"
	"github.com/fachebot/counsel-assist/internal/logger"
)

const requestLogTable = "request_logs"

var requestLogColumns = []string{
	"id", "op", "method", "path", "status", "duration_ms",
	"request_bytes", "response_bytes", "error", "started_at",
}

// RequestLog 一条请求日志，只保存诊断信息
type RequestLog struct {
	ID            int64
	Op            string
	Method        string
	Path          string
	Status        int
	Duration      time.Duration
	RequestBytes  int64
	ResponseBytes int64
	Error         string
	StartedAt     time.Time
}

type RequestLogModel struct {
	drv *entsql.Driver
	b   *entsql.DialectBuilder
}

func NewRequestLogModel(drv *entsql.Driver) *RequestLogModel {
	return &RequestLogModel{drv: drv, b: entsql.Dialect(dialect.SQLite)}
}

// Migrate 创建请求日志表和索引
func (m *RequestLogModel) Migrate(ctx context.Context) error {
	table := m.b.CreateTable(requestLogTable).IfNotExists().Columns(
		m.b.Column("id").Type("INTEGER").Attr("PRIMARY KEY AUTOINCREMENT"),
		m.b.Column("op").Type("TEXT").Attr("NOT NULL"),
		m.b.Column("method").Type("TEXT").Attr("NOT NULL"),
		m.b.Column("path").Type("TEXT").Attr("NOT NULL"),
		m.b.Column("status").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
		m.b.Column("duration_ms").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
		m.b.Column("request_bytes").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
		m.b.Column("response_bytes").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
		m.b.Column("error").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
		m.b.Column("started_at").Type("DATETIME").Attr("NOT NULL"),
	)
	index := m.b.CreateIndex("idx_request_logs_started_at").IfNotExists().
		Table(requestLogTable).
		Columns("started_at")

	for _, stmt := range []interface {
		Query() (string, []any)
	}{table, index} {
		query, args := stmt.Query()
		var res entsql.Result
		if err := m.drv.Exec(ctx, query, args, &res); err != nil {
			return fmt.Errorf("创建 %s 表失败: %w", requestLogTable, err)
		}
	}
	return nil
}

// Create 写入一条请求日志
func (m *RequestLogModel) Create(ctx context.Context, rec api.RequestRecord) (int64, error) {
	query, args := m.b.Insert(requestLogTable).
		Columns(requestLogColumns[1:]...).
		Values(
			string(rec.Op), rec.Method, rec.Path, rec.Status, rec.Duration.Milliseconds(),
			rec.RequestBytes, rec.ResponseBytes, rec.Error, rec.StartedAt.UTC(),
		).
		Query()

	var res entsql.Result
	if err := m.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Record 实现 api.Recorder，写入失败只记录日志
func (m *RequestLogModel) Record(rec api.RequestRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.Create(ctx, rec); err != nil {
		logger.Warnf("[RequestLog] 写入请求日志失败, op: %s, %v", rec.Op, err)
	}
}

// Recent 按时间倒序查询最近的请求日志
func (m *RequestLogModel) Recent(ctx context.Context, limit int) ([]*RequestLog, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args := m.b.Select(requestLogColumns...).
		From(m.b.Table(requestLogTable)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id")).
		Limit(limit).
		Query()

	var rows entsql.Rows
	if err := m.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		var (
			item       RequestLog
			durationMs int64
		)
		if err := rows.Scan(&item.ID, &item.Op, &item.Method, &item.Path, &item.Status, &durationMs,
			&item.RequestBytes, &item.ResponseBytes, &item.Error, &item.StartedAt); err != nil {
			return nil, err
		}
		item.Duration = time.Duration(durationMs) * time.Millisecond
		logs = append(logs, &item)
	}
	return logs, rows.Err()
}

// DeleteBefore 删除指定时间之前的请求日志，返回删除条数
func (m *RequestLogModel) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	query, args := m.b.Delete(requestLogTable).
		Where(entsql.LT("started_at", before.UTC())).
		Query()

	var res entsql.Result
	if err := m.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
