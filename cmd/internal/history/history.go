// Package history хранит локальный список недавних пакетов. Это
// вспомогательный best-effort список: основная правда о пакете живёт
// на расчётном сервисе. Хранилище передаётся потребителям явно,
// ядро (draft/batchpoll) от него не зависит.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zhukovvlad/peni-go/cmd/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS recent_batches (
    id          TEXT PRIMARY KEY,
    batch_id    TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMP NOT NULL,
    total_items INTEGER NOT NULL,
    status      TEXT NOT NULL,
    note        TEXT
);
CREATE INDEX IF NOT EXISTS idx_recent_batches_created_at
    ON recent_batches (created_at DESC);
`

// Entry запись о недавнем пакете.
type Entry struct {
	ID         string    `json:"id"`
	BatchID    string    `json:"batch_id"`
	CreatedAt  time.Time `json:"created_at"`
	TotalItems int       `json:"total_items"`
	Status     string    `json:"status"`
	Note       *string   `json:"note,omitempty"`
}

// Store обертка для работы с базой истории.
type Store struct {
	conn *sql.DB
}

// Open открывает (и при необходимости создает) базу истории.
// Путь ":memory:" даёт чистую базу в памяти - удобно в тестах.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть базу истории: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("не удалось подключиться к базе истории: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("не удалось создать схему истории: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Record добавляет пакет в историю. Повторная запись того же batch_id
// обновляет статус и число файлов.
func (s *Store) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn.Exec(`
        INSERT INTO recent_batches (id, batch_id, created_at, total_items, status, note)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(batch_id) DO UPDATE SET
            total_items = excluded.total_items,
            status      = excluded.status`,
		e.ID, e.BatchID, e.CreatedAt, e.TotalItems, e.Status, util.NullableString(e.Note),
	)
	if err != nil {
		return fmt.Errorf("не удалось записать пакет %s в историю: %w", e.BatchID, err)
	}
	return nil
}

// UpdateStatus обновляет последний известный статус пакета.
// Отсутствующий batch_id не считается ошибкой: история best-effort.
func (s *Store) UpdateStatus(batchID, status string) error {
	_, err := s.conn.Exec(
		`UPDATE recent_batches SET status = ? WHERE batch_id = ?`,
		status, batchID,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус пакета %s: %w", batchID, err)
	}
	return nil
}

// Recent возвращает недавние пакеты, новые первыми.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(`
        SELECT id, batch_id, created_at, total_items, status, note
        FROM recent_batches
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать историю: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.BatchID, &e.CreatedAt, &e.TotalItems, &e.Status, &note); err != nil {
			return nil, fmt.Errorf("не удалось прочитать запись истории: %w", err)
		}
		if note.Valid {
			e.Note = &note.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
