package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/pitchlog/internal/database"
	"github.com/hitoshi/pitchlog/internal/model"
	"github.com/hitoshi/pitchlog/internal/schema"
)

// SQLiteStore はSQLiteを使用したレコードストア。
// 各コレクションは (key, doc) の2カラムテーブルに対応し、レコードは
// JSONドキュメントとして保存される。接続は遅延ハンドル経由で取得し、
// 初期化の失敗はStoreUnavailableとして呼び出し元に返す。
type SQLiteStore struct {
	lazy *database.Lazy
}

// NewSQLiteStore はSQLiteStoreを生成する。
func NewSQLiteStore(lazy *database.Lazy) *SQLiteStore {
	return &SQLiteStore{lazy: lazy}
}

// GetAll はコレクションの全レコードをキー順に返す。0件の場合は空スライスを返す。
func (s *SQLiteStore) GetAll(ctx context.Context, col schema.Collection) ([]model.Record, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	// テーブル名はschemaパッケージで定義された識別子のみを使用する
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %q ORDER BY key`, col.Name),
	)
	if err != nil {
		return nil, model.NewStoreIOError(col.Name, "getAll", err.Error())
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, model.NewStoreIOError(col.Name, "getAll", err.Error())
	}
	return records, nil
}

// GetByKey は主キーでレコードを取得する。見つからない場合はnilを返す。
func (s *SQLiteStore) GetByKey(ctx context.Context, col schema.Collection, key string) (model.Record, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	var doc string
	err = db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %q WHERE key = ?`, col.Name),
		key,
	).Scan(&doc)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStoreIOError(col.Name, "getByKey", err.Error())
	}

	rec, err := decodeRecord(doc)
	if err != nil {
		return nil, model.NewStoreIOError(col.Name, "getByKey", err.Error())
	}
	return rec, nil
}

// GetByIndex はインデックス付きフィールドの値でレコードを検索する。
// フィールド名はコレクション定義に列挙されたものに限り、それ以外は
// SQLに到達する前にValidationErrorとして拒否する。
// インデックスの照合結果を信用せず、フィールド値の完全一致で再検証してから返す。
func (s *SQLiteStore) GetByIndex(ctx context.Context, col schema.Collection, field, value string) ([]model.Record, error) {
	if !col.HasIndex(field) {
		return nil, model.NewValidationError(
			fmt.Sprintf("%sは%sのインデックス付きフィールドではありません", field, col.Name),
		)
	}

	db, err := s.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %q WHERE json_extract(doc, '$.%s') = ? ORDER BY key`, col.Name, field),
		value,
	)
	if err != nil {
		return nil, model.NewStoreIOError(col.Name, "getByIndex", err.Error())
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, model.NewStoreIOError(col.Name, "getByIndex", err.Error())
	}

	// 完全一致による再検証
	matched := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if rec.String(field) == value {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// Put はレコードを主キーで冪等に挿入・上書きする。
func (s *SQLiteStore) Put(ctx context.Context, col schema.Collection, rec model.Record) error {
	db, err := s.db()
	if err != nil {
		return err
	}

	key := rec.String(col.KeyPath)
	if key == "" {
		return model.NewValidationError(fmt.Sprintf("%sフィールドは必須です", col.KeyPath))
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return model.NewStoreIOError(col.Name, "put", err.Error())
	}

	_, err = db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %q (key, doc) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET doc = excluded.doc`, col.Name),
		key, string(doc),
	)
	if err != nil {
		return model.NewStoreIOError(col.Name, "put", err.Error())
	}

	return nil
}

// Delete は主キーでレコードを削除する。存在しないキーに対してもエラーを返さない。
func (s *SQLiteStore) Delete(ctx context.Context, col schema.Collection, key string) error {
	db, err := s.db()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %q WHERE key = ?`, col.Name),
		key,
	)
	if err != nil {
		return model.NewStoreIOError(col.Name, "delete", err.Error())
	}

	return nil
}

// db は遅延ハンドルから接続を取得する。初期化の失敗はStoreUnavailableに変換する。
func (s *SQLiteStore) db() (*sql.DB, error) {
	db, err := s.lazy.DB()
	if err != nil {
		return nil, model.NewStoreUnavailableError(err.Error())
	}
	return db, nil
}

// scanRecords は取得結果の全行をレコードにデコードする。
func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	records := make([]model.Record, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// decodeRecord はJSONドキュメントをレコードにデコードする。
func decodeRecord(doc string) (model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// compile-time interface check
var _ Store = (*SQLiteStore)(nil)
