package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hitoshi/pitchlog/internal/schema"
)

// testDBPath はテスト用のデータベースファイルパスを返す。
func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pitchlog.db")
}

// openTestDB はマイグレーション適用済みかどうかに関わらずデータベースを開く。
func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// tableExists はテーブルの存在を確認する。
func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("テーブル存在確認クエリに失敗: %v", err)
	}
	return count > 0
}

// indexExists はインデックスの存在を確認する。
func indexExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("インデックス存在確認クエリに失敗: %v", err)
	}
	return count > 0
}

func TestRunMigrations_Up(t *testing.T) {
	path := testDBPath(t)

	if err := RunMigrations(path); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	db := openTestDB(t, path)

	for _, col := range schema.All() {
		t.Run("テーブル存在確認_"+col.Name, func(t *testing.T) {
			if !tableExists(t, db, col.Name) {
				t.Errorf("テーブル %q が存在しません", col.Name)
			}
		})
	}

	expectedIndexes := []string{
		"idx_matches_user_id",
		"idx_matches_date",
		"idx_physical_measurements_user_id",
		"idx_achievements_user_id",
		"idx_club_history_user_id",
		"idx_training_camps_user_id",
		"idx_physical_metrics_user_id",
		"idx_references_user_id",
		"idx_subscription_stripe_subscription_id",
	}
	for _, idx := range expectedIndexes {
		if !indexExists(t, db, idx) {
			t.Errorf("インデックス %q が存在しません", idx)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := testDBPath(t)

	// 1回目のマイグレーション
	if err := RunMigrations(path); err != nil {
		t.Fatalf("1回目のマイグレーション実行に失敗: %v", err)
	}

	// 2回目のマイグレーション（冪等性確認）
	if err := RunMigrations(path); err != nil {
		t.Fatalf("2回目のマイグレーション実行に失敗（冪等性の問題）: %v", err)
	}
}

func TestMigrations_UpAndDown(t *testing.T) {
	path := testDBPath(t)

	m, err := NewMigrator(path)
	if err != nil {
		t.Fatalf("Migrator生成に失敗: %v", err)
	}
	defer m.Close()

	// Up
	if err := m.Up(); err != nil {
		t.Fatalf("Up マイグレーション実行に失敗: %v", err)
	}

	db := openTestDB(t, path)

	for _, col := range schema.All() {
		if !tableExists(t, db, col.Name) {
			t.Errorf("Up後にテーブル %q が存在しません", col.Name)
		}
	}

	// Down
	if err := m.Down(); err != nil {
		t.Fatalf("Down マイグレーション実行に失敗: %v", err)
	}

	for _, col := range schema.All() {
		if tableExists(t, db, col.Name) {
			t.Errorf("Down後にテーブル %q が残存しています", col.Name)
		}
	}
}

// TestMigrateTo_PartialVersion は指定バージョンまでの部分適用を検証する。
// そのバージョン以前に導入されたテーブルのみが作成される。
func TestMigrateTo_PartialVersion(t *testing.T) {
	path := testDBPath(t)

	if err := MigrateTo(path, 2); err != nil {
		t.Fatalf("バージョン2へのマイグレーションに失敗: %v", err)
	}

	version, err := CurrentVersion(path)
	if err != nil {
		t.Fatalf("スキーマバージョン取得に失敗: %v", err)
	}
	if version != 2 {
		t.Errorf("スキーマバージョンが不正: got %d, want 2", version)
	}

	db := openTestDB(t, path)

	for _, col := range schema.All() {
		exists := tableExists(t, db, col.Name)
		if col.Since <= 2 && !exists {
			t.Errorf("バージョン%dで導入されたテーブル %q が存在しません", col.Since, col.Name)
		}
		if col.Since > 2 && exists {
			t.Errorf("バージョン%dで導入されるテーブル %q が先行して存在しています", col.Since, col.Name)
		}
	}
}

// TestMigrateTo_UpgradeFromPartial は部分適用済みデータベースの続きからの適用を検証する。
func TestMigrateTo_UpgradeFromPartial(t *testing.T) {
	path := testDBPath(t)

	if err := MigrateTo(path, 1); err != nil {
		t.Fatalf("バージョン1へのマイグレーションに失敗: %v", err)
	}
	if err := MigrateTo(path, schema.Version); err != nil {
		t.Fatalf("最新バージョンへのマイグレーションに失敗: %v", err)
	}

	db := openTestDB(t, path)

	for _, col := range schema.All() {
		if !tableExists(t, db, col.Name) {
			t.Errorf("テーブル %q が存在しません", col.Name)
		}
	}
}

// TestMigrateTo_DoesNotDowngrade は古いバージョンを要求しても
// スキーマが巻き戻らないことを検証する。
func TestMigrateTo_DoesNotDowngrade(t *testing.T) {
	path := testDBPath(t)

	if err := RunMigrations(path); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	if err := MigrateTo(path, 2); err != nil {
		t.Fatalf("古いバージョンの要求がエラーになりました: %v", err)
	}

	version, err := CurrentVersion(path)
	if err != nil {
		t.Fatalf("スキーマバージョン取得に失敗: %v", err)
	}
	if version != schema.Version {
		t.Errorf("スキーマバージョンが巻き戻っています: got %d, want %d", version, schema.Version)
	}

	db := openTestDB(t, path)
	if !tableExists(t, db, "subscription") {
		t.Error("バージョン4のテーブルが削除されています")
	}
}

// TestCurrentVersion_Fresh は未適用データベースでバージョン0が返ることを検証する。
func TestCurrentVersion_Fresh(t *testing.T) {
	version, err := CurrentVersion(testDBPath(t))
	if err != nil {
		t.Fatalf("スキーマバージョン取得に失敗: %v", err)
	}
	if version != 0 {
		t.Errorf("未適用のスキーマバージョンが不正: got %d, want 0", version)
	}
}

// TestReferencesTable_QuotedIdentifier はSQL予約語と同名のreferencesテーブルが
// 通常のテーブルとして読み書きできることを検証する。
func TestReferencesTable_QuotedIdentifier(t *testing.T) {
	path := testDBPath(t)

	if err := RunMigrations(path); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	db := openTestDB(t, path)

	if _, err := db.Exec(`INSERT INTO "references" (key, doc) VALUES ('ref_1', '{}')`); err != nil {
		t.Fatalf("referencesテーブルへの挿入に失敗: %v", err)
	}

	var doc string
	if err := db.QueryRow(`SELECT doc FROM "references" WHERE key = 'ref_1'`).Scan(&doc); err != nil {
		t.Fatalf("referencesテーブルの取得に失敗: %v", err)
	}
	if doc != "{}" {
		t.Errorf("doc = %q, want %q", doc, "{}")
	}
}
