// Package backup は全ユーザーデータの定期バックアップジョブを提供する。
// 実行ごとに全ユーザーのエクスポート文書を1つのJSONファイルへまとめて
// 書き出し、保持数を超えた古いファイルを削除する。
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitchlog/internal/model"
)

// filePrefix と fileSuffix はバックアップファイル名の形式を定める。
// タイムスタンプ部分が辞書順で時刻順になるため、保持数の判定は
// ファイル名のソートだけで行える。
const (
	filePrefix = "backup_"
	fileSuffix = ".json"
)

// Exporter は1ユーザー分のエクスポート文書を生成するインターフェース。
type Exporter interface {
	ExportFor(ctx context.Context, ownerID string) (model.Record, error)
}

// UserLister は登録済みユーザーの一覧を取得するインターフェース。
type UserLister interface {
	List(ctx context.Context) ([]model.Record, error)
}

// Recorder はバックアップの実行結果をメトリクスに記録するインターフェース。
type Recorder interface {
	RecordBackupSuccess(users int)
	RecordBackupFailure()
}

// Job は全ユーザーデータの定期バックアップジョブ。
// 定期実行のバッチジョブとして設計されており、書き出しは一時ファイル経由の
// リネームで行うため、途中で落ちても壊れたバックアップは残らない。
type Job struct {
	exporter Exporter
	users    UserLister
	logger   *slog.Logger
	recorder Recorder // nilの場合は記録しない

	Dir       string // バックアップファイルの出力先ディレクトリ
	Retention int    // 保持するファイル数（デフォルト: 7）

	now func() time.Time
}

// NewJob は新しいJobを生成する。デフォルトの保持数は7。
func NewJob(exporter Exporter, users UserLister, logger *slog.Logger, dir string) *Job {
	return &Job{
		exporter:  exporter,
		users:     users,
		logger:    logger,
		Dir:       dir,
		Retention: 7,
		now:       time.Now,
	}
}

// SetRecorder はメトリクス記録先を設定する。
func (j *Job) SetRecorder(r Recorder) {
	j.recorder = r
}

// Run は1回分のバックアップを実行する。
// 全ユーザーのエクスポート文書をユーザーIDをキーとする1つのJSONファイルに
// 書き出し、保持数を超えた古いファイルを削除する。ユーザーが存在しない
// 場合はファイルを作らずに成功として扱う。
func (j *Job) Run(ctx context.Context) error {
	start := j.now()

	users, err := j.users.List(ctx)
	if err != nil {
		return j.fail("ユーザー一覧の取得に失敗", err)
	}

	if len(users) == 0 {
		j.logger.Info("バックアップ対象のユーザーがいないため書き出しを省略しました")
		if j.recorder != nil {
			j.recorder.RecordBackupSuccess(0)
		}
		return nil
	}

	documents := make(map[string]model.Record, len(users))
	for _, user := range users {
		id := user.ID()
		if id == "" {
			continue
		}
		doc, err := j.exporter.ExportFor(ctx, id)
		if err != nil {
			return j.fail(fmt.Sprintf("ユーザー %s のエクスポートに失敗", id), err)
		}
		documents[id] = doc
	}

	path, err := j.write(documents)
	if err != nil {
		return j.fail("バックアップファイルの書き出しに失敗", err)
	}

	// 削除の失敗でバックアップ自体は失敗扱いにしない
	pruned, err := j.prune()
	if err != nil {
		j.logger.Warn("古いバックアップの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	if j.recorder != nil {
		j.recorder.RecordBackupSuccess(len(documents))
	}

	j.logger.Info("バックアップジョブが完了しました",
		slog.String("file", filepath.Base(path)),
		slog.Int("users", len(documents)),
		slog.Int("pruned", pruned),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行したあと、interval間隔でバックアップを実行し続ける。
// ctxのキャンセルで停止する。実行の失敗はログに残し、次回の実行は止めない。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("backup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("backup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// fail は失敗をログとメトリクスに記録してラップ済みエラーを返す。
func (j *Job) fail(msg string, err error) error {
	if j.recorder != nil {
		j.recorder.RecordBackupFailure()
	}
	j.logger.Error("バックアップジョブの実行に失敗しました",
		slog.String("reason", msg),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", msg, err)
}

// write は文書群を新しいバックアップファイルに書き出してパスを返す。
// ファイル名は <prefix><UTC時刻><ランダム8文字><suffix> 形式で、同一秒内の
// 実行でも衝突しない。
func (j *Job) write(documents map[string]model.Record) (string, error) {
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := filePrefix + j.now().UTC().Format("20060102T150405Z") + "_" + uuid.NewString()[:8] + fileSuffix
	path := filepath.Join(j.Dir, name)

	data, err := json.Marshal(documents)
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}

	return path, nil
}

// prune は保持数を超えた古いバックアップファイルを削除して削除数を返す。
func (j *Job) prune() (int, error) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}

	if len(names) <= j.Retention {
		return 0, nil
	}

	// タイムスタンプ部分が辞書順で時刻順になるため、名前順の先頭が最古
	sort.Strings(names)

	pruned := 0
	for _, name := range names[:len(names)-j.Retention] {
		if err := os.Remove(filepath.Join(j.Dir, name)); err != nil {
			return pruned, fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
		pruned++
	}

	return pruned, nil
}
