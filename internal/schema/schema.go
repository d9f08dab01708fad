// Package schema は永続化コレクションの定義を提供する。
// コレクションの集合はコンパイル時に固定され、未定義コレクションへの
// アクセスは型レベルで排除される。
package schema

// Version は現在のスキーマバージョン。
// 新しいコレクションを追加する際はマイグレーションとともに加算する。
const Version = 4

// Collection は1つの永続化コレクションの定義を表す。
type Collection struct {
	Name         string   // コレクション名（テーブル名と一致する）
	KeyPath      string   // 主キーとなるフィールド名
	OwnerIndexed bool     // user_idフィールドにインデックスを持つか
	Indexes      []string // インデックスを持つフィールド名。索引検索はこの一覧に限られる
	IDPrefix     string   // 採番時のIDプレフィックス。空の場合は自動採番しない
	Singleton    bool     // ユーザーごとに1件のみ保持するか
	Timestamped  bool     // 保存時にcreated_at・updated_atを自動維持するか
	Since        int      // このコレクションが導入されたスキーマバージョン
}

// HasIndex はフィールドがインデックス付きとして定義されているかを返す。
func (c Collection) HasIndex(field string) bool {
	for _, f := range c.Indexes {
		if f == field {
			return true
		}
	}
	return false
}

// 定義済みコレクション
var (
	// Matches は試合記録を保持する。
	Matches = Collection{Name: "matches", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id", "date"}, IDPrefix: "match_", Since: 1}
	// Settings はユーザーごとのアプリ設定を保持する。user_idをキーとする単一レコード。
	Settings = Collection{Name: "settings", KeyPath: "user_id", Singleton: true, Since: 1}
	// PhysicalMeasurements は身体測定記録を保持する。
	PhysicalMeasurements = Collection{Name: "physical_measurements", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id"}, IDPrefix: "pm_", Since: 2}
	// Achievements は実績記録を保持する。
	Achievements = Collection{Name: "achievements", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id"}, IDPrefix: "ach_", Since: 2}
	// ClubHistory は所属クラブ履歴を保持する。
	ClubHistory = Collection{Name: "club_history", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id"}, IDPrefix: "club_", Since: 2}
	// TrainingCamps は遠征・合宿記録を保持する。
	TrainingCamps = Collection{Name: "training_camps", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id"}, IDPrefix: "camp_", Since: 2}
	// PhysicalMetrics はフィジカル測定値を保持する。
	PhysicalMetrics = Collection{Name: "physical_metrics", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id"}, IDPrefix: "metric_", Since: 3}
	// References は参照資料を保持する。保存時刻を自動維持する唯一のシーケンス。
	References = Collection{Name: "references", KeyPath: "id", OwnerIndexed: true, Indexes: []string{"user_id"}, IDPrefix: "ref_", Timestamped: true, Since: 3}
	// Users はユーザーオブジェクトを保持する。キーはユーザー自身のid。
	Users = Collection{Name: "users", KeyPath: "id", Since: 4}
	// Subscription はユーザーごとの購読状態を保持する。user_idをキーとする単一レコード。
	Subscription = Collection{Name: "subscription", KeyPath: "user_id", Singleton: true, Indexes: []string{"stripe_subscription_id"}, Since: 4}
)

// all はスキーマバージョン順の全コレクション。
var all = []Collection{
	Matches,
	Settings,
	PhysicalMeasurements,
	Achievements,
	ClubHistory,
	TrainingCamps,
	PhysicalMetrics,
	References,
	Users,
	Subscription,
}

// All は全コレクションをスキーマバージョン順に返す。
func All() []Collection {
	out := make([]Collection, len(all))
	copy(out, all)
	return out
}

// Sequences はユーザーごとに複数レコードを保持するコレクションを返す。
// エクスポート・インポートおよび統計の対象となる。
func Sequences() []Collection {
	var out []Collection
	for _, c := range all {
		if c.OwnerIndexed {
			out = append(out, c)
		}
	}
	return out
}

// ByName は名前からコレクション定義を検索する。
// 未定義の名前に対しては2番目の戻り値がfalseになる。
func ByName(name string) (Collection, bool) {
	for _, c := range all {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}
