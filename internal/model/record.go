// Package model はドメインモデルを定義する。
package model

// Record は永続化対象のレコードを表す。
// フィールド構成はコレクションごとに異なるため、スキーマレスなマップとして扱い、
// ストア層はJSONドキュメントとしてそのまま保存する。
type Record map[string]any

// ID はidフィールドの値を文字列として返す。未設定の場合は空文字列を返す。
func (r Record) ID() string {
	return r.String("id")
}

// OwnerID はuser_idフィールドの値を文字列として返す。未設定の場合は空文字列を返す。
func (r Record) OwnerID() string {
	return r.String("user_id")
}

// String はキーの値を文字列として返す。
// キーが存在しない場合や値が文字列でない場合は空文字列を返す。
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Int はキーの値を整数として返す。
// JSONデコード後のレコードでは数値はfloat64になるため、数値型を吸収して変換する。
// キーが存在しない場合や数値でない場合は0を返す。
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool はキーの値を真偽値として返す。キーが存在しない場合や真偽値でない場合はfalseを返す。
func (r Record) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// Clone はレコードの浅いコピーを返す。nilレコードに対してはnilを返す。
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
