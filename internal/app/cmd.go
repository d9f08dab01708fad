package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe は互換APIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はストアのマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandExport は指定ユーザーの全データをファイルへ書き出すことを示す。
	CommandExport Command = "export"
	// CommandImport はエクスポート文書を指定ユーザーへ取り込むことを示す。
	CommandImport Command = "import"
	// CommandBackup は全ユーザーのバックアップを1回実行することを示す。
	CommandBackup Command = "backup"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "export":
		return CommandExport
	case "import":
		return CommandImport
	case "backup":
		return CommandBackup
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
