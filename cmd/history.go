package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/db"
	"github.com/ymatsuda/machichat/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "会話履歴を管理する",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "セッション一覧を表示する",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		ids, err := st.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("セッションはありません。")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "セッション履歴をCSVに書き出す",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		sess, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return store.ExportCSV(os.Stdout, sess)
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import [session-id] [file.csv]",
	Short: "CSVファイルから履歴を取り込む",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := st.ImportCSV(cmd.Context(), f, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d件の履歴を取り込みました。\n", n)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "セッション履歴を削除する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := st.Clear(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("セッション %s の履歴を削除しました。\n", args[0])
		return nil
	},
}

// openStore opens just the conversation store, without the rest of the
// pipeline. History commands need no embedder or provider.
func openStore() (*store.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "machichat.db"))
	if err != nil {
		return nil, nil, err
	}

	return store.New(database), func() { database.Close() }, nil
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
