package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/chat"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "プロンプトテンプレートを管理する",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "テンプレート一覧を表示する",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := openTemplates()
		if err != nil {
			return err
		}
		for _, t := range ts.List() {
			fmt.Println(t.Name)
		}
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "テンプレートの内容を表示する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := openTemplates()
		if err != nil {
			return err
		}

		t, err := ts.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("名前: %s\n\nシステムプロンプト:\n%s\n\nレイアウト:\n%s\n", t.Name, t.SystemPrompt, t.Layout)
		return nil
	},
}

var (
	templateSystemFile string
	templateLayout     string
)

var templatesSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "テンプレートを作成・更新する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := openTemplates()
		if err != nil {
			return err
		}

		t := &chat.Template{Name: args[0]}
		if existing, err := ts.Get(args[0]); err == nil {
			t.SystemPrompt = existing.SystemPrompt
			t.Layout = existing.Layout
		} else {
			def := chat.DefaultTemplate()
			t.SystemPrompt = def.SystemPrompt
			t.Layout = def.Layout
		}

		if templateSystemFile != "" {
			data, err := os.ReadFile(templateSystemFile)
			if err != nil {
				return err
			}
			t.SystemPrompt = string(data)
		}
		if templateLayout != "" {
			t.Layout = templateLayout
		}

		if err := ts.Set(t); err != nil {
			return err
		}
		fmt.Printf("テンプレート %s を保存しました。\n", t.Name)
		return nil
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "テンプレートを削除する",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := openTemplates()
		if err != nil {
			return err
		}
		if err := ts.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("テンプレート %s を削除しました。\n", args[0])
		return nil
	},
}

func openTemplates() (*chat.TemplateStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return chat.NewTemplateStore(filepath.Join(cfg.DataDir, "prompt_templates.json"))
}

func init() {
	templatesSetCmd.Flags().StringVar(&templateSystemFile, "system-file", "", "file containing the system prompt")
	templatesSetCmd.Flags().StringVar(&templateLayout, "layout", "", "message layout with {system} {context} {history} {question} slots")
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesSetCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
	rootCmd.AddCommand(templatesCmd)
}
