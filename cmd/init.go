package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "対話形式で設定ファイルを作成する",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}

		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
