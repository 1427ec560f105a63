package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/chat"
)

var (
	askSessionID  string
	askPropertyID string
	askTemplate   string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "質問を一度だけ実行する",
	Long:  `Runs a single question through the answer pipeline and prints the result. Pass --session to continue an existing conversation.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID := askSessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		var prop *chat.Property
		if askPropertyID != "" {
			record, err := a.properties.Get(cmd.Context(), askPropertyID)
			if err != nil {
				return err
			}
			prop = &chat.Property{ID: record.ID, Content: record.Content}
		}

		result, err := a.pipeline.Answer(cmd.Context(), chat.Request{
			SessionID: sessionID,
			Question:  strings.Join(args, " "),
			Property:  prop,
			Template:  askTemplate,
		})
		if err != nil {
			return fmt.Errorf("%s", chat.UserMessage(err))
		}

		fmt.Println(result.Answer.Main)
		for _, d := range result.Answer.Details {
			fmt.Printf("\n【%s】\n%s\n", d.Label, d.Text)
		}
		if result.Degraded {
			fmt.Println("\n(注: 資料検索が利用できなかったため、参照なしで回答しています)")
		}
		if verbose {
			fmt.Printf("\nsession=%s intent=%s\n", sessionID, result.Intent)
		}

		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "session id to continue")
	askCmd.Flags().StringVar(&askPropertyID, "property", "", "property id for context")
	askCmd.Flags().StringVar(&askTemplate, "template", "", "prompt template name")
	rootCmd.AddCommand(askCmd)
}
