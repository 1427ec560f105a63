package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/vectordb"
)

var (
	searchLimit        int
	searchCategory     string
	searchMunicipality string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "知識ベースを直接検索する",
	Long:  `Runs a raw similarity search against the documents namespace, without the answer pipeline. Useful to inspect what retrieval would see.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := buildEmbedder(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		vectors := openVectorStore(ctx, cfg, embedder)

		var filter *vectordb.SearchFilter
		if searchCategory != "" || searchMunicipality != "" {
			filter = &vectordb.SearchFilter{
				Category:     searchCategory,
				Municipality: searchMunicipality,
			}
		}

		results, err := vectors.Search(ctx, vectordb.NamespaceDocuments, args[0], searchLimit, filter)
		if err != nil {
			return err
		}

		fmt.Print(vectordb.FormatResults(results))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "filter by 大カテゴリ")
	searchCmd.Flags().StringVar(&searchMunicipality, "municipality", "", "filter by 市区町村")
	rootCmd.AddCommand(searchCmd)
}
