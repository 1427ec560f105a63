package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/ingest"
)

var (
	ingestCategory     string
	ingestSubCategory  string
	ingestMunicipality string
	ingestAsProperty   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [patterns...]",
	Short: "文書を知識ベースに取り込む",
	Long: `Ingests local text files into the knowledge base. Patterns support
doublestar globs (docs/**/*.txt). Document files are chunked by
sentence; with --property each file becomes one property record whose
first line is the name and second line the location.`,
	Args: cobra.MinimumNArgs(1),
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
		ing := ingest.New(vectors, cfg.Ingest, ingest.NewBarReporter())

		var result *ingest.Result
		if ingestAsProperty {
			result, err = ing.IngestProperties(ctx, args)
		} else {
			result, err = ing.IngestDocuments(ctx, args, ingest.DocumentMeta{
				Category:     ingestCategory,
				SubCategory:  ingestSubCategory,
				Municipality: ingestMunicipality,
			})
		}
		if err != nil {
			return err
		}

		if err := vectors.Persist(ctx, cfg.DataDir); err != nil {
			return fmt.Errorf("persisting vector store: %w", err)
		}

		fmt.Printf("%dファイル、%dチャンクを取り込みました。\n", result.Files, result.Chunks)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "", "大カテゴリ (e.g. 教育・子育て)")
	ingestCmd.Flags().StringVar(&ingestSubCategory, "sub-category", "", "中カテゴリ (e.g. 小学校・中学校)")
	ingestCmd.Flags().StringVar(&ingestMunicipality, "municipality", "", "市区町村 (e.g. 川越市)")
	ingestCmd.Flags().BoolVar(&ingestAsProperty, "property", false, "ingest each file as a property record")
	rootCmd.AddCommand(ingestCmd)
}
