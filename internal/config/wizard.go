package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("machichatの初期設定を行います。")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "応答生成プロバイダを選択",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model name.
	defaultModel := "gpt-4o-mini"
	if cfg.Provider == ProviderOllama {
		defaultModel = "llama3.1"
	}
	modelPrompt := promptui.Prompt{
		Label:   "モデル名",
		Default: defaultModel,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model input: %w", err)
	}
	cfg.Model = model

	// 3. Data directory.
	dirPrompt := promptui.Prompt{
		Label:   "データディレクトリ",
		Default: cfg.DataDir,
	}
	dataDir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir input: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:   "サーバーポート",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			if _, err := strconv.Atoi(s); err != nil {
				return fmt.Errorf("数値を入力してください")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port input: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Printf("\n設定を %s に保存しました。\n", path)
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("APIキーは環境変数 %s か .env ファイルで指定してください。\n", envVar)
	}

	return cfg, nil
}
