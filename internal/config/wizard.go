package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// DefaultConfigFile is the file written by the wizard and read by default.
const DefaultConfigFile = "regqa.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to regqa! Let's configure your document corpus.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
	cfg.Model, cfg.EmbeddingModel = DefaultModels(cfg.Provider)

	// 2. Model override.
	modelPrompt := promptui.Prompt{
		Label:   "Completion model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Documents directory.
	docsPrompt := promptui.Prompt{
		Label:   "Directory containing the PDF documents",
		Default: cfg.DocumentsDir,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("directory is required")
			}
			return nil
		},
	}
	if cfg.DocumentsDir, err = docsPrompt.Run(); err != nil {
		return nil, fmt.Errorf("documents dir: %w", err)
	}

	// 4. Chunking.
	size, err := promptInt("Chunk size (characters)", cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	overlap, err := promptInt("Chunk overlap (characters)", cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunk overlap: %w", err)
	}
	if err := ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	cfg.ChunkSize, cfg.ChunkOverlap = size, overlap

	// 5. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Exclude = append(append([]string{}, DefaultExcludes...), splitAndTrim(excludeStr)...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API keys.
	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		envVar := APIKeyEnvVar(p)
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running regqa ingest.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func promptInt(label string, def int) (int, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(def),
		Validate: func(s string) error {
			_, err := strconv.Atoi(strings.TrimSpace(s))
			return err
		},
	}
	s, err := p.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. Anthropic has no embeddings API, so it falls back to OpenAI.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
