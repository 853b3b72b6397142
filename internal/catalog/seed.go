package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedBook はシードファイルの1エントリ。
type SeedBook struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
}

//go:embed default_seed.yaml
var defaultSeed []byte

// DefaultSeed は組み込みの初期蔵書リストを返す。
func DefaultSeed() []SeedBook {
	books, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("embedded seed is invalid: %v", err))
	}
	return books
}

// LoadSeedFile はYAML形式のシードファイルを読み込む。
// pathが空の場合は組み込みの初期蔵書リストを返す。
func LoadSeedFile(path string) ([]SeedBook, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed はYAMLのバイト列を蔵書リストにデコードする。
func ParseSeed(data []byte) ([]SeedBook, error) {
	var doc struct {
		Books []SeedBook `yaml:"books"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing seed YAML: %w", err)
	}
	return doc.Books, nil
}
