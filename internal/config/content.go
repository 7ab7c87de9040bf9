package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/bzik/backend/internal/model/persona"
)

// Content 是可选的 YAML 内容文件，覆盖或扩展内置的人设、知识库与结束语。
//
//	personas:
//	  Anna:
//	    prompt: "You are Anna..."
//	    backend_voice: "Microsoft Zira"
//	knowledge:
//	  "what is bzik": "Bzik is..."
//	exit_phrases: ["bye", "see you"]
type Content struct {
	Personas    map[string]persona.Override `yaml:"personas"`
	Knowledge   map[string]string           `yaml:"knowledge"`
	ExitPhrases []string                    `yaml:"exit_phrases"`
}

// LoadContent reads path. An empty path yields empty content.
func LoadContent(path string) (Content, error) {
	if path == "" {
		return Content{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("read content file: %w", err)
	}

	var content Content
	if err := yaml.Unmarshal(raw, &content); err != nil {
		return Content{}, fmt.Errorf("parse content file %s: %w", path, err)
	}

	for name := range content.Personas {
		if _, ok := persona.ParseID(name); !ok {
			return Content{}, fmt.Errorf("content file %s: unknown persona %q", path, name)
		}
	}
	return content, nil
}
