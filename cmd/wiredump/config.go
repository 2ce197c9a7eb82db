package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/fracwire"
	"github.com/rawbytedev/fracwire/pkg/frame"
)

type fileConfig struct {
	Encoding     string `toml:"encoding" yaml:"encoding"`
	Frame        bool   `toml:"frame" yaml:"frame"`
	Codec        string `toml:"codec" yaml:"codec"`
	MaxFrameSize int    `toml:"max_frame_size" yaml:"max_frame_size"`
	Hex          bool   `toml:"hex" yaml:"hex"`
}

// settings is the resolved configuration of a run.
type settings struct {
	enc   fracwire.Encoding
	frame bool
	codec frame.Codec
	limit int
	hex   bool
}

func defaultSettings() settings {
	return settings{enc: fracwire.Default, limit: frame.DefaultLimit}
}

func loadFileConfig(path string) (fileConfig, error) {
	var raw fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return raw, fmt.Errorf("config load failed (%s): unknown format %q", path, ext)
	}
	if err != nil {
		return raw, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return raw, nil
}

func (c fileConfig) apply(s *settings) error {
	if v := strings.TrimSpace(c.Encoding); v != "" {
		enc, err := fracwire.ParseEncoding(v)
		if err != nil {
			return fmt.Errorf("parse encoding: %w", err)
		}
		s.enc = enc
	}
	if v := strings.TrimSpace(c.Codec); v != "" {
		codec, err := frame.ParseCodec(v)
		if err != nil {
			return fmt.Errorf("parse codec: %w", err)
		}
		s.codec = codec
	}
	if c.MaxFrameSize < 0 {
		return fmt.Errorf("max_frame_size must not be negative, got %d", c.MaxFrameSize)
	}
	if c.MaxFrameSize > 0 {
		s.limit = c.MaxFrameSize
	}
	s.frame = s.frame || c.Frame
	s.hex = s.hex || c.Hex
	return nil
}
