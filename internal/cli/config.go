package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/reoring/jsongraph"
	"github.com/reoring/jsongraph/i18n"
)

// Config is the on-disk CLI configuration.
//
//	[read]
//	syntax = "auto"
//	max_depth = 1000
//	duplicate_keys = "warn"
//
//	[write]
//	syntax = "json"
//	meta = "short"
//	indent = "  "
//
//	[aliases]
//	"example.com/shop.Order" = "Order"
//
// A top-level lang key ("en" or "ja") picks the language of check --explain.
type Config struct {
	Lang    string            `toml:"lang"`
	Read    ReadConfig        `toml:"read"`
	Write   WriteConfig       `toml:"write"`
	Aliases map[string]string `toml:"aliases"`
}

type ReadConfig struct {
	Syntax        string `toml:"syntax"`
	MaxDepth      int    `toml:"max_depth"`
	MaxBytes      int64  `toml:"max_bytes"`
	DuplicateKeys string `toml:"duplicate_keys"`
}

type WriteConfig struct {
	Syntax string `toml:"syntax"`
	Meta   string `toml:"meta"`
	Indent string `toml:"indent"`
}

// defaultConfigPath returns the per-user config file location.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jsongraph", "config.toml")
}

// loadConfig reads path. A missing default file is not an error; a missing
// explicit file is.
func loadConfig(path string) (Config, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ReadOpt projects the read section onto reader options.
func (c Config) ReadOpt() (jsongraph.ReadOpt, error) {
	syn, err := parseSyntax(c.Read.Syntax)
	if err != nil {
		return jsongraph.ReadOpt{}, err
	}
	dup, err := parseSeverity(c.Read.DuplicateKeys)
	if err != nil {
		return jsongraph.ReadOpt{}, err
	}
	return jsongraph.ReadOpt{
		Syntax:     syn,
		Aliases:    c.Aliases,
		MaxDepth:   c.Read.MaxDepth,
		MaxBytes:   c.Read.MaxBytes,
		Strictness: jsongraph.Strictness{OnDuplicateKey: dup},
	}, nil
}

// WriteOpt projects the write section onto writer options.
func (c Config) WriteOpt() (jsongraph.WriteOpt, error) {
	syn, err := parseSyntax(c.Write.Syntax)
	if err != nil {
		return jsongraph.WriteOpt{}, err
	}
	meta, err := parseMeta(c.Write.Meta)
	if err != nil {
		return jsongraph.WriteOpt{}, err
	}
	return jsongraph.WriteOpt{
		Syntax:    syn,
		MetaStyle: meta,
		Indent:    c.Write.Indent,
		Aliases:   c.Aliases,
	}, nil
}

// Translator returns the issue title dictionary for lang, or for the
// configured language when lang is empty.
func (c Config) Translator(lang string) (i18n.Translator, error) {
	if lang == "" {
		lang = c.Lang
	}
	if lang == "" {
		lang = "en"
	}
	if !i18n.Supported(lang) {
		return nil, fmt.Errorf("unsupported language %q (want en or ja)", lang)
	}
	return i18n.New(lang), nil
}

func parseSyntax(s string) (jsongraph.Syntax, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return jsongraph.SyntaxAuto, nil
	case "json":
		return jsongraph.SyntaxJSON, nil
	case "relaxed", "json5":
		return jsongraph.SyntaxRelaxed, nil
	case "yaml", "yml":
		return jsongraph.SyntaxYAML, nil
	}
	return 0, fmt.Errorf("unknown syntax %q (want auto, json, relaxed or yaml)", s)
}

func parseMeta(s string) (jsongraph.MetaStyle, error) {
	switch strings.ToLower(s) {
	case "", "long":
		return jsongraph.MetaLong, nil
	case "short":
		return jsongraph.MetaShort, nil
	}
	return 0, fmt.Errorf("unknown meta style %q (want long or short)", s)
}

func parseSeverity(s string) (jsongraph.Severity, error) {
	switch strings.ToLower(s) {
	case "", "ignore":
		return jsongraph.SeverityIgnore, nil
	case "warn":
		return jsongraph.SeverityWarn, nil
	case "error":
		return jsongraph.SeverityError, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want ignore, warn or error)", s)
}
