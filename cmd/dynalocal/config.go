package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dynalocal/table"
)

// Config holds configuration for the dynalocal server.
// Loaded from dynalocal.yaml if present.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `yaml:"addr"`

	// Tables are created at startup, so clients can skip CreateTable.
	Tables []TableConfig `yaml:"tables"`
}

// TableConfig declares one table to seed at startup.
type TableConfig struct {
	Name          string        `yaml:"name"`
	HashKey       KeyConfig     `yaml:"hashKey"`
	RangeKey      *KeyConfig    `yaml:"rangeKey"`
	GlobalIndexes []IndexConfig `yaml:"globalIndexes"`
	LocalIndexes  []IndexConfig `yaml:"localIndexes"`
}

// KeyConfig is a key attribute: its name and scalar type (S, N or B).
type KeyConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// IndexConfig declares a secondary index key schema.
type IndexConfig struct {
	Name     string     `yaml:"name"`
	HashKey  KeyConfig  `yaml:"hashKey"`
	RangeKey *KeyConfig `yaml:"rangeKey"`
}

func (k KeyConfig) keyDef() table.KeyDef {
	return table.KeyDef{Name: k.Name, Kind: table.KeyKind(strings.ToUpper(k.Type))}
}

func keySchema(hash KeyConfig, rang *KeyConfig) table.PrimaryKeyDefinition {
	keys := table.PrimaryKeyDefinition{PartitionKey: hash.keyDef()}
	if rang != nil {
		keys.SortKey = rang.keyDef()
	}
	return keys
}

// Definition converts the config entry into a validated table definition.
func (t TableConfig) Definition() (table.TableDefinition, error) {
	def := table.TableDefinition{
		Name:                 t.Name,
		KeyDefinitions:       keySchema(t.HashKey, t.RangeKey),
		AttributeDefinitions: map[string]table.KeyKind{},
	}
	declare := func(keys table.PrimaryKeyDefinition) {
		def.AttributeDefinitions[keys.PartitionKey.Name] = keys.PartitionKey.Kind
		if keys.HasSortKey() {
			def.AttributeDefinitions[keys.SortKey.Name] = keys.SortKey.Kind
		}
	}
	declare(def.KeyDefinitions)
	for _, gsi := range t.GlobalIndexes {
		keys := keySchema(gsi.HashKey, gsi.RangeKey)
		declare(keys)
		def.GSIs = append(def.GSIs, table.GSIDefinition{Name: gsi.Name, KeyDefinitions: keys})
	}
	for _, lsi := range t.LocalIndexes {
		keys := keySchema(lsi.HashKey, lsi.RangeKey)
		declare(keys)
		def.LSIs = append(def.LSIs, table.LSIDefinition{Name: lsi.Name, KeyDefinitions: keys})
	}
	if err := def.Validate(); err != nil {
		return table.TableDefinition{}, fmt.Errorf("table %q: %w", t.Name, err)
	}
	return def, nil
}

// LoadConfig reads the config at path, or searches for dynalocal.yaml
// walking up from the current directory when path is empty. Returns an
// empty config if no file is found.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// findConfigFile searches for dynalocal.yaml walking up from current directory.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, "dynalocal.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
