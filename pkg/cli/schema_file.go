package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"colbridge/internal/domain"
	"colbridge/internal/typemap"
)

// schemaFile is the YAML form of a storage schema:
//
//	table: events
//	columns:
//	  - name: EventId
//	    type: INT64
//	    nullable: false
//	  - name: Label
//	    type: VARCHAR(40)
type schemaFile struct {
	Table   string             `yaml:"table"`
	Columns []schemaFileColumn `yaml:"columns"`
}

type schemaFileColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable,omitempty"`
}

// loadSchemaFile reads a storage schema from a YAML file. Columns are
// nullable unless stated otherwise.
func loadSchemaFile(path string) (domain.StorageSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StorageSchema{}, fmt.Errorf("read schema file: %w", err)
	}
	return parseSchemaFile(data)
}

func parseSchemaFile(data []byte) (domain.StorageSchema, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.StorageSchema{}, fmt.Errorf("parse schema file: %w", err)
	}
	if f.Table == "" {
		return domain.StorageSchema{}, domain.ErrValidation("schema file has no table name")
	}

	schema := domain.StorageSchema{Table: f.Table, Columns: make([]domain.StorageColumn, 0, len(f.Columns))}
	for i, c := range f.Columns {
		if c.Name == "" {
			return domain.StorageSchema{}, domain.ErrValidation("column %d of %q has no name", i, f.Table)
		}
		t, err := typemap.ParseStorageType(c.Type)
		if err != nil {
			return domain.StorageSchema{}, fmt.Errorf("column %q: %w", c.Name, err)
		}
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		schema.Columns = append(schema.Columns, domain.StorageColumn{Name: c.Name, Type: t, Nullable: nullable})
	}
	return schema, nil
}
