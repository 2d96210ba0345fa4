package services

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/paytask/backend/internal/store"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// ErrValidation can be used with errors.Is to detect schema validation failures.
var ErrValidation = errors.New("validation failed")

// recordAliases maps storage keys that share a record shape with another key.
var recordAliases = map[string]string{
	store.KeyCurrentUser: store.KeyUsers,
}

// Validator checks persisted records against one JSON schema per storage key.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded record schemas.
func NewValidator() (*Validator, error) {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		return nil, err
	}
	return NewValidatorFS(sub)
}

// NewValidatorFS compiles every *.json file in fsys; the file name without
// extension is the storage key it validates.
func NewValidatorFS(fsys fs.FS) (*Validator, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		id := "https://paytask.dev/schemas/" + key + ".json"
		schemas[key], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", key, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

var _ store.RecordValidator = (*Validator)(nil)

// ValidateRecord returns an error wrapping ErrValidation if record does not match the key's schema.
// Keys without a schema are accepted.
func (v *Validator) ValidateRecord(key string, record []byte) error {
	if alias, ok := recordAliases[key]; ok {
		key = alias
	}
	schema, ok := v.schemas[key]
	if !ok {
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(record, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
