package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lease-abstract/internal/model"
)

// LoadFieldsFromFile reads a JSON or YAML array of model.FieldDef from the
// given path and returns an indexed FieldRegistry.
func LoadFieldsFromFile(path string) (*model.FieldRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read fields file")
	}

	var fields []model.FieldDef
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fields)
	default:
		err = json.Unmarshal(data, &fields)
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal fields file")
	}

	for i, f := range fields {
		if f.Path == "" {
			return nil, eris.Errorf("registry: field %d has no path", i)
		}
		if f.Type == "" {
			fields[i].Type = model.TypeText
		}
	}

	return model.NewFieldRegistry(fields), nil
}

// Load returns the registry at path, or the built-in lease schema when path
// is empty.
func Load(path string) (*model.FieldRegistry, error) {
	if path == "" {
		return LeaseFields(), nil
	}
	return LoadFieldsFromFile(path)
}
