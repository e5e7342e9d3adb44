package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/methodflow/types"
)

// Manifest 是声明式方法文件的内容.
//
//	methods:
//	  - name: add
//	    description: 两数相加
//	    module_path: tools.math
//	    function_name: add
//	    return_type: integer
//	    parameters:
//	      - {name: a, type: integer, description: 加数, required: true}
type Manifest struct {
	Methods []MethodDescriptor `json:"methods" yaml:"methods"`
}

// LoadManifest reads a methods file. The format follows the extension:
// .json is JSON, .yaml and .yml are YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(err, types.ErrConfiguration, fmt.Sprintf("read methods file %s", path))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseManifestJSON(data)
	case ".yaml", ".yml":
		return ParseManifestYAML(data)
	default:
		return nil, types.Errorf(types.ErrConfiguration, "unsupported methods file format %q", filepath.Ext(path))
	}
}

// ParseManifestYAML parses a YAML methods document.
func ParseManifestYAML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, types.WrapError(err, types.ErrConfiguration, "parse methods yaml")
	}
	return m.check()
}

// ParseManifestJSON parses a JSON methods document.
func ParseManifestJSON(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, types.WrapError(err, types.ErrConfiguration, "parse methods json")
	}
	return m.check()
}

func (m *Manifest) check() (*Manifest, error) {
	if m.Methods == nil {
		return nil, types.NewError(types.ErrConfiguration, "methods file has no \"methods\" list")
	}
	for i := range m.Methods {
		if m.Methods[i].Parameters == nil {
			m.Methods[i].Parameters = []ParameterSpec{}
		}
	}
	return m, nil
}
