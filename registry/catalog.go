package registry

// CatalogEntry 是规划器可见的一个方法.
type CatalogEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema 是 JSON Schema 风格的对象形状.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`

	// Order keeps declaration order for prompt rendering.
	Order []string `json:"-"`
}

// PropertySchema 描述单个参数.
type PropertySchema struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Default     any       `json:"default,omitempty"`
}

// ToCapabilityCatalog projects descriptors into planner-facing entries.
// Unrecognized type tags degrade to string. Empty input yields an empty,
// non-nil catalog.
func ToCapabilityCatalog(ds []MethodDescriptor) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(ds))
	for _, d := range ds {
		schema := ParameterSchema{
			Type:       string(TypeObject),
			Properties: make(map[string]PropertySchema, len(d.Parameters)),
			Required:   []string{},
			Order:      make([]string, 0, len(d.Parameters)),
		}
		for _, p := range d.Parameters {
			prop := PropertySchema{
				Type:        NormalizeType(string(p.Type)),
				Description: p.Description,
			}
			if p.HasDefault() {
				prop.Default = p.Default
			}
			schema.Properties[p.Name] = prop
			schema.Order = append(schema.Order, p.Name)
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		entries = append(entries, CatalogEntry{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return entries
}

// IsRequired reports whether the named parameter is required.
func (s ParameterSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
