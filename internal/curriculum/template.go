package curriculum

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Module is one entry of the standard course template. List modules expand
// to several generated sections; single modules expand to exactly one.
type Module struct {
	Key         string `yaml:"key"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	IsList      bool   `yaml:"is_list"`
	Type        string `yaml:"type"`
}

// Template is the ordered module list the skeleton generator must follow.
type Template struct {
	Modules []Module `yaml:"modules"`
}

// DisplayName derives the human-readable name the prompt shows for a module:
// list modules use the first sentence of their description, single modules
// their title, with a title-cased key as the last resort.
func (m Module) DisplayName() string {
	if m.IsList {
		desc := strings.TrimSpace(m.Description)
		if desc != "" {
			if idx := strings.Index(desc, "."); idx >= 0 {
				return desc[:idx]
			}
			return desc
		}
	} else if strings.TrimSpace(m.Title) != "" {
		return m.Title
	}
	words := strings.Split(strings.ReplaceAll(m.Key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (t Template) Validate() error {
	if len(t.Modules) == 0 {
		return fmt.Errorf("curriculum: template has no modules")
	}
	seen := make(map[string]bool, len(t.Modules))
	for i, m := range t.Modules {
		key := strings.TrimSpace(m.Key)
		if key == "" {
			return fmt.Errorf("curriculum: module %d has no key", i)
		}
		if seen[key] {
			return fmt.Errorf("curriculum: duplicate module key %q", key)
		}
		seen[key] = true
	}
	return nil
}

// Load reads a template from a YAML file, falling back to the built-in
// default when path is empty.
func Load(path string) (Template, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("curriculum: read template %s: %w", path, err)
	}
	var tpl Template
	if err := yaml.Unmarshal(raw, &tpl); err != nil {
		return Template{}, fmt.Errorf("curriculum: parse template %s: %w", path, err)
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// Default is the standard engineering course template used when no YAML
// override is configured.
func Default() Template {
	return Template{Modules: []Module{
		{
			Key:   "course_introduction",
			Title: "Course Introduction",
			Type:  "orientation",
		},
		{
			Key:   "safety_essentials",
			Title: "Safety Essentials",
			Type:  "safety",
		},
		{
			Key:         "technical_modules",
			Description: "Technical modules covering the core engineering content. Merge and de-duplicate source topics into a logical flow from fundamentals to advanced.",
			IsList:      true,
			Type:        "technical",
		},
		{
			Key:   "applied_practice",
			Title: "Applied Practice",
			Type:  "practice",
		},
		{
			Key:   "knowledge_assessment",
			Title: "Knowledge Assessment",
			Type:  "assessment",
		},
	}}
}
