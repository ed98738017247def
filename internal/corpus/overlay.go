package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Overlay is the file shape of a corpus overlay: any subset of the four
// families, entries keyed by name/title.
type Overlay struct {
	Kali     []Tool           `yaml:"kali"`
	Termux   []TermuxCategory `yaml:"termux"`
	Shell    []Tool           `yaml:"shell"`
	Academic []AcademicEntry  `yaml:"academic"`
}

// Load returns the built-in corpus with every *.yaml overlay in dir merged
// over it, in filename order. Overlay entries replace built-ins with the
// same name and append otherwise. A missing directory yields the built-ins.
func Load(dir string) (*Corpus, error) {
	c := Default()
	if dir == "" {
		return c, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return c, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("globbing overlay dir %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading overlay %s: %w", path, err)
		}
		var ov Overlay
		if err := yaml.Unmarshal(data, &ov); err != nil {
			return nil, fmt.Errorf("parsing overlay %s: %w", path, err)
		}
		c.merge(&ov)
	}
	return c, nil
}

func (c *Corpus) merge(ov *Overlay) {
	for _, t := range ov.Kali {
		c.Kali = mergeTool(c.Kali, t)
	}
	for _, tc := range ov.Termux {
		c.Termux = mergeTermux(c.Termux, tc)
	}
	for _, t := range ov.Shell {
		c.Shell = mergeTool(c.Shell, t)
	}
	for _, e := range ov.Academic {
		c.Academic = mergeAcademic(c.Academic, e)
	}
}

func mergeTool(tools []Tool, t Tool) []Tool {
	for i := range tools {
		if tools[i].Name == t.Name {
			tools[i] = t
			return tools
		}
	}
	return append(tools, t)
}

func mergeTermux(cats []TermuxCategory, tc TermuxCategory) []TermuxCategory {
	for i := range cats {
		if cats[i].Name == tc.Name {
			cats[i] = tc
			return cats
		}
	}
	return append(cats, tc)
}

func mergeAcademic(entries []AcademicEntry, e AcademicEntry) []AcademicEntry {
	for i := range entries {
		if entries[i].Title == e.Title {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}
