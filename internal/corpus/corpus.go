package corpus

import "strings"

// Command is one authentic command with its short description.
type Command struct {
	Cmd  string `yaml:"cmd" json:"cmd"`
	Desc string `yaml:"desc" json:"desc"`
	Cat  string `yaml:"cat,omitempty" json:"cat,omitempty"`
}

// Tool groups the authentic commands of one tool or command family.
type Tool struct {
	Name        string    `yaml:"name" json:"name"`
	Package     string    `yaml:"package,omitempty" json:"package,omitempty"`
	Category    string    `yaml:"category" json:"category"`
	Description string    `yaml:"description" json:"description"`
	Commands    []Command `yaml:"commands" json:"commands"`
}

// Variation is one natural-language phrasing of a command request.
type Variation struct {
	NaturalInput   string
	SemanticType   string
	Intent         string
	ExpectedOutput string
	ErrorInfo      string
}

// Corpus is the merged view of the built-in families plus any overlays.
type Corpus struct {
	Kali     []Tool
	Termux   []TermuxCategory
	Shell    []Tool
	Academic []AcademicEntry
}

// Default returns the built-in corpus families.
func Default() *Corpus {
	return &Corpus{
		Kali:     KaliTools(),
		Termux:   TermuxCategories(),
		Shell:    ShellFamilies(),
		Academic: AcademicEntries(),
	}
}

var (
	complexityOps     = []string{"|", "&", ">", "<"}
	complexityFlags   = []string{"-p", "-o", "-f", "-D"}
	complexityTargets = []string{"192.168", "http://", "https://"}
)

// ComplexityScore rates a command 0..10 from its word count plus
// weights for shell operators, sensitive flags and network targets.
func ComplexityScore(cmd string) int {
	score := len(strings.Fields(cmd))
	if containsAny(cmd, complexityOps) {
		score += 3
	}
	if containsAny(cmd, complexityFlags) {
		score += 2
	}
	if containsAny(cmd, complexityTargets) {
		score++
	}
	if score > 10 {
		score = 10
	}
	return score
}

// ComplexityLevel buckets a command by word count.
func ComplexityLevel(cmd string) string {
	switch n := len(strings.Fields(cmd)); {
	case n <= 2:
		return "beginner"
	case n <= 6:
		return "intermediate"
	default:
		return "advanced"
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
