package corpus

import "fmt"

// AcademicEntry is one documentation-derived pair: a titled concept with
// its summary and the citation it was taken from.
type AcademicEntry struct {
	Title    string `yaml:"title" json:"title"`
	Summary  string `yaml:"summary" json:"summary"`
	Citation string `yaml:"citation" json:"citation"`
	Language string `yaml:"language" json:"language"`
}

// AcademicEntries returns the built-in academic corpus.
func AcademicEntries() []AcademicEntry {
	return []AcademicEntry{
		{
			Title:    "binary_search",
			Summary:  "Búsqueda binaria en array ordenado",
			Citation: "MIT 6.006 Introduction to Algorithms",
			Language: "python",
		},
		{
			Title:    "quicksort",
			Summary:  "Ordenamiento por partición recursiva",
			Citation: "MIT 6.006 Introduction to Algorithms",
			Language: "python",
		},
		{
			Title:    "dijkstra_shortest_path",
			Summary:  "Camino más corto con pesos no negativos",
			Citation: "Stanford CS161 Design and Analysis of Algorithms",
			Language: "python",
		},
		{
			Title:    "hash_table",
			Summary:  "Tabla hash con encadenamiento separado",
			Citation: "MIT 6.006 Introduction to Algorithms",
			Language: "c",
		},
		{
			Title:    "lru_cache",
			Summary:  "Caché de evicción por uso menos reciente",
			Citation: "Stanford CS110 Principles of Computer Systems",
			Language: "c",
		},
		{
			Title:    "tcp_handshake",
			Summary:  "Establecimiento de conexión en tres pasos",
			Citation: "Stanford CS144 Introduction to Computer Networking",
			Language: "pseudocode",
		},
		{
			Title:    "b_tree_index",
			Summary:  "Índice balanceado para almacenamiento en disco",
			Citation: "CMU 15-445 Database Systems",
			Language: "pseudocode",
		},
		{
			Title:    "gradient_descent",
			Summary:  "Optimización iterativa por gradiente",
			Citation: "Stanford CS229 Machine Learning",
			Language: "python",
		},
	}
}

// AcademicVariations phrases the five request forms for an entry.
func AcademicVariations(e AcademicEntry) []string {
	return []string{
		fmt.Sprintf("implementar %s en %s", e.Title, e.Language),
		fmt.Sprintf("explicar algoritmo %s", e.Title),
		fmt.Sprintf("optimizar %s para casos específicos", e.Title),
		fmt.Sprintf("analizar complejidad de %s", e.Title),
		fmt.Sprintf("comparar %s con alternativas", e.Title),
	}
}

var academicIntents = []string{
	"implement_algorithm",
	"explain_concept",
	"optimize_code",
	"analyze_complexity",
	"compare_alternatives",
}

// AcademicIntent maps a variation index to its request intent.
func AcademicIntent(variation int) string {
	return academicIntents[variation%len(academicIntents)]
}
