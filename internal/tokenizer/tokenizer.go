package tokenizer

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"strings"
)

const DefaultVocabSize = 32000

// Special token IDs. These are fixed and shared with the dialog encoder.
const (
	PadID = 0
	UnkID = 1
	BosID = 2
	EosID = 3
	SysID = 4
	CmdID = 5
	UsrID = 6
	BotID = 7
)

var specialTokens = map[string]int{
	"<pad>": PadID,
	"<unk>": UnkID,
	"<bos>": BosID,
	"<eos>": EosID,
	"<sys>": SysID,
	"<cmd>": CmdID,
	"<usr>": UsrID,
	"<bot>": BotID,
}

const baseChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	".,!?;:()[]{}\"'-+=/*@#$%^&_|\\~`<> \n\t"

var commonSubwords = []string{
	"ing", "tion", "ness", "ment", "able", "ible", "less", "ful",
	"er", "ed", "ly", "re", "un", "pre", "dis", "mis",
	"ando", "endo", "ción", "dad", "mente", "able", "ible",
	"ar", "er", "ir", "ado", "ido", "ante", "ente",
}

var commandTokens = []string{
	"sudo", "ls", "cd", "mkdir", "rm", "cp", "mv", "git", "python",
	"pip", "apt", "docker", "ssh", "vim", "nano", "cat", "echo",
	"grep", "find", "chmod", "chown", "ps", "kill", "top", "df",
}

var (
	spaceRE = regexp.MustCompile(`\s+`)
	punctRE = regexp.MustCompile(`([.!?;:,()\[\]{}])`)
	shellRE = regexp.MustCompile(`\$\s*`)
)

// Tokenizer maps text to vocabulary IDs with longest-match subword
// segmentation for words outside the vocabulary.
type Tokenizer struct {
	vocabSize int
	vocab     map[string]int
	inverse   map[int]string
}

func New(vocabSize int) *Tokenizer {
	if vocabSize <= 0 {
		vocabSize = DefaultVocabSize
	}
	t := &Tokenizer{
		vocabSize: vocabSize,
		vocab:     make(map[string]int),
		inverse:   make(map[int]string),
	}
	t.initVocab()
	return t
}

func (t *Tokenizer) initVocab() {
	for token, idx := range specialTokens {
		t.vocab[token] = idx
		t.inverse[idx] = token
	}

	idx := len(specialTokens)
	for _, char := range baseChars {
		s := string(char)
		if _, ok := t.vocab[s]; !ok {
			t.vocab[s] = idx
			t.inverse[idx] = s
			idx++
		}
	}

	for _, subword := range commonSubwords {
		if _, ok := t.vocab[subword]; !ok && idx < t.vocabSize {
			t.vocab[subword] = idx
			t.inverse[idx] = subword
			idx++
		}
	}

	for _, cmd := range commandTokens {
		if _, ok := t.vocab[cmd]; !ok && idx < t.vocabSize {
			t.vocab[cmd] = idx
			t.inverse[idx] = cmd
			idx++
		}
	}
}

// Preprocess normalizes whitespace, spaces out punctuation and rewrites
// shell prompts to the <cmd> marker.
func (t *Tokenizer) Preprocess(text string) string {
	text = spaceRE.ReplaceAllString(strings.TrimSpace(text), " ")
	text = punctRE.ReplaceAllString(text, " $1 ")
	text = shellRE.ReplaceAllString(text, "<cmd> ")
	return text
}

// Tokenize returns the preprocessed word split of text.
func (t *Tokenizer) Tokenize(text string) []string {
	return strings.Fields(t.Preprocess(text))
}

// Encode converts text to vocabulary IDs.
func (t *Tokenizer) Encode(text string) []int {
	var tokens []int
	for _, word := range t.Tokenize(text) {
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, id)
			continue
		}
		tokens = append(tokens, t.encodeSubwords(word)...)
	}
	return tokens
}

func (t *Tokenizer) encodeSubwords(word string) []int {
	runes := []rune(word)
	if len(runes) == 0 {
		return []int{UnkID}
	}

	var tokens []int
	i := 0
	for i < len(runes) {
		found := false
		max := len(runes) - i
		if max > 8 {
			max = 8
		}
		for length := max; length > 0; length-- {
			sub := string(runes[i : i+length])
			if id, ok := t.vocab[sub]; ok {
				tokens = append(tokens, id)
				i += length
				found = true
				break
			}
		}
		if !found {
			tokens = append(tokens, UnkID)
			i++
		}
	}
	return tokens
}

// Decode converts IDs back to text, dropping special markers. Word
// boundaries are not recoverable from IDs alone.
func (t *Tokenizer) Decode(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		token, ok := t.inverse[id]
		if !ok {
			continue
		}
		if strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">") {
			continue
		}
		b.WriteString(token)
	}
	return strings.TrimSpace(spaceRE.ReplaceAllString(b.String(), " "))
}

// BinarizeInt8 hashes each token into the 0..255 range.
func BinarizeInt8(tokens []string) []int {
	out := make([]int, len(tokens))
	for i, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		out[i] = int(h.Sum32() % 256)
	}
	return out
}

// VocabSize returns the number of entries currently in the vocabulary.
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab)
}

// Lookup returns the ID for a token if present.
func (t *Tokenizer) Lookup(token string) (int, bool) {
	id, ok := t.vocab[token]
	return id, ok
}

// Stats summarizes the vocabulary composition.
type Stats struct {
	VocabSize       int `json:"vocab_size"`
	SpecialTokens   int `json:"special_tokens"`
	CharacterTokens int `json:"character_tokens"`
	SubwordTokens   int `json:"subword_tokens"`
}

func (t *Tokenizer) Stats() Stats {
	s := Stats{
		VocabSize:     len(t.vocab),
		SpecialTokens: len(specialTokens),
	}
	for token := range t.vocab {
		if len([]rune(token)) == 1 {
			s.CharacterTokens++
		} else if !strings.HasPrefix(token, "<") {
			s.SubwordTokens++
		}
	}
	return s
}

type vocabFile struct {
	Vocab         map[string]int `json:"vocab"`
	SpecialTokens map[string]int `json:"special_tokens"`
	VocabSize     int            `json:"vocab_size"`
}

// Save writes the vocabulary as JSON.
func (t *Tokenizer) Save(path string) error {
	data, err := json.MarshalIndent(vocabFile{
		Vocab:         t.vocab,
		SpecialTokens: specialTokens,
		VocabSize:     t.vocabSize,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load replaces the vocabulary from a saved JSON file.
func (t *Tokenizer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f vocabFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(f.Vocab) == 0 {
		return fmt.Errorf("vocabulary file %s is empty", path)
	}
	t.vocab = f.Vocab
	t.vocabSize = f.VocabSize
	t.inverse = make(map[int]string, len(f.Vocab))
	for token, id := range f.Vocab {
		t.inverse[id] = token
	}
	return nil
}
