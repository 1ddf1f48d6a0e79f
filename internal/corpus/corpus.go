package corpus

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var knowledgeYAML []byte

// Corpus is the fixed, ordered collection of knowledge documents.
// It is read-only after construction.
type Corpus struct {
	docs  []Document
	index map[string]int
}

// New builds a Corpus from docs, keeping their order.
func New(docs []Document) (*Corpus, error) {
	c := &Corpus{
		docs:  make([]Document, 0, len(docs)),
		index: make(map[string]int, len(docs)),
	}
	for i, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("document %q: duplicate id", d.ID)
		}
		if !validSourceKinds[d.Source] {
			return nil, fmt.Errorf("document %q: unknown source kind %q", d.ID, d.Source)
		}
		if strings.TrimSpace(d.Content) == "" {
			return nil, fmt.Errorf("document %q: content is required", d.ID)
		}
		d.Metadata.Tags = append([]string(nil), d.Metadata.Tags...)
		c.index[d.ID] = len(c.docs)
		c.docs = append(c.docs, d)
	}
	return c, nil
}

// Documents returns a copy of the documents in corpus order.
func (c *Corpus) Documents() []Document {
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Get looks up a document by ID.
func (c *Corpus) Get(id string) (Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// IDs returns document IDs in corpus order.
func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.docs))
	for i, d := range c.docs {
		ids[i] = d.ID
	}
	return ids
}

type yamlFile struct {
	Documents []yamlDocument `yaml:"documents"`
}

type yamlDocument struct {
	ID           string   `yaml:"id"`
	Source       string   `yaml:"source"`
	Title        string   `yaml:"title"`
	Published    string   `yaml:"published"`
	URL          string   `yaml:"url"`
	DocumentType string   `yaml:"document_type"`
	Tags         []string `yaml:"tags"`
	Content      string   `yaml:"content"`
}

// Parse decodes a YAML corpus. Document content is treated as Markdown and
// flattened to plain text.
func Parse(data []byte) (*Corpus, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding corpus: %w", err)
	}

	docs := make([]Document, 0, len(f.Documents))
	for _, yd := range f.Documents {
		kind, err := ParseSourceKind(yd.Source)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", yd.ID, err)
		}

		var published time.Time
		if yd.Published != "" {
			published, err = time.Parse("2006-01-02", yd.Published)
			if err != nil {
				return nil, fmt.Errorf("document %q: published date: %w", yd.ID, err)
			}
		}

		docs = append(docs, Document{
			ID:      yd.ID,
			Source:  kind,
			Content: PlainText(yd.Content),
			Metadata: Metadata{
				Title:         yd.Title,
				PublishedDate: published,
				ExternalURL:   yd.URL,
				DocumentType:  yd.DocumentType,
				Tags:          yd.Tags,
			},
		})
	}
	return New(docs)
}

var (
	defaultOnce   sync.Once
	defaultCorpus *Corpus
)

// Default returns the corpus compiled into the binary.
func Default() *Corpus {
	defaultOnce.Do(func() {
		c, err := Parse(knowledgeYAML)
		if err != nil {
			panic(fmt.Sprintf("corpus: embedded knowledge.yaml is invalid: %v", err))
		}
		defaultCorpus = c
	})
	return defaultCorpus
}
