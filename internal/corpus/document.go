package corpus

import (
	"fmt"
	"time"
)

// SourceKind identifies where a knowledge document came from.
type SourceKind string

const (
	SourceResume      SourceKind = "resume"
	SourceProfile     SourceKind = "profile"
	SourceTalk        SourceKind = "talk"
	SourceArticle     SourceKind = "article"
	SourceWebsiteCopy SourceKind = "website-copy"
	SourceCaseStudy   SourceKind = "case-study"
)

var validSourceKinds = map[SourceKind]bool{
	SourceResume:      true,
	SourceProfile:     true,
	SourceTalk:        true,
	SourceArticle:     true,
	SourceWebsiteCopy: true,
	SourceCaseStudy:   true,
}

// ParseSourceKind returns the SourceKind named by s.
func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(s)
	if !validSourceKinds[k] {
		return "", fmt.Errorf("unknown source kind %q", s)
	}
	return k, nil
}

// Metadata holds optional descriptive fields of a document.
type Metadata struct {
	Title         string    `json:"title,omitempty"`
	PublishedDate time.Time `json:"published_date,omitzero"`
	ExternalURL   string    `json:"url,omitempty"`
	DocumentType  string    `json:"document_type,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
}

// HasTag reports whether tag is among the document tags. Tag order is not significant.
func (m Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Document is an immutable unit of retrievable text.
type Document struct {
	ID       string     `json:"id"`
	Source   SourceKind `json:"source"`
	Content  string     `json:"content"`
	Metadata Metadata   `json:"metadata"`
}

// Title returns the display title, falling back to the document ID.
func (d Document) Title() string {
	if d.Metadata.Title != "" {
		return d.Metadata.Title
	}
	return d.ID
}
