package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

const frontMatterDelimiter = "---"

// frontMatter is the YAML metadata header of an evidence file.
type frontMatter struct {
	ID            string    `yaml:"id"`
	Title         string    `yaml:"title"`
	Author        string    `yaml:"author"`
	Date          string    `yaml:"date"`
	Citation      []string  `yaml:"citation"`
	Results       []Result  `yaml:"results"`
	Strength      *Strength `yaml:"strength"`
	Tags          []string  `yaml:"tags"`
	Methodologies string    `yaml:"methodologies"`
	Datasets      []string  `yaml:"datasets"`
}

// Loader reads evidence documents from a directory.
//
// Files are markdown-like: a YAML front-matter block delimited by "---"
// followed by the free-text body. Only .md and .txt files are considered.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *zap.Logger) (*Loader, error) {
	if dir == "" {
		return nil, fmt.Errorf("evidence directory required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger}, nil
}

// LoadAll reads every evidence file under the loader's directory.
//
// Malformed documents are skipped and reported in the returned LoadError
// slice; a single bad file never aborts the batch. The returned error is
// non-nil only when the directory itself cannot be read.
func (l *Loader) LoadAll() ([]Document, []LoadError, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, l.dir)
		}
		return nil, nil, fmt.Errorf("reading evidence directory %s: %w", l.dir, err)
	}

	var docs []Document
	var loadErrs []LoadError

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".md" && ext != ".txt" {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ext)
		doc, err := l.loadFile(filepath.Join(l.dir, entry.Name()), id)
		if err != nil {
			l.logger.Warn("skipping evidence document",
				zap.String("document_id", id),
				zap.Error(err),
			)
			loadErrs = append(loadErrs, LoadError{DocumentID: id, Message: err.Error()})
			continue
		}
		docs = append(docs, *doc)
	}

	// Deterministic ordering keeps indexing progress and idempotency checks stable.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	l.logger.Info("loaded evidence documents",
		zap.String("dir", l.dir),
		zap.Int("documents", len(docs)),
		zap.Int("errors", len(loadErrs)),
	)

	return docs, loadErrs, nil
}

// loadFile parses one evidence file into a Document.
func (l *Loader) loadFile(path, fallbackID string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	meta, body, err := splitFrontMatter(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
		return nil, fmt.Errorf("%w: parsing front matter: %v", ErrValidation, err)
	}

	id := fm.ID
	if id == "" {
		id = fallbackID
	}

	doc := &Document{
		ID:            id,
		Title:         fm.Title,
		Author:        fm.Author,
		Date:          fm.Date,
		Body:          strings.TrimSpace(body),
		Results:       fm.Results,
		Strength:      fm.Strength,
		Citations:     fm.Citation,
		Tags:          fm.Tags,
		Methodologies: fm.Methodologies,
		Datasets:      fm.Datasets,
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// splitFrontMatter separates the YAML header from the document body.
func splitFrontMatter(content string) (meta string, body string, err error) {
	trimmed := strings.TrimLeft(content, "\uFEFF\n\r ")
	if !strings.HasPrefix(trimmed, frontMatterDelimiter) {
		return "", "", fmt.Errorf("missing front matter delimiter")
	}

	rest := trimmed[len(frontMatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx < 0 {
		return "", "", fmt.Errorf("unterminated front matter block")
	}

	meta = rest[:idx]
	body = rest[idx+len(frontMatterDelimiter)+1:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return meta, body, nil
}
