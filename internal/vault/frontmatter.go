package vault

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/secondbrain/internal/models"
)

// Header is the frontmatter written on every pulled note.
type Header struct {
	JDID     string `yaml:"jdId"`
	Title    string `yaml:"title"`
	Version  int    `yaml:"version"`
	SyncedAt string `yaml:"synced_at,omitempty"`
}

// Document is a parsed vault file.
type Document struct {
	Header Header
	Body   string
}

var (
	fileIDRe   = regexp.MustCompile(`^(\d+\.\d+)`)
	folderIDRe = regexp.MustCompile(`^(\d+)`)
)

// Parse splits YAML frontmatter (between leading --- delimiters) from the body.
// Missing or invalid frontmatter leaves the header empty and the whole input as body.
func Parse(data []byte) Document {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return Document{Body: string(data)}
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return Document{Body: string(data)}
	}

	var h Header
	if err := yaml.Unmarshal(rest[:idx], &h); err != nil {
		return Document{Body: string(data)}
	}
	body := rest[idx+1+len(delim):]
	return Document{Header: h, Body: strings.TrimLeft(string(body), "\n\r")}
}

// Render writes a note as frontmatter plus content.
func Render(n models.Note, syncedAt time.Time) ([]byte, error) {
	h := Header{JDID: n.CategoryID, Title: n.Title, Version: n.Version, SyncedAt: syncedAt.UTC().Format(time.RFC3339)}
	head, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("vault: encode frontmatter: %w", err)
	}
	body := Parse([]byte(n.Content)).Body

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.Bytes(), nil
}

// CategoryID returns the frontmatter jdId, else the NN.NN prefix of the file
// name, else the NN prefix of the folder as NN.00, else 00.00.
func (d Document) CategoryID(rel string) string {
	if id := strings.TrimSpace(d.Header.JDID); id != "" {
		return id
	}
	if m := fileIDRe.FindString(path.Base(rel)); m != "" {
		return m
	}
	if m := folderIDRe.FindString(path.Base(path.Dir(rel))); m != "" {
		return m + ".00"
	}
	return "00.00"
}

// Title returns the frontmatter title, else the first H1 heading, else the file name.
func (d Document) Title(rel string) string {
	if t := strings.TrimSpace(d.Header.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(d.Body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	words := strings.Fields(strings.ReplaceAll(strings.TrimSuffix(path.Base(rel), ".md"), "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
