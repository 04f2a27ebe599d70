// Package section maps a message origin (chat + optional topic) to a named
// production section.
package section

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one row of the mapping file. TopicID nil means "messages posted
// outside any topic", which is its own key, not a wildcard.
type Entry struct {
	ChatID  int64  `yaml:"chatId"`
	TopicID *int64 `yaml:"topicId"`
	Name    string `yaml:"name"`
}

type mappingFile struct {
	Sections []Entry `yaml:"sections"`
}

type originKey struct {
	chatID   int64
	topicID  int64
	hasTopic bool
}

// Resolver is a static origin -> section lookup, built once at startup.
type Resolver struct {
	mapping map[originKey]string
}

// Load reads the mapping file and builds a resolver. Empty names and
// duplicate origins are configuration errors.
func Load(path string, logger *slog.Logger) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read section mapping %s: %w", path, err)
	}

	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cannot parse section mapping %s: %w", path, err)
	}
	if len(file.Sections) == 0 {
		return nil, fmt.Errorf("section mapping %s defines no sections", path)
	}

	r, err := FromEntries(file.Sections)
	if err != nil {
		return nil, fmt.Errorf("section mapping %s: %w", path, err)
	}
	logger.Info("section mapping loaded", "path", path, "sections", len(file.Sections))
	return r, nil
}

// FromEntries builds a resolver from in-memory entries.
func FromEntries(entries []Entry) (*Resolver, error) {
	mapping := make(map[originKey]string, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d: empty section name", i)
		}
		key := originKey{chatID: e.ChatID}
		if e.TopicID != nil {
			key.topicID = *e.TopicID
			key.hasTopic = true
		}
		if prev, ok := mapping[key]; ok {
			return nil, fmt.Errorf("entry %d: duplicate origin for sections %q and %q", i, prev, e.Name)
		}
		mapping[key] = e.Name
	}
	return &Resolver{mapping: mapping}, nil
}

// Resolve returns the section for the given origin, or false when the
// origin is unmapped.
func (r *Resolver) Resolve(chatID int64, topicID int64, hasTopic bool) (string, bool) {
	key := originKey{chatID: chatID}
	if hasTopic {
		key.topicID = topicID
		key.hasTopic = true
	}
	name, ok := r.mapping[key]
	return name, ok
}
