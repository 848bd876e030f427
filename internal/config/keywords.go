package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Keywords holds every keyword table the detector and the rule-based classifier
// consume. All matching is done against NFKC-normalized, lower-cased text, so the
// tables should use lower-case entries.
type Keywords struct {
	// Trigger detection
	WakeWords    []string `yaml:"wake_words"`
	Prefixes     []string `yaml:"prefixes"`
	LeadingPunct string   `yaml:"leading_punct"` // allowed single leading punctuation chars
	EndCommands  []string `yaml:"end_commands"`

	// To-do intent keyword sets. Query is checked before Update before Create:
	// the update/create lists contain substrings of common query phrasings.
	Todo struct {
		Query  []string `yaml:"query"`
		Update []string `yaml:"update"`
		Create []string `yaml:"create"`
	} `yaml:"todo"`

	// Bare category words: a message exactly equal to a key resolves as a query
	// for that category before any substring scan can swallow it.
	BareCategories map[string]string `yaml:"bare_categories"`

	Query struct {
		Knowledge      []string `yaml:"knowledge"`
		Content        []string `yaml:"content"`
		Question       []string `yaml:"question"`
		Recommendation []string `yaml:"recommendation"`
		ChatHistory    []string `yaml:"chat_history"`
	} `yaml:"query"`

	Save struct {
		Insight   []string `yaml:"insight"`
		Knowledge []string `yaml:"knowledge"`
		Memory    []string `yaml:"memory"`
		Music     []string `yaml:"music"`
		Life      []string `yaml:"life"`
	} `yaml:"save"`
}

// DefaultKeywords returns the built-in keyword tables (Traditional Chinese plus
// English equivalents).
func DefaultKeywords() *Keywords {
	kw := &Keywords{
		WakeWords:    []string{"花生", "peanut"},
		Prefixes:     []string{"ai:", "@花生", "@peanut", "花生:"},
		LeadingPunct: "!?,.~、。，！？'\"「『(（",
		EndCommands:  []string{"結束", "結束對話", "再見", "bye", "end"},
		BareCategories: map[string]string{
			"待辦": "todo",
			"知識": "knowledge",
			"靈感": "content",
			"音樂": "music",
			"生活": "life",
			"回憶": "memory",
		},
	}

	kw.Todo.Query = []string{"待辦清單", "待辦事項", "我的待辦", "有什麼待辦", "還有什麼事", "todo list", "my todos", "list todos"}
	kw.Todo.Update = []string{"完成了", "做完了", "搞定了", "辦好了", "done", "finished", "completed"}
	kw.Todo.Create = []string{"提醒我", "記得", "待辦", "要開會", "要買", "要去", "要交", "remind me", "need to", "have to"}

	kw.Query.Knowledge = []string{"我學過", "知識庫", "我的筆記", "我存過", "我記過", "what did i learn", "my notes"}
	kw.Query.Content = []string{"我存了什麼", "靈感清單", "我的收藏", "saved content", "what did i save"}
	kw.Query.Question = []string{"?", "？", "嗎", "什麼", "如何", "怎麼", "為什麼", "是不是", "有沒有", "how ", "what ", "why ", "when ", "who ", "where ", "can i", "should i"}
	kw.Query.Recommendation = []string{"推薦", "建議", "有什麼好", "recommend", "suggest"}
	kw.Query.ChatHistory = []string{"剛剛", "之前", "上次", "聊過", "說過", "earlier", "last time", "we talked"}

	kw.Save.Insight = []string{"我覺得", "我發現", "體悟", "感悟", "心得", "領悟", "i think", "i realized"}
	kw.Save.Knowledge = []string{"學到", "原來", "知識點", "learned", "til "}
	kw.Save.Memory = []string{"想起", "回憶", "那天", "remember when"}
	kw.Save.Music = []string{"這首歌", "音樂", "好聽", "song", "music"}
	kw.Save.Life = []string{"今天吃", "今天去", "買了", "吃了", "去了", "today i"}

	return kw
}

// LoadKeywords reads keyword tables from a YAML file, falling back to the
// built-in defaults for any table the file leaves empty.
func LoadKeywords(path string) (*Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	if err := yaml.Unmarshal(data, kw); err != nil {
		return nil, fmt.Errorf("failed to parse keywords YAML: %w", err)
	}
	return kw, nil
}

// KeywordSource hands out the current keyword tables and supports hot reload.
// Detector and classifier read through it on every call, so a reload takes
// effect on the next message.
type KeywordSource struct {
	mu   sync.RWMutex
	kw   *Keywords
	path string
}

// NewKeywordSource loads the initial tables from path ("" = defaults only)
func NewKeywordSource(path string) (*KeywordSource, error) {
	kw, err := LoadKeywords(path)
	if err != nil {
		return nil, err
	}
	return &KeywordSource{kw: kw, path: path}, nil
}

// Current returns the active keyword tables. The returned value must be treated
// as read-only.
func (s *KeywordSource) Current() *Keywords {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kw
}

// Reload re-reads the keyword file and swaps the tables in. A failed reload
// keeps the previous tables.
func (s *KeywordSource) Reload() error {
	kw, err := LoadKeywords(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.kw = kw
	s.mu.Unlock()
	log.Printf("✅ [KEYWORDS] Reloaded keyword tables from %s", s.path)
	return nil
}

// Path returns the watched keywords file path ("" when running on defaults)
func (s *KeywordSource) Path() string {
	return s.path
}
