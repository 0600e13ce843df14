package skills

import (
	"context"
	"sync"
)

const (
	// Filler answers stay human-readable so the agent can speak a consistent
	// "I don't know" instead of going silent.
	kbMissingAnswer  = "قاعدة المعرفة غير موجودة حالياً على الخادم."
	kbNotFoundAnswer = "ما لقيت معلومة كافية في قاعدة المعرفة للإجابة بدقة."
)

type KBOptions struct {
	Path           string
	MinOverlap     int
	MaxAnswerChars int
}

// KB answers questions from a paragraph knowledge base by keyword overlap.
// Paragraphs load once per distinct source path and stay cached until the
// path changes; content changes under the same path are not detected. One KB
// instance is shared by every concurrent session, so the check-and-load is
// serialized.
type KB struct {
	minOverlap int
	maxChars   int

	mu         sync.Mutex
	path       string
	cachedPath string
	paras      []string
}

func NewKB(opts KBOptions) *KB {
	if opts.MinOverlap <= 0 {
		opts.MinOverlap = 2
	}
	if opts.MaxAnswerChars <= 0 {
		opts.MaxAnswerChars = 600
	}
	return &KB{
		minOverlap: opts.MinOverlap,
		maxChars:   opts.MaxAnswerChars,
		path:       opts.Path,
	}
}

func (k *KB) Name() string { return "kb_answer" }

// SetSource repoints the knowledge source. The next lookup reloads.
func (k *KB) SetSource(path string) {
	k.mu.Lock()
	k.path = path
	k.mu.Unlock()
}

func (k *KB) Invoke(_ context.Context, args map[string]any) map[string]any {
	question, _ := args["question"].(string)
	return k.Answer(question)
}

// Answer returns {found, answer, source} in every case, found or not.
func (k *KB) Answer(question string) map[string]any {
	paras, path, err := k.load()
	if err != nil {
		return map[string]any{"found": false, "answer": kbMissingAnswer, "source": path}
	}

	text, score := bestMatch(question, paras)
	if score < k.minOverlap {
		return map[string]any{"found": false, "answer": kbNotFoundAnswer, "source": path}
	}
	return map[string]any{"found": true, "answer": truncateAnswer(text, k.maxChars), "source": path}
}

func (k *KB) load() ([]string, string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cachedPath == k.path && k.paras != nil {
		return k.paras, k.path, nil
	}
	paras, err := loadParagraphs(k.path)
	if err != nil {
		return nil, k.path, err
	}
	k.cachedPath = k.path
	k.paras = paras
	return paras, k.path, nil
}
