package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeKB(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write kb: %v", err)
	}
	return path
}

func TestKB_ArabicOverlapMatch(t *testing.T) {
	para := "ساعات العمل الرسمية من الثامنة صباحاً حتى الرابعة مساءً"
	kb := NewKB(KBOptions{Path: writeKB(t, "فقرة تمهيدية عن الجامعة", para)})

	out := kb.Answer("ما هي ساعات العمل")
	if out["found"] != true {
		t.Fatalf("found=%v answer=%v", out["found"], out["answer"])
	}
	if out["answer"] != para {
		t.Fatalf("answer=%q", out["answer"])
	}
}

func TestKB_BelowThresholdNotFound(t *testing.T) {
	// Every paragraph shares exactly one normalized token with the question.
	kb := NewKB(KBOptions{Path: writeKB(t,
		"التسجيل يبدأ مطلع الشهر القادم",
		"مواعيد التسجيل تعلن لاحقا",
	), MinOverlap: 2})

	out := kb.Answer("التسجيل")
	if out["found"] != false {
		t.Fatalf("found=%v", out["found"])
	}
	if out["answer"] != kbNotFoundAnswer {
		t.Fatalf("answer=%q", out["answer"])
	}
}

func TestKB_ThresholdBoundary(t *testing.T) {
	target := "مكتبه الجامعه تفتح ابوابها يوميا"
	kb := NewKB(KBOptions{Path: writeKB(t, "قاعه المحاضرات في المبنى الثاني", target), MinOverlap: 2})

	out := kb.Answer("متى تفتح مكتبه الجامعه")
	if out["found"] != true {
		t.Fatalf("found=%v answer=%v", out["found"], out["answer"])
	}
	if out["answer"] != target {
		t.Fatalf("answer=%q", out["answer"])
	}
}

func TestKB_MissingSource(t *testing.T) {
	kb := NewKB(KBOptions{Path: filepath.Join(t.TempDir(), "absent.txt")})
	out := kb.Answer("سؤال")
	if out["found"] != false {
		t.Fatalf("found=%v", out["found"])
	}
	if out["answer"] != kbMissingAnswer {
		t.Fatalf("answer=%q", out["answer"])
	}
	if out["source"] == "" {
		t.Fatal("source missing")
	}
}

func TestKB_CacheIgnoresContentChange(t *testing.T) {
	path := writeKB(t, "النقل الجامعي متوفر من جميع الاحياء السكنيه")
	kb := NewKB(KBOptions{Path: path})

	first := kb.Answer("هل النقل الجامعي متوفر")
	if first["found"] != true {
		t.Fatalf("found=%v", first["found"])
	}

	// Rewriting the same path must not be observed: the cache keys on path.
	if err := os.WriteFile(path, []byte("محتوى مختلف تماما الان"), 0o644); err != nil {
		t.Fatalf("rewrite kb: %v", err)
	}
	second := kb.Answer("هل النقل الجامعي متوفر")
	if second["answer"] != first["answer"] || second["found"] != true {
		t.Fatalf("cache miss: first=%v second=%v", first, second)
	}
}

func TestKB_SourceChangeForcesReload(t *testing.T) {
	kb := NewKB(KBOptions{Path: writeKB(t, "النقل الجامعي متوفر من جميع الاحياء السكنيه")})
	if out := kb.Answer("هل النقل الجامعي متوفر"); out["found"] != true {
		t.Fatalf("found=%v", out["found"])
	}

	kb.SetSource(writeKB(t, "فقره لا علاقه لها بالسؤال اطلاقا"))
	out := kb.Answer("هل النقل الجامعي متوفر")
	if out["found"] != false {
		t.Fatalf("expected reload, got %v", out)
	}
}

func TestKB_TruncatesAtWhitespace(t *testing.T) {
	words := strings.Repeat("سؤال العمل ساعات الدوام ", 40)
	kb := NewKB(KBOptions{Path: writeKB(t, words), MaxAnswerChars: 50})

	out := kb.Answer("ساعات العمل والدوام")
	answer, _ := out["answer"].(string)
	if out["found"] != true {
		t.Fatalf("found=%v", out["found"])
	}
	if !strings.HasSuffix(answer, "…") {
		t.Fatalf("answer=%q", answer)
	}
	body := strings.TrimSuffix(answer, "…")
	if utf8.RuneCountInString(body) > 50 {
		t.Fatalf("answer too long: %d runes", utf8.RuneCountInString(body))
	}
	if strings.HasSuffix(body, " ") {
		t.Fatalf("dangling space: %q", body)
	}
	// The cut lands on a word boundary of the source text.
	if !strings.HasPrefix(words, body+" ") {
		t.Fatalf("mid-word cut: %q", body)
	}
}

func TestKB_InvokeReadsQuestionArg(t *testing.T) {
	para := "ساعات العمل الرسمية من الثامنة صباحاً حتى الرابعة مساءً"
	kb := NewKB(KBOptions{Path: writeKB(t, para)})

	out := kb.Invoke(context.Background(), map[string]any{"question": "ما هي ساعات العمل"})
	if out["found"] != true {
		t.Fatalf("found=%v", out["found"])
	}
	missing := kb.Invoke(context.Background(), map[string]any{})
	if missing["found"] != false {
		t.Fatalf("found=%v for empty question", missing["found"])
	}
}
