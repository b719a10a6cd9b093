package filter

import (
	"log/slog"
	"regexp"
	"strings"

	"newsassist/internal/domain"
)

const (
	defaultMaxMessage      = 2000
	defaultMaxConversation = 2500

	// Ellipsis appended when a message is hard-cut at its length budget.
	ellipsis = "..."

	// Paragraphs below this size are kept unconditionally during dedup.
	minParagraphLen = 15
	// Messages below this size skip paragraph dedup entirely.
	minDedupMessageLen = 100
	// Sentences below this size are kept unconditionally during dedup.
	minSentenceLen = 10

	paragraphSignatureWords = 5
	sentenceSignatureWords  = 4
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// sentenceEnd marks a sentence boundary: terminal punctuation followed by
// whitespace.
var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// introPatterns are stripped once each, in order, from the start of a
// message.
var introPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(?:sure|certainly|of course|absolutely)[,!.]?\s+`),
	regexp.MustCompile(`(?i)^\s*(?:great|good) question[.!]?\s*`),
	regexp.MustCompile(`(?i)^\s*here(?:'s| is) (?:what|the|a|an)\b[^:.]*[:.]\s*`),
	regexp.MustCompile(`(?i)^\s*as an ai(?: language model)?[^.]*\.\s*`),
	regexp.MustCompile(`(?i)^\s*i(?:'d| would) be happy to (?:help|assist)[^.!]*[.!]\s*`),
}

// outroPatterns are stripped once each, in order, from the end.
var outroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*(?:i )?hope (?:this|that) helps[^.!]*[.!]?\s*$`),
	regexp.MustCompile(`(?i)\s*let me know if[^.!?]*[.!?]?\s*$`),
	regexp.MustCompile(`(?i)\s*feel free to[^.!?]*[.!?]?\s*$`),
	regexp.MustCompile(`(?i)\s*is there anything else[^?]*\??\s*$`),
	regexp.MustCompile(`(?i)\s*(?:thank you|thanks)(?: for[^.!]*)?[.!]?\s*$`),
}

// Processor is the whole-message counterpart of Stream. It sees complete
// messages, so on top of pattern redaction it can run the prose-level
// transforms that need full sentences and paragraphs.
type Processor struct {
	maxMessage      int
	maxConversation int
	logger          *slog.Logger
}

// NewProcessor builds a processor with the given per-message and
// message-list length budgets; non-positive values use the 2000/2500
// defaults.
func NewProcessor(maxMessage, maxConversation int, logger *slog.Logger) *Processor {
	if maxMessage <= 0 {
		maxMessage = defaultMaxMessage
	}
	if maxConversation <= 0 {
		maxConversation = defaultMaxConversation
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{maxMessage: maxMessage, maxConversation: maxConversation, logger: logger}
}

// ProcessMessage runs the full pipeline on one complete message:
// redaction, duplicate-paragraph removal, conciseness trims, length cap.
// Running it again on its own output is a no-op.
func (p *Processor) ProcessMessage(text string) string {
	return p.process(text, p.maxMessage)
}

// ProcessMessages transforms assistant messages in a whole conversation,
// leaving every other role untouched. This entry point uses the wider
// conversation budget.
func (p *Processor) ProcessMessages(messages []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(messages))
	for i, msg := range messages {
		if msg.Role == domain.RoleAssistant {
			msg.Content = p.process(msg.Content, p.maxConversation)
		}
		out[i] = msg
	}
	return out
}

func (p *Processor) process(text string, maxLen int) (out string) {
	// Fail open on unexpected faults, same stance as the stream filter.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("post-processing failed open", "panic", r)
			out = text
		}
	}()

	out = redact(text)
	out = dedupParagraphs(out)
	out = enhanceConciseness(out)
	out = capLength(out, maxLen)
	return out
}

// dedupParagraphs drops paragraphs repeating the first-five-words
// signature of an earlier one. Short paragraphs (headings, list stubs)
// are always kept and never count toward the seen set.
func dedupParagraphs(text string) string {
	if len(text) < minDedupMessageLen {
		return text
	}

	paragraphs := paragraphBreak.Split(text, -1)
	seen := map[string]bool{}
	kept := make([]string, 0, len(paragraphs))

	for _, para := range paragraphs {
		trimmed := strings.TrimSpace(para)
		if len(trimmed) < minParagraphLen {
			kept = append(kept, para)
			continue
		}

		sig := signature(trimmed, paragraphSignatureWords)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		kept = append(kept, para)
	}

	return strings.Join(kept, "\n\n")
}

// enhanceConciseness strips known intro and outro phrases, then removes
// repeated sentences by their first-four-words signature.
func enhanceConciseness(text string) string {
	for _, re := range introPatterns {
		text = re.ReplaceAllString(text, "")
	}
	for _, re := range outroPatterns {
		text = re.ReplaceAllString(text, "")
	}

	sentences := splitSentences(text)
	seen := map[string]bool{}
	kept := make([]string, 0, len(sentences))

	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if len(trimmed) < minSentenceLen {
			kept = append(kept, trimmed)
			continue
		}

		sig := signature(trimmed, sentenceSignatureWords)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		kept = append(kept, trimmed)
	}

	return strings.TrimSpace(strings.Join(kept, " "))
}

// splitSentences cuts after sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	matches := sentenceEnd.FindAllStringSubmatchIndex(text, -1)

	var sentences []string
	prev := 0
	for _, m := range matches {
		sentences = append(sentences, text[prev:m[3]])
		prev = m[1]
	}
	if prev < len(text) {
		sentences = append(sentences, text[prev:])
	}
	return sentences
}

// capLength cuts the message at maxLen, preferring the last period inside
// the final quarter of the budget so the cut lands on a sentence end;
// otherwise it hard-cuts and appends an ellipsis.
func capLength(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	cut := text[:maxLen]
	if idx := strings.LastIndexByte(cut, '.'); idx+1 > maxLen*3/4 {
		return cut[:idx+1]
	}
	return cut + ellipsis
}

// signature normalizes a block to its first n lower-cased words.
func signature(text string, n int) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
