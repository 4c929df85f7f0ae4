package knowledge

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunk 表示分块后的文本结构，ChunkID按最终序列位置生成
type Chunk struct {
	ChunkID string
	DocID   string
	Title   string
	Text    string
}

const (
	DefaultMaxChunkSize = 500
	DefaultMinChunkSize = 100
)

var (
	paragraphSplitter = regexp.MustCompile(`\n[ \t\r]*\n[\s]*`)
	sentenceBoundary  = regexp.MustCompile(`[.!?]\s+`)
)

// Chunker 文本分块器。对任意输入都是纯函数：相同内容与参数产出相同的块序列
type Chunker struct {
	maxChunkSize int
	minChunkSize int
}

// NewChunker 创建分块器
func NewChunker(maxChunkSize, minChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if minChunkSize <= 0 {
		minChunkSize = DefaultMinChunkSize
	}
	if minChunkSize >= maxChunkSize {
		minChunkSize = maxChunkSize / 5
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		minChunkSize: minChunkSize,
	}
}

// Chunk 将文档内容切分为有序的块序列。
// 空白内容返回空序列；段落按空行切分，超长段落按句子贪心打包，
// 过短的块在合并阶段向前拼接。
func (c *Chunker) Chunk(docID, title, content string) []Chunk {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	var raw []string
	for _, para := range paragraphSplitter.Split(trimmed, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= c.maxChunkSize {
			raw = append(raw, para)
			continue
		}
		raw = append(raw, c.splitParagraph(para)...)
	}

	merged := c.mergeSmallChunks(raw)

	chunks := make([]Chunk, 0, len(merged))
	for i, text := range merged {
		chunks = append(chunks, Chunk{
			ChunkID: fmt.Sprintf("%s#chunk-%d", docID, i),
			DocID:   docID,
			Title:   title,
			Text:    text,
		})
	}
	return chunks
}

// splitParagraph 将超长段落按句子边界切分并贪心打包到maxChunkSize以内
func (c *Chunker) splitParagraph(para string) []string {
	sentences := splitSentences(para)

	var out []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			out = append(out, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)

		// 单句超过上限时硬切为定宽片段
		if n > c.maxChunkSize {
			flush()
			out = append(out, hardSplit(sentence, c.maxChunkSize)...)
			continue
		}

		joined := n
		if bufLen > 0 {
			joined = bufLen + 1 + n
		}
		if joined > c.maxChunkSize {
			flush()
			joined = n
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
		bufLen = joined
	}
	flush()

	return out
}

// splitSentences 按终结标点(. ! ?)后跟空白切句，标点保留在前句末尾
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		end := loc[0] + 1
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// hardSplit 按定宽切分超长句（不考虑词边界，接受的有损边界情况）
func hardSplit(sentence string, width int) []string {
	runes := []rune(sentence)
	var out []string
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// mergeSmallChunks 合并阶段：短于minChunkSize的块向前拼接（单空格连接），
// 仅当合并后不超过maxChunkSize；否则保持独立
func (c *Chunker) mergeSmallChunks(raw []string) []string {
	var merged []string
	for _, text := range raw {
		n := utf8.RuneCountInString(text)
		if len(merged) > 0 && n < c.minChunkSize {
			last := merged[len(merged)-1]
			if utf8.RuneCountInString(last)+1+n <= c.maxChunkSize {
				merged[len(merged)-1] = last + " " + text
				continue
			}
		}
		merged = append(merged, text)
	}
	return merged
}
