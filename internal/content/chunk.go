package content

import (
	"strings"
)

// ContentType 内容块类型
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

const (
	// ChunkDelimiter 分隔内容块
	ChunkDelimiter = "---"

	videoMarker = "!video:"
	imageMarker = "!image:"
)

// Chunk 课程/作品内容中的一个有序内容块
// swagger:model Chunk
type Chunk struct {
	ContentType ContentType `json:"contentType"`
	Content     string      `json:"content"`
}

// Valid 判断类型是否为已知类型
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeImage, ContentTypeVideo:
		return true
	}
	return false
}

// Parse 将原始文本按分隔符拆分并分类为内容块，顺序与原文一致
func Parse(raw string) []Chunk {
	segments := split(raw)
	chunks := make([]Chunk, 0, len(segments))
	for _, segment := range segments {
		chunks = append(chunks, classify(segment))
	}
	return chunks
}

func split(raw string) []string {
	return strings.Split(raw, ChunkDelimiter)
}

// video 标记优先于 image 标记
func classify(segment string) Chunk {
	trimmed := strings.TrimSpace(segment)

	if strings.Contains(trimmed, videoMarker) {
		return Chunk{ContentType: ContentTypeVideo, Content: afterLast(trimmed, videoMarker)}
	}
	if strings.Contains(trimmed, imageMarker) {
		return Chunk{ContentType: ContentTypeImage, Content: afterLast(trimmed, imageMarker)}
	}
	return Chunk{ContentType: ContentTypeText, Content: trimmed}
}

func afterLast(s, marker string) string {
	idx := strings.LastIndex(s, marker)
	return strings.TrimSpace(s[idx+len(marker):])
}

// IsEmpty 没有内容块，或首个内容块为空
func IsEmpty(chunks []Chunk) bool {
	return len(chunks) == 0 || chunks[0].Content == ""
}

// VideoID 取最后一个 "v=" 之后的部分作为视频ID，不做校验
func VideoID(link string) string {
	idx := strings.LastIndex(link, "v=")
	if idx < 0 {
		return link
	}
	return link[idx+len("v="):]
}
