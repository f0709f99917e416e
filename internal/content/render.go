package content

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Converter 将 markdown 转换为按文档顺序排列的顶层 HTML 片段
type Converter interface {
	Convert(markdown string) ([]string, error)
}

const videoEmbedTemplate = `<iframe width="560" height="315" src="https://www.youtube.com/embed/%s" ` +
	`title="YouTube video player" frameborder="0" ` +
	`allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" ` +
	`allowfullscreen></iframe>`

// emptyFragment 空文本块的占位片段，保证每个内容块至少输出一个片段
const emptyFragment = "<p></p>"

const imageAlt = "imgX"

// Renderer 将内容块渲染为可嵌入的 HTML 片段
type Renderer struct {
	converter Converter
}

func NewRenderer(converter Converter) *Renderer {
	if converter == nil {
		converter = NewMarkdownConverter()
	}
	return &Renderer{converter: converter}
}

// Render 按内容块顺序输出扁平化的片段列表
func (r *Renderer) Render(chunks []Chunk) ([]string, error) {
	fragments := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := r.renderChunk(chunk)
		if err != nil {
			return nil, fmt.Errorf("render chunk %d: %w", i, err)
		}
		fragments = append(fragments, out...)
	}
	return fragments, nil
}

func (r *Renderer) renderChunk(chunk Chunk) ([]string, error) {
	switch chunk.ContentType {
	case ContentTypeVideo:
		return []string{VideoEmbed(VideoID(chunk.Content))}, nil
	case ContentTypeImage:
		out, err := r.converter.Convert(fmt.Sprintf("![%s](<%s>)", imageAlt, chunk.Content))
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return []string{emptyFragment}, nil
		}
		return out[:1], nil
	default:
		out, err := r.converter.Convert(chunk.Content)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return []string{emptyFragment}, nil
		}
		return out, nil
	}
}

// VideoEmbed 固定模板的视频播放器片段
func VideoEmbed(videoID string) string {
	return fmt.Sprintf(videoEmbedTemplate, html.EscapeString(videoID))
}

// MarkdownConverter 基于 goldmark 的转换器
type MarkdownConverter struct {
	md goldmark.Markdown
}

func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (c *MarkdownConverter) Convert(markdown string) ([]string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(markdown), &buf); err != nil {
		return nil, err
	}
	return topLevelFragments(buf.String())
}

// topLevelFragments 只保留 body 下的元素节点，忽略块之间的空白文本
func topLevelFragments(doc string) ([]string, error) {
	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(doc), body)
	if err != nil {
		return nil, err
	}

	fragments := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if node.Type != xhtml.ElementNode {
			continue
		}
		var buf bytes.Buffer
		if err := xhtml.Render(&buf, node); err != nil {
			return nil, err
		}
		fragments = append(fragments, buf.String())
	}
	return fragments, nil
}
