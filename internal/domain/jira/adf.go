package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedNode signals a rich-document node type the portal does not
// render.
var ErrUnsupportedNode = errors.New("jira: unsupported document node")

// DocNode is one node of an Atlassian Document Format tree. The portal
// handles the doc/paragraph/text/hardBreak subset.
type DocNode struct {
	Type    string    `json:"type"`
	Version int       `json:"version,omitempty"`
	Text    string    `json:"text,omitempty"`
	Content []DocNode `json:"content,omitempty"`
}

// NewDocument wraps plain text in the minimal ADF document Jira requires for
// description fields.
func NewDocument(text string) *DocNode {
	return &DocNode{
		Type:    "doc",
		Version: 1,
		Content: []DocNode{
			{
				Type: "paragraph",
				Content: []DocNode{
					{Type: "text", Text: text},
				},
			},
		},
	}
}

// FlattenDescription converts a raw description field to plain text. Jira
// returns either a plain string or an ADF document; anything outside the
// supported node subset fails with ErrUnsupportedNode instead of being
// silently dropped.
func FlattenDescription(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}

	var doc DocNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode description: %w", err)
	}
	if doc.Type != "doc" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNode, doc.Type)
	}

	var paragraphs []string
	for _, node := range doc.Content {
		text, err := flattenBlock(node)
		if err != nil {
			return "", err
		}
		paragraphs = append(paragraphs, text)
	}
	return strings.Join(paragraphs, "\n"), nil
}

func flattenBlock(node DocNode) (string, error) {
	if node.Type != "paragraph" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNode, node.Type)
	}

	var b strings.Builder
	for _, inline := range node.Content {
		switch inline.Type {
		case "text":
			b.WriteString(inline.Text)
		case "hardBreak":
			b.WriteString("\n")
		default:
			return "", fmt.Errorf("%w: %q", ErrUnsupportedNode, inline.Type)
		}
	}
	return b.String(), nil
}
