// Package chain implements prompt chains over retrieved study material: a
// template, a retrieval mode, a model call, and an output parser, assembled
// into named variants (answer, quiz, exam, tutor, ...).
package chain

import (
	"strings"

	"github.com/sturdystudy/sturdy/internal/knowledge"
)

// contextSeparator joins retrieved documents into one prompt context block.
const contextSeparator = "\n\n---\n\n"

// unknownSource labels documents without provenance metadata.
const unknownSource = "Unknown"

// Format combines documents into a single context string.
//
// With includeSource, each document is prefixed with its origin so the model
// can cite evidence ("[Source: slides.pdf]"); this form carries a trailing
// separator. Without it, contents are joined plainly. Zero documents yield "".
func Format(docs []knowledge.Document, includeSource bool) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	if includeSource {
		for _, d := range docs {
			source := d.Metadata[knowledge.MetadataSource]
			if source == "" {
				source = unknownSource
			}
			sb.WriteString("[Source: ")
			sb.WriteString(source)
			sb.WriteString("]\n")
			sb.WriteString(d.Content)
			sb.WriteString(contextSeparator)
		}
		return sb.String()
	}

	for i, d := range docs {
		if i > 0 {
			sb.WriteString(contextSeparator)
		}
		sb.WriteString(d.Content)
	}
	return sb.String()
}

// resultDocs unwraps search results to their documents, preserving order.
func resultDocs(results []knowledge.Result) []knowledge.Document {
	docs := make([]knowledge.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return docs
}
