package export

import (
	"encoding/json"
	"fmt"

	"github.com/prdlabs/prdgen"
)

// envelope is the v1 wire format for an exported document.
type envelope struct {
	Version      int          `json:"version"`
	Framework    string       `json:"framework"`
	Title        string       `json:"title,omitempty"`
	Completeness string       `json:"completeness,omitempty"`
	Sections     []sectionDTO `json:"sections"`
	Usage        usageDTO     `json:"usage"`
}

type sectionDTO struct {
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
	Status string `json:"status"`
}

type usageDTO struct {
	PromptTokens int `json:"prompt_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// JSON serializes a document to the v1 envelope format.
//
// Streaming is a live-run state; an exported snapshot records such a
// section as pending with no body.
func JSON(doc *prdgen.Document) ([]byte, error) {
	env := envelope{
		Version:      1,
		Framework:    string(doc.Framework),
		Title:        doc.Title,
		Completeness: string(doc.Completeness),
		Sections:     make([]sectionDTO, len(doc.Sections)),
		Usage:        usageDTO{PromptTokens: doc.Usage.PromptTokens, OutputTokens: doc.Usage.OutputTokens},
	}
	for i, sec := range doc.Sections {
		status := sec.Status
		body := sec.Body
		if status == prdgen.SectionStreaming {
			status = prdgen.SectionPending
			body = ""
		}
		env.Sections[i] = sectionDTO{Title: sec.Title, Body: body, Status: string(status)}
	}
	return json.MarshalIndent(env, "", "  ")
}

// ParseJSON deserializes a document from the v1 envelope format,
// rejecting unknown versions and discriminator values.
func ParseJSON(data []byte) (*prdgen.Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	fw := prdgen.Framework(env.Framework)
	if !fw.Valid() {
		return nil, fmt.Errorf("unknown framework: %q", env.Framework)
	}
	completeness := prdgen.Completeness(env.Completeness)
	switch completeness {
	case "", prdgen.DocumentComplete, prdgen.DocumentPartial, prdgen.DocumentFailed:
	default:
		return nil, fmt.Errorf("unknown completeness: %q", env.Completeness)
	}

	doc := &prdgen.Document{
		Framework:    fw,
		Title:        env.Title,
		Completeness: completeness,
		Sections:     make([]prdgen.Section, len(env.Sections)),
		Usage:        prdgen.Usage{PromptTokens: env.Usage.PromptTokens, OutputTokens: env.Usage.OutputTokens},
	}
	for i, sec := range env.Sections {
		status := prdgen.SectionStatus(sec.Status)
		switch status {
		case prdgen.SectionPending, prdgen.SectionDone, prdgen.SectionFailed:
		default:
			return nil, fmt.Errorf("section %d: unknown status: %q", i, sec.Status)
		}
		doc.Sections[i] = prdgen.Section{Title: sec.Title, Body: sec.Body, Status: status}
	}
	return doc, nil
}
