// internal/notion/property.go
package notion

import "strings"

// Property is the loosely typed Notion property value. The remote shape is
// discriminated only by the Type string; callers must go through the typed
// accessors below and never inspect the raw fields.
type Property struct {
	Type     string       `json:"type"`
	RichText []TextSpan   `json:"rich_text,omitempty"`
	Title    []TextSpan   `json:"title,omitempty"`
	URL      *string      `json:"url,omitempty"`
	Checkbox *bool        `json:"checkbox,omitempty"`
	Select   *NamedOption `json:"select,omitempty"`
	Status   *NamedOption `json:"status,omitempty"`
	Number   *float64     `json:"number,omitempty"`
	Files    []FileObject `json:"files,omitempty"`
}

type TextSpan struct {
	PlainText string `json:"plain_text"`
}

type NamedOption struct {
	Name string `json:"name"`
}

type FileObject struct {
	Type     string        `json:"type"` // file or external
	Name     string        `json:"name,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
}

type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

type ExternalFile struct {
	URL string `json:"url"`
}

// PlainText extracts the text content of a rich_text, title, url, select or
// status property. Unknown or missing property types resolve to "".
func (p *Property) PlainText() string {
	if p == nil {
		return ""
	}
	switch p.Type {
	case "rich_text":
		return joinSpans(p.RichText)
	case "title":
		return joinSpans(p.Title)
	case "url":
		if p.URL != nil {
			return strings.TrimSpace(*p.URL)
		}
	case "select":
		if p.Select != nil {
			return p.Select.Name
		}
	case "status":
		if p.Status != nil {
			return p.Status.Name
		}
	}
	return ""
}

// Bool interprets checkbox, select, status and text properties as a flag.
// Select/status/text count as true for "true", "yes" and "enabled".
func (p *Property) Bool() bool {
	if p == nil {
		return false
	}
	if p.Type == "checkbox" {
		return p.Checkbox != nil && *p.Checkbox
	}
	switch p.Type {
	case "select", "status", "rich_text", "title":
		name := strings.ToLower(strings.TrimSpace(p.PlainText()))
		return name == "true" || name == "yes" || name == "enabled"
	}
	return false
}

// NumberValue returns the number property value, or 0 when absent.
func (p *Property) NumberValue() float64 {
	if p == nil || p.Type != "number" || p.Number == nil {
		return 0
	}
	return *p.Number
}

// SelectName returns the select option name, or "" for any other type.
func (p *Property) SelectName() string {
	if p == nil || p.Type != "select" || p.Select == nil {
		return ""
	}
	return p.Select.Name
}

// URLValue returns the url property value, or "" for any other type.
func (p *Property) URLValue() string {
	if p == nil || p.Type != "url" || p.URL == nil {
		return ""
	}
	return strings.TrimSpace(*p.URL)
}

func joinSpans(spans []TextSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.PlainText)
	}
	return strings.TrimSpace(b.String())
}

// SanitizeText strips byte-order marks, zero-width characters and unicode
// spaces that Notion editors tend to paste into URL fields, then trims.
func SanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\u2060', '\uFEFF':
			// zero-width, dropped entirely
		case ' ', ' ', ' ', ' ', ' ', ' ',
			' ', ' ', ' ', ' ', ' ', ' ',
			' ', ' ', ' ', '　':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
