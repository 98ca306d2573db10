// Package render is the PDF-rendering collaborator: a pure function from a
// form record (plus the fixed PM checklist template) to report bytes. Layout
// sophistication is out of scope; the writer emits a minimal single-page PDF
// listing the record's fields.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"fieldreport/pkg/domain"
)

// Renderer turns a record into a binary report artifact.
type Renderer interface {
	Render(formType domain.FormType, record domain.FormRecord) ([]byte, error)
}

// ChecklistItem is one line of the fixed PM checklist template.
type ChecklistItem struct {
	Key   string
	Label string
}

// PMChecklistTemplate is the fixed template rendered alongside a PM record's
// own fields.
var PMChecklistTemplate = []ChecklistItem{
	{Key: "checkBelts", Label: "Inspect belts and pulleys"},
	{Key: "checkFilters", Label: "Replace or clean filters"},
	{Key: "checkLubrication", Label: "Lubricate moving parts"},
	{Key: "checkElectrical", Label: "Inspect electrical connections"},
	{Key: "checkSafety", Label: "Verify safety interlocks"},
	{Key: "checkCalibration", Label: "Check calibration and settings"},
}

// PDFRenderer writes a minimal one-page PDF.
type PDFRenderer struct{}

// NewPDFRenderer returns the default renderer.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

// Render implements Renderer.
func (p *PDFRenderer) Render(formType domain.FormType, record domain.FormRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("nil record")
	}
	title := "Service Call Report"
	if formType == domain.FormPM {
		title = "Preventive Maintenance Report"
	}

	lines := []string{title, ""}
	for _, key := range sortedFieldKeys(record) {
		lines = append(lines, fmt.Sprintf("%s: %s", key, fieldValue(record[key])))
	}
	if formType == domain.FormPM {
		lines = append(lines, "", "Checklist:")
		for _, item := range PMChecklistTemplate {
			mark := "[ ]"
			if checked, _ := record[item.Key].(bool); checked {
				mark = "[x]"
			}
			lines = append(lines, fmt.Sprintf("%s %s", mark, item.Label))
		}
	}
	return writePDF(lines)
}

func sortedFieldKeys(record domain.FormRecord) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		// Signature image payloads and checklist booleans render elsewhere.
		if strings.HasSuffix(k, "Signature") || isChecklistKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isChecklistKey(key string) bool {
	for _, item := range PMChecklistTemplate {
		if item.Key == key {
			return true
		}
	}
	return false
}

func fieldValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// writePDF emits a single-page PDF with one text line per entry. Objects are
// laid out sequentially with a standard xref table.
func writePDF(lines []string) ([]byte, error) {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 11 Tf\n50 780 Td\n13 TL\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes(), nil
}

func escapePDFText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

// SanitizeTitle reduces a record's descriptive title to a filename-safe slug.
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "report"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "report"
	}
	return slug
}
