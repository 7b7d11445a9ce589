package clause

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/partition"
)

// MinClauseLength is the fewest characters a clause's text may have. Shorter
// drafts are treated as extraction noise and dropped.
const MinClauseLength = 40

// Draft is a clause reconstructed from one heading and its body elements,
// before it is numbered and persisted. Empty SectionNumber or Title means
// the heading carried none.
type Draft struct {
	SectionNumber string `json:"section_number,omitempty"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"text"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
}

// Result is the outcome of Build. Drafts are in heading order.
type Result struct {
	Drafts []Draft
	// Headings is the number of Title elements seen.
	Headings int
	// Discarded counts headings whose clause failed the length gate.
	Discarded int
	// Orphans counts elements whose parent_id names no element in the input.
	Orphans int
}

// Build groups body elements under the heading their parent_id points at and
// emits one Draft per heading, in encounter order. Grouping is single-level:
// a heading whose parent is another heading starts its own clause and is not
// folded into the parent's body, and its page does not widen the parent's
// page span. Missing text, ids or metadata are treated as absent, never as
// errors.
func Build(elements []partition.Element) Result {
	byID := make(map[string]partition.Element, len(elements))
	children := make(map[string][]partition.Element)
	var headings []partition.Element

	for _, el := range elements {
		if el.ElementID != "" {
			byID[el.ElementID] = el
		}
		if el.IsTitle() {
			headings = append(headings, el)
		}
		if parent := el.Metadata.ParentID; parent != "" {
			children[parent] = append(children[parent], el)
		}
	}

	res := Result{Headings: len(headings)}
	for parent, kids := range children {
		if _, ok := byID[parent]; !ok {
			res.Orphans += len(kids)
		}
	}

	for _, heading := range headings {
		draft, ok := buildDraft(heading, children[heading.ElementID])
		if !ok {
			res.Discarded++
			continue
		}
		res.Drafts = append(res.Drafts, draft)
	}
	return res
}

func buildDraft(heading partition.Element, kids []partition.Element) (Draft, bool) {
	header := strings.TrimSpace(heading.Text)
	page := 1
	if heading.Metadata.PageNumber.Valid() {
		page = int(heading.Metadata.PageNumber)
	}
	section, title := ParseHeading(header)

	start, end := page, page
	var body []string
	for _, kid := range kids {
		if kid.IsTitle() {
			continue
		}
		if text := strings.TrimSpace(kid.Text); text != "" {
			body = append(body, text)
		}
		if kid.Metadata.PageNumber.Valid() {
			p := int(kid.Metadata.PageNumber)
			start = min(start, p)
			end = max(end, p)
		}
	}

	text := header
	if len(body) > 0 {
		text = header + "\n" + strings.Join(body, "\n")
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinClauseLength {
		return Draft{}, false
	}

	return Draft{
		SectionNumber: section,
		Title:         title,
		Text:          text,
		PageStart:     start,
		PageEnd:       end,
	}, true
}
