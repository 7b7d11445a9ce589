package clause

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/partition"
)

const indemnityBody = "Party A shall indemnify Party B for all damages arising from breach of this agreement and any related claims."

func title(id, text string, page int) partition.Element {
	return partition.Element{
		Type:      "Title",
		ElementID: id,
		Text:      text,
		Metadata:  partition.Metadata{PageNumber: partition.PageNumber(page)},
	}
}

func narrative(id, parent, text string, page int) partition.Element {
	return partition.Element{
		Type:      "NarrativeText",
		ElementID: id,
		Text:      text,
		Metadata:  partition.Metadata{PageNumber: partition.PageNumber(page), ParentID: parent},
	}
}

func TestBuildSingleClause(t *testing.T) {
	res := Build([]partition.Element{
		title("t1", "11. Indemnification", 2),
		narrative("n1", "t1", indemnityBody, 2),
	})

	if len(res.Drafts) != 1 {
		t.Fatalf("got %d drafts, want 1", len(res.Drafts))
	}
	d := res.Drafts[0]
	if d.SectionNumber != "11" || d.Title != "Indemnification" {
		t.Errorf("section/title = %q/%q", d.SectionNumber, d.Title)
	}
	if want := "11. Indemnification\n" + indemnityBody; d.Text != want {
		t.Errorf("text = %q, want %q", d.Text, want)
	}
	if d.PageStart != 2 || d.PageEnd != 2 {
		t.Errorf("pages = %d-%d, want 2-2", d.PageStart, d.PageEnd)
	}
}

func TestBuildDropsShortClauses(t *testing.T) {
	res := Build([]partition.Element{
		title("t1", "Governing Law", 5),
	})
	if len(res.Drafts) != 0 {
		t.Fatalf("expected short heading to be discarded, got %+v", res.Drafts)
	}
	if res.Discarded != 1 || res.Headings != 1 {
		t.Errorf("discarded=%d headings=%d", res.Discarded, res.Headings)
	}
}

func TestBuildLengthGateBoundary(t *testing.T) {
	exact := strings.Repeat("a", MinClauseLength)
	short := strings.Repeat("b", MinClauseLength-1)
	res := Build([]partition.Element{
		title("t1", exact, 1),
		title("t2", "  "+short+"  ", 1),
	})
	if len(res.Drafts) != 1 || res.Drafts[0].Text != exact {
		t.Errorf("drafts = %+v, want only the %d-character heading", res.Drafts, MinClauseLength)
	}
}

func TestBuildLengthCountsCharactersNotBytes(t *testing.T) {
	// 39 two-byte runes: 78 bytes but still below the gate.
	res := Build([]partition.Element{title("t1", strings.Repeat("é", MinClauseLength-1), 1)})
	if len(res.Drafts) != 0 {
		t.Errorf("expected rune-counted gate to drop the clause")
	}
}

func TestBuildHeadingWithoutChildrenKeptWhenLongEnough(t *testing.T) {
	heading := "14. Entire Agreement and Order of Precedence Between Documents"
	res := Build([]partition.Element{title("t1", heading, 9)})
	if len(res.Drafts) != 1 {
		t.Fatalf("got %d drafts", len(res.Drafts))
	}
	if res.Drafts[0].Text != heading {
		t.Errorf("text = %q", res.Drafts[0].Text)
	}
}

func TestBuildPreservesHeadingOrderAndChildOrder(t *testing.T) {
	res := Build([]partition.Element{
		title("a", "2. Second heading in the document", 1),
		narrative("a1", "a", "first line of the second heading", 1),
		title("b", "1. First numbered but appears later", 3),
		narrative("b1", "b", "body of b", 3),
		narrative("a2", "a", "second line of the second heading", 2),
	})
	if len(res.Drafts) != 2 {
		t.Fatalf("got %d drafts", len(res.Drafts))
	}
	if res.Drafts[0].SectionNumber != "2" || res.Drafts[1].SectionNumber != "1" {
		t.Errorf("order = %q, %q; want encounter order", res.Drafts[0].SectionNumber, res.Drafts[1].SectionNumber)
	}
	want := "2. Second heading in the document\nfirst line of the second heading\nsecond line of the second heading"
	if res.Drafts[0].Text != want {
		t.Errorf("text = %q, want %q", res.Drafts[0].Text, want)
	}
	if res.Drafts[0].PageStart != 1 || res.Drafts[0].PageEnd != 2 {
		t.Errorf("pages = %d-%d, want 1-2", res.Drafts[0].PageStart, res.Drafts[0].PageEnd)
	}
}

func TestBuildPageSpanIncludesHeadingPage(t *testing.T) {
	res := Build([]partition.Element{
		title("t1", "5. Confidentiality", 4),
		narrative("n1", "t1", "Each party shall keep the other's information confidential.", 6),
		narrative("n2", "t1", "Except as required by law.", 3),
	})
	d := res.Drafts[0]
	if d.PageStart != 3 || d.PageEnd != 6 {
		t.Errorf("pages = %d-%d, want 3-6", d.PageStart, d.PageEnd)
	}
}

func TestBuildMissingPagesDefaultToOne(t *testing.T) {
	res := Build([]partition.Element{
		title("t1", "3. Term and Termination of this Agreement", 0),
		narrative("n1", "t1", "This agreement runs for two years.", 0),
	})
	d := res.Drafts[0]
	if d.PageStart != 1 || d.PageEnd != 1 {
		t.Errorf("pages = %d-%d, want 1-1", d.PageStart, d.PageEnd)
	}
	if d.PageStart > d.PageEnd {
		t.Error("page_start must not exceed page_end")
	}
}

func TestBuildSkipsEmptyChildTextButKeepsItsPage(t *testing.T) {
	res := Build([]partition.Element{
		title("t1", "6. Limitation of Liability and Damages", 2),
		narrative("n1", "t1", "   ", 7),
		narrative("n2", "t1", "Neither party is liable for indirect damages.", 2),
	})
	d := res.Drafts[0]
	if strings.Count(d.Text, "\n") != 1 {
		t.Errorf("empty child text should not add a line: %q", d.Text)
	}
	if d.PageEnd != 7 {
		t.Errorf("page_end = %d, want 7", d.PageEnd)
	}
}

func TestBuildTitleMatchIsCaseInsensitive(t *testing.T) {
	el := title("t1", "8. Assignment of Rights and Obligations", 1)
	el.Type = "title"
	res := Build([]partition.Element{el, narrative("n1", "t1", "No assignment without consent.", 1)})
	if len(res.Drafts) != 1 {
		t.Fatalf("lower-case type should anchor a clause")
	}
}

func TestBuildIgnoresUngroupedAndOrphanElements(t *testing.T) {
	res := Build([]partition.Element{
		{Type: "Header", Text: "ACME CONFIDENTIAL"},
		title("t1", "9. Force Majeure Events and Notice", 1),
		narrative("n1", "t1", "Neither party is liable for events beyond control.", 1),
		narrative("n2", "missing", "This paragraph points at nothing.", 1),
		{Type: "NarrativeText", Text: "No parent at all."},
	})
	if len(res.Drafts) != 1 {
		t.Fatalf("got %d drafts", len(res.Drafts))
	}
	if strings.Contains(res.Drafts[0].Text, "points at nothing") {
		t.Error("orphan text leaked into a clause")
	}
	if res.Orphans != 1 {
		t.Errorf("orphans = %d, want 1", res.Orphans)
	}
}

func TestBuildNestedHeadingsStaySingleLevel(t *testing.T) {
	parent := title("t1", "10. Representations and Warranties", 1)
	child := title("t2", "10.1 Authority to Enter this Agreement", 3)
	child.Metadata.ParentID = "t1"
	res := Build([]partition.Element{
		parent,
		narrative("n1", "t1", "Each party represents the following.", 1),
		child,
		narrative("n2", "t2", "Each party has full power and authority.", 1),
	})
	if len(res.Drafts) != 2 {
		t.Fatalf("got %d drafts, want 2", len(res.Drafts))
	}
	if strings.Contains(res.Drafts[0].Text, "10.1") {
		t.Errorf("nested heading folded into parent: %q", res.Drafts[0].Text)
	}
	if res.Drafts[0].PageStart != 1 || res.Drafts[0].PageEnd != 1 {
		t.Errorf("parent span = %d-%d, want 1-1", res.Drafts[0].PageStart, res.Drafts[0].PageEnd)
	}
	if res.Drafts[1].SectionNumber != "10.1" {
		t.Errorf("nested heading section = %q", res.Drafts[1].SectionNumber)
	}
}

func TestBuildHeadingWithoutIDGetsNoChildren(t *testing.T) {
	res := Build([]partition.Element{
		title("", "13. Miscellaneous Provisions and Interpretation", 1),
		narrative("n1", "", "Ungrouped text.", 1),
	})
	if len(res.Drafts) != 1 || strings.Contains(res.Drafts[0].Text, "Ungrouped") {
		t.Errorf("drafts = %+v", res.Drafts)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	res := Build(nil)
	if len(res.Drafts) != 0 || res.Headings != 0 {
		t.Errorf("res = %+v", res)
	}
}
