package clause

import "testing"

func TestParseHeading(t *testing.T) {
	tests := []struct {
		header  string
		section string
		title   string
	}{
		{"11. Indemnification", "11", "Indemnification"},
		{"12 Intellectual Property Indemnification", "12", "Intellectual Property Indemnification"},
		{"  12.3.  Survival  ", "12.3", "Survival"},
		{"4.1.2 Notices", "4.1.2", "Notices"},
		{"Governing Law", "", "Governing Law"},
		{"  Governing Law  ", "", "Governing Law"},
		{"7.", "7", ""},
		{"42", "42", ""},
		{"", "", ""},
		{"   ", "", ""},
		{"Section 5. Term", "", "Section 5. Term"},
		{"2.Payment", "2", "Payment"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			section, title := ParseHeading(tt.header)
			if section != tt.section || title != tt.title {
				t.Errorf("ParseHeading(%q) = (%q, %q), want (%q, %q)",
					tt.header, section, title, tt.section, tt.title)
			}
		})
	}
}
