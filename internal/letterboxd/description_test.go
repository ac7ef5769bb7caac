package letterboxd

import "testing"

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantPoster string
		wantReview string
	}{
		{name: "empty"},
		{
			name:       "image and paragraphs",
			html:       `<p><img src="https://img/p.jpg"/></p><p>First.</p><p>  </p><p>Second.</p>`,
			wantPoster: "https://img/p.jpg",
			wantReview: "First.\n\nSecond.",
		},
		{
			name:       "boilerplate skipped",
			html:       `<p>Watched on Sunday May 5, 2024.</p><p>This review may contain spoilers. I can handle the truth.</p>`,
			wantReview: "",
		},
		{
			name:       "contains spoilers variant skipped",
			html:       `<p>This review contains spoilers.</p><p>Great.</p>`,
			wantReview: "Great.",
		},
		{
			name:       "spoilers mentioned in prose kept",
			html:       `<p>No spoilersville here.</p>`,
			wantReview: "No spoilersville here.",
		},
		{
			name:       "no paragraphs",
			html:       `Just text`,
			wantReview: "Just text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster, review := ParseDescription(tt.html)
			if poster != tt.wantPoster || review != tt.wantReview {
				t.Fatalf("got %q %q, want %q %q", poster, review, tt.wantPoster, tt.wantReview)
			}
		})
	}
}
