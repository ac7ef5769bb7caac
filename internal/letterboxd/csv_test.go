package letterboxd

import (
	"strings"
	"testing"
)

func TestParseCSV_DropsBlankRows(t *testing.T) {
	in := "\ufeffDate,Name,Year,Letterboxd URI,Rating\n" +
		"2024-01-05,Arrival,2016,https://boxd.it/abc,4\n" +
		",,,,\n" +
		"2023-02-01,\"Paris, Texas\",1984,,4.5\n"

	rows, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0]["Date"] != "2024-01-05" {
		t.Fatalf("BOM not stripped from header: %v", rows[0])
	}
	if rows[1]["Name"] != "Paris, Texas" {
		t.Fatalf("unexpected quoted name %q", rows[1]["Name"])
	}
}

func TestParseCSV_Empty(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(""))
	if err != nil || rows != nil {
		t.Fatalf("expected no rows and no error, got %v %v", rows, err)
	}
}

func TestParseCSV_ShortRow(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("Name,Year,Rating\nHeat,1995\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["Year"] != "1995" || rows[0]["Rating"] != "" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestRowToRecord_RejectsEmptyTitle(t *testing.T) {
	for _, kind := range Kinds {
		if _, ok := RowToRecord(Row{"Name": "", "Year": "2020"}, kind); ok {
			t.Fatalf("%s: expected row without title to be rejected", kind)
		}
	}
}

func TestRowToRecord_Fields(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		row  Row
		want func(t *testing.T, title string, year int, rating float64, watched, review, id string)
	}{
		{
			name: "reviews prefer watched date",
			kind: KindReviews,
			row: Row{"Name": "Arrival", "Year": "2016", "Rating": "4", "Review": " Loved it ",
				"Watched Date": "2024-01-05", "Date": "2024-01-07", "Letterboxd URI": "https://boxd.it/a"},
			want: func(t *testing.T, title string, year int, rating float64, watched, review, id string) {
				if title != "Arrival" || year != 2016 || rating != 4 || watched != "2024-01-05" ||
					review != "Loved it" || id != "https://boxd.it/a" {
					t.Fatalf("unexpected %q %d %v %q %q %q", title, year, rating, watched, review, id)
				}
			},
		},
		{
			name: "watched forces zero rating",
			kind: KindWatched,
			row:  Row{"Name": "Heat", "Year": "1995", "Rating": "5", "Date": "2022-03-01"},
			want: func(t *testing.T, title string, year int, rating float64, watched, review, id string) {
				if rating != 0 {
					t.Fatalf("expected rating 0, got %v", rating)
				}
				if id != "Heat-2022-03-01" {
					t.Fatalf("unexpected synthetic id %q", id)
				}
			},
		},
		{
			name: "garbage numbers default to zero",
			kind: KindRatings,
			row:  Row{"Name": "Heat", "Year": "n/a", "Rating": "good"},
			want: func(t *testing.T, title string, year int, rating float64, watched, review, id string) {
				if year != 0 || rating != 0 {
					t.Fatalf("expected zero year and rating, got %d %v", year, rating)
				}
				if id != "Heat-unknown" {
					t.Fatalf("unexpected synthetic id %q", id)
				}
			},
		},
		{
			name: "diary falls back to date",
			kind: KindDiary,
			row:  Row{"Name": "Heat", "Year": "1995", "Rating": "3.5", "Date": "2021-07-09"},
			want: func(t *testing.T, title string, year int, rating float64, watched, review, id string) {
				if watched != "2021-07-09" || rating != 3.5 {
					t.Fatalf("unexpected watched %q rating %v", watched, rating)
				}
			},
		},
		{
			name: "review column ignored outside reviews",
			kind: KindDiary,
			row:  Row{"Name": "Heat", "Date": "2021-07-09", "Review": "Diner scene."},
			want: func(t *testing.T, title string, year int, rating float64, watched, review, id string) {
				if review != "" {
					t.Fatalf("diary row should carry no review, got %q", review)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := RowToRecord(tt.row, tt.kind)
			if !ok {
				t.Fatal("expected row to be accepted")
			}
			tt.want(t, rec.Title, rec.Year, rec.Rating, rec.WatchedDate, rec.Review, rec.ID)
		})
	}
}

func TestKindFileName(t *testing.T) {
	if got := KindDiary.FileName(); got != "diary.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
}
