package movie

import (
	"reflect"
	"testing"
)

func TestMerge_RatingPrecedence(t *testing.T) {
	cases := []struct {
		low, high, want float64
	}{
		{3.0, 0, 3.0},
		{0, 4.5, 4.5},
		{2.0, 4.0, 4.0},
	}
	for _, tc := range cases {
		a := Record{ID: "a", Title: "Heat", Year: 1995, Rating: tc.low}
		b := Record{ID: "b", Title: "Heat", Year: 1995, Rating: tc.high}
		out := Merge([]Record{a}, []Record{b})
		if len(out) != 1 {
			t.Fatalf("expected 1 record, got %d", len(out))
		}
		if out[0].Rating != tc.want {
			t.Fatalf("low=%v high=%v: expected %v, got %v", tc.low, tc.high, tc.want, out[0].Rating)
		}
		if out[0].ID != "a" {
			t.Fatalf("expected first id to stick, got %q", out[0].ID)
		}
	}
}

func TestMergeReview(t *testing.T) {
	cases := []struct {
		a, b, want string
	}{
		{"", "B", "B"},
		{"A", "", "A"},
		{"Same", "Same", "Same"},
		{"Good film", "Good film, loved it", "Good film, loved it"},
		{"Good film, loved it", "Good film", "Good film, loved it"},
		{"A", "B", "A\n\n───\n\nB"},
		{"  padded ", "padded", "padded"},
	}
	for _, tc := range cases {
		if got := MergeReview(tc.a, tc.b); got != tc.want {
			t.Fatalf("MergeReview(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMerge_FieldRules(t *testing.T) {
	existing := Record{
		ID: "lb-1", Title: "Arrival", Year: 2016, Director: "Denis Villeneuve",
		Poster: "p1", Backdrop: "b1", Runtime: 116, Genre: []string{"Sci-Fi"},
		WatchedDate: "2024-03-01",
	}
	incoming := Record{
		ID: "rss-1", Title: "arrival", Year: 2016, Poster: "p2",
		WatchedDate: "2023-01-01", Genre: nil,
	}
	out := Merge([]Record{existing}, []Record{incoming})
	got := out[0]

	if got.ID != "lb-1" {
		t.Fatalf("id must not change, got %q", got.ID)
	}
	if got.WatchedDate != "2024-03-01" {
		t.Fatalf("expected later date kept, got %q", got.WatchedDate)
	}
	if got.Poster != "p2" || got.Backdrop != "b1" {
		t.Fatalf("unexpected images: %q %q", got.Poster, got.Backdrop)
	}
	if got.Director != "Denis Villeneuve" || got.Runtime != 116 {
		t.Fatalf("expected existing director/runtime kept: %+v", got)
	}
	if !reflect.DeepEqual(got.Genre, []string{"Sci-Fi"}) {
		t.Fatalf("expected genre kept, got %v", got.Genre)
	}
}

func TestMerge_UnparseableDateLoses(t *testing.T) {
	a := Record{ID: "a", Title: "Heat", Year: 1995, WatchedDate: "not a date"}
	b := Record{ID: "b", Title: "Heat", Year: 1995, WatchedDate: "2020-05-05"}
	out := Merge([]Record{a}, []Record{b})
	if out[0].WatchedDate != "2020-05-05" {
		t.Fatalf("expected parsed date to win, got %q", out[0].WatchedDate)
	}

	out = Merge([]Record{b}, []Record{a})
	if out[0].WatchedDate != "2020-05-05" {
		t.Fatalf("expected parsed date kept, got %q", out[0].WatchedDate)
	}
}

func TestMerge_SortsNewestFirst(t *testing.T) {
	in := []Record{
		{ID: "1", Title: "Old", WatchedDate: "2019-01-01"},
		{ID: "2", Title: "Undated"},
		{ID: "3", Title: "New", WatchedDate: "2024-06-01"},
	}
	out := Merge(in)
	var ids []string
	for _, r := range out {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"3", "1", "2"}) {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	list := []Record{
		{ID: "1", Title: "Arrival", Year: 2016, Rating: 4, Review: "Loved it", WatchedDate: "2024-01-05"},
		{ID: "2", Title: "Heat", Year: 1995, Poster: "p", Genre: []string{"Crime"}},
	}
	once := Merge(list)
	twice := Merge(once, once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\n%+v\n%+v", once, twice)
	}
}

func TestMerge_DoesNotAliasInputGenre(t *testing.T) {
	genre := []string{"Drama"}
	in := []Record{{ID: "1", Title: "X", Genre: genre}}
	out := Merge(in)
	out[0].Genre[0] = "changed"
	if genre[0] != "Drama" {
		t.Fatal("merge output must not share genre storage with input")
	}
}
