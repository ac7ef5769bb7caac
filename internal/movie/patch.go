package movie

// Patch is a sparse update produced by background enrichment. Empty/zero
// fields carry no change.
type Patch struct {
	ID       string  `json:"id"`
	Poster   string  `json:"poster,omitempty"`
	Backdrop string  `json:"backdrop,omitempty"`
	Review   string  `json:"review,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Poster == "" && p.Backdrop == "" && p.Review == "" && p.Rating <= 0
}

// Apply fills only the fields r still lacks, so a late patch never
// clobbers a value that landed in the meantime.
func (p Patch) Apply(r Record) Record {
	out := r.clone()
	if out.Poster == "" && p.Poster != "" {
		out.Poster = p.Poster
	}
	if out.Backdrop == "" && p.Backdrop != "" {
		out.Backdrop = p.Backdrop
	}
	if out.Review == "" && p.Review != "" {
		out.Review = p.Review
	}
	if out.Rating <= 0 && p.Rating > 0 {
		out.Rating = p.Rating
	}
	return out
}

// ApplyPatches applies patches to list by record id and returns a new list in
// the original order. Patches for unknown ids are ignored; several patches
// for one id apply in argument order.
func ApplyPatches(list []Record, patches ...[]Patch) ([]Record, int) {
	byID := make(map[string][]Patch)
	for _, set := range patches {
		for _, p := range set {
			if p.ID == "" || p.Empty() {
				continue
			}
			byID[p.ID] = append(byID[p.ID], p)
		}
	}

	out := make([]Record, len(list))
	changed := 0
	for i, rec := range list {
		ps, ok := byID[rec.ID]
		if !ok {
			out[i] = rec
			continue
		}
		next := rec
		for _, p := range ps {
			next = p.Apply(next)
		}
		if !sameEnrichedFields(rec, next) {
			changed++
		}
		out[i] = next
	}
	return out, changed
}

func sameEnrichedFields(a, b Record) bool {
	return a.Poster == b.Poster && a.Backdrop == b.Backdrop && a.Review == b.Review && a.Rating == b.Rating
}
