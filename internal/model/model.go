package model

// Figure is a PNG image on disk with its pixel dimensions, read once at
// corpus load time so layout math never has to reopen the file.
type Figure struct {
	Path     string `json:"path"`
	WidthPx  int    `json:"width_px"`
	HeightPx int    `json:"height_px"`
}

// Question is one scanned exam question. Immutable once loaded.
type Question struct {
	// ID is "<year>/<folder>", e.g. "2023-2/q17". It doubles as the label
	// printed above the question in the PDF.
	ID           string   `json:"id"`
	Year         string   `json:"year"`
	Folder       string   `json:"folder"`
	Prompt       Figure   `json:"prompt"`
	Alternatives []Figure `json:"alternatives"`
}

// Corpus is the full set of loaded questions in deterministic (collated)
// order. Read-only after load.
type Corpus struct {
	Root      string
	Questions []Question
}

// Years returns the distinct exam years present in the corpus, in the order
// they were loaded.
func (c *Corpus) Years() []string {
	var years []string
	seen := make(map[string]bool)
	for _, q := range c.Questions {
		if !seen[q.Year] {
			seen[q.Year] = true
			years = append(years, q.Year)
		}
	}
	return years
}

// Exam is one assembled simulado: an ordered slice of questions consumed
// once by the renderer.
type Exam struct {
	Index     int
	Questions []Question
}
