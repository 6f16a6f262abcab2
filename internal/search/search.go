package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	UniqueHash string `json:"uniqueHash"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push stories into a search index.
type Indexer interface {
	IndexStory(rec StoryRecord) error
	DeleteStory(id string) error
}

// StoryRecord is the data we index for a story. Only published stories with
// the public audience are searchable; the rest are removed from the index.
type StoryRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	UniqueHash string `json:"uniqueHash"`
	Audience   string `json:"audience"`
	Published  bool   `json:"published"`
}

// Searchable reports whether the record belongs in the public index.
func (r StoryRecord) Searchable() bool {
	return r.Published && r.Audience == "all"
}
