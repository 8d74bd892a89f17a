package index

// ChapterIndex is the catalog surface consumed by the chapter service.
type ChapterIndex interface {
	UpsertChapter(r ChapterRow) error
	DeleteChapter(path string) error
	GetChecksum(path string) (string, error)
	GetByNumber(number int) (*ChapterRow, error)
	ListChapters(limit, offset int) ([]ChapterRow, int, error)
	Neighbours(number int) (prev, next int, err error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ ChapterIndex = (*DB)(nil)
