package core

// DocumentStore persists session-scoped fetched documents (page content,
// downloaded files). Keyed by session ID and document ID.
type DocumentStore interface {
	Save(sessionID, id string, data []byte) error
	Get(sessionID, id string) ([]byte, error)
	List(sessionID string) ([]string, error)
}
