package repository

// Store is the contract for keyed in-memory storage of session-scoped state.
// Implementations may expire entries; a Get after expiry simply reports false.
type Store[T any] interface {
	Put(id string, entity T)
	Get(id string) (T, bool)
	Delete(id string)
	Len() int
}
