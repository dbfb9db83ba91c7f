package artifacts

import (
	"time"

	"dispute-assistant/internal/domain/apperrors"
	"dispute-assistant/internal/domain/entities"
	"dispute-assistant/internal/infra/logger"
	"dispute-assistant/internal/infra/repository"

	"github.com/sirupsen/logrus"
)

// Store holds decoded artifacts under their handles. Handles are released
// explicitly when their conversation goes away; the TTL is a backstop so an
// orphaned handle can never pin its bytes forever.
type Store struct {
	log   *logger.Logger
	store *repository.CacheStore[entities.Artifact]
}

func NewStore(ttl time.Duration, log *logger.Logger) *Store {
	s := &Store{log: log}
	s.store = repository.NewCacheStore(ttl, func(id string, artifact entities.Artifact) {
		log.Debug("Artifact released", logrus.Fields{"artifact_id": id, "filename": artifact.Filename})
	})
	return s
}

// Save stores decoded artifacts under their handles.
func (s *Store) Save(decoded []entities.Artifact) {
	for _, artifact := range decoded {
		s.store.Put(artifact.ID, artifact)
	}
}

// Get resolves a handle to its artifact.
func (s *Store) Get(id string) (entities.Artifact, error) {
	artifact, ok := s.store.Get(id)
	if !ok {
		return entities.Artifact{}, apperrors.ErrArtifactNotFound
	}
	return artifact, nil
}

// Release drops the given handles. Unknown handles are ignored.
func (s *Store) Release(ids ...string) {
	for _, id := range ids {
		s.store.Delete(id)
	}
}

func (s *Store) Len() int {
	return s.store.Len()
}
