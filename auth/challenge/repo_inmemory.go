package challenge

import (
	"fmt"
	"sync"
)

// InMemoryRepo is an in-memory implementation of Repo. Challenges are
// short-lived and never need to survive a restart.
type InMemoryRepo struct {
	mu         sync.RWMutex
	challenges map[string]Challenge
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		challenges: make(map[string]Challenge),
	}
}

func (r *InMemoryRepo) Upsert(id string, ch Challenge) error {
	if id == "" {
		return fmt.Errorf("challenge id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.challenges[id] = ch
	return nil
}

func (r *InMemoryRepo) Get(id string) (Challenge, error) {
	if id == "" {
		return Challenge{}, fmt.Errorf("challenge id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.challenges[id]
	if !ok {
		return Challenge{}, fmt.Errorf("challenge not found")
	}

	return ch, nil
}

func (r *InMemoryRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.challenges, id)
	return nil
}
