package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// Directory is a static class and user directory, seeded from config or tests.
type Directory struct {
	mu      sync.RWMutex
	classes map[string]domain.Class
	users   map[string]domain.User
}

func NewDirectory(classes []domain.Class, users []domain.User) *Directory {
	d := &Directory{
		classes: make(map[string]domain.Class, len(classes)),
		users:   make(map[string]domain.User, len(users)),
	}
	for _, c := range classes {
		d.PutClass(c)
	}
	for _, u := range users {
		d.PutUser(u)
	}
	return d
}

func (d *Directory) PutClass(c domain.Class) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c.StudentIDs = append([]string(nil), c.StudentIDs...)
	d.classes[c.ID] = c
}

func (d *Directory) PutUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) GetClass(_ context.Context, classID string) (domain.Class, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.classes[classID]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	c.StudentIDs = append([]string(nil), c.StudentIDs...)
	return c, nil
}

// GetUsers returns the known users among ids; unknown ids are omitted.
func (d *Directory) GetUsers(_ context.Context, ids []string) (map[string]domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
