// Package attendance implements branch attendance review: the branch
// selector, the per-branch aggregation view, punch logs, approvals and export.
package attendance

import (
	"context"
	"strings"
	"sync"

	"github.com/0xPratikag/clinicctl/internal/api"
	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/notify"
)

// BranchSelector lists branches with their employee and device counts.
type BranchSelector struct {
	client *api.Client
	notify notify.Notifier

	mu       sync.Mutex
	branches []model.Branch
}

// NewBranchSelector returns an empty selector.
func NewBranchSelector(client *api.Client, n notify.Notifier) *BranchSelector {
	return &BranchSelector{client: client, notify: n, branches: []model.Branch{}}
}

// Load fetches the branch list. On failure the list becomes empty and an
// error toast is raised.
func (s *BranchSelector) Load(ctx context.Context) error {
	branches, err := s.client.Branches(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.branches = []model.Branch{}
		s.notify.Error(api.UserMessage(err, "Failed to load branches"))
		return err
	}
	s.branches = branches
	return nil
}

// Branches returns a copy of the loaded list.
func (s *BranchSelector) Branches() []model.Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Branch(nil), s.branches...)
}

// Filter matches q case-insensitively against branch name and email.
// A blank query returns every branch.
func (s *BranchSelector) Filter(q string) []model.Branch {
	all := s.Branches()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return all
	}
	out := make([]model.Branch, 0, len(all))
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Name), q) || strings.Contains(strings.ToLower(b.Email), q) {
			out = append(out, b)
		}
	}
	return out
}

// Find returns the loaded branch with id, if any.
func (s *BranchSelector) Find(id string) (model.Branch, bool) {
	for _, b := range s.Branches() {
		if b.ID == id {
			return b, true
		}
	}
	return model.Branch{}, false
}
