// Package dedup finds vault items with identical plaintext content.
// Equality is defined purely on the content hash; filenames and dates
// play no part.
package dedup

import (
	"sort"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
	"github.com/TheMichaelB/mediavault/internal/store"
)

// KeepPolicy selects the representative of a duplicate group.
type KeepPolicy int

const (
	// KeepOldest retains the item with the earliest creation date.
	KeepOldest KeepPolicy = iota

	// KeepNewest retains the item with the latest creation date.
	KeepNewest
)

// Group is a set of items sharing one content hash, size > 1.
type Group struct {
	ContentHash string
	Items       []*models.VaultItem
}

// Resolution reports what a Resolve pass did to one group.
type Resolution struct {
	ContentHash string
	KeptID      string
	DeletedIDs  []string
	Errs        []error
}

// Service detects and resolves duplicates.
type Service struct {
	store  *store.Store
	logger *events.Logger
}

// NewService creates a duplicate detector.
func NewService(st *store.Store, logger *events.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.WithField("service", "dedup"),
	}
}

// FindDuplicates groups items by content hash and returns the groups
// with more than one member. Flagged items are excluded; their
// content can no longer be verified.
func (s *Service) FindDuplicates() []Group {
	byHash := make(map[string][]*models.VaultItem)
	for _, item := range s.store.List() {
		if item.Flagged {
			continue
		}
		byHash[item.ContentHash] = append(byHash[item.ContentHash], item)
	}

	var groups []Group
	for hash, items := range byHash {
		if len(items) < 2 {
			continue
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].CreationDate.Equal(items[j].CreationDate) {
				return items[i].ID < items[j].ID
			}
			return items[i].CreationDate.Before(items[j].CreationDate)
		})
		groups = append(groups, Group{ContentHash: hash, Items: items})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ContentHash < groups[j].ContentHash
	})
	return groups
}

// Resolve keeps one representative per group according to policy and
// deletes the rest. Deletion failures are collected per item; one
// failure never aborts the pass.
func (s *Service) Resolve(groups []Group, policy KeepPolicy) []Resolution {
	resolutions := make([]Resolution, 0, len(groups))
	for _, g := range groups {
		if len(g.Items) < 2 {
			continue
		}

		// Items arrive sorted oldest first.
		keep := g.Items[0]
		if policy == KeepNewest {
			keep = g.Items[len(g.Items)-1]
		}

		res := Resolution{ContentHash: g.ContentHash, KeptID: keep.ID}
		for _, item := range g.Items {
			if item.ID == keep.ID {
				continue
			}
			if err := s.store.Delete(item.ID); err != nil {
				res.Errs = append(res.Errs, &models.ItemError{ID: item.ID, Stage: "delete", Err: err})
				continue
			}
			res.DeletedIDs = append(res.DeletedIDs, item.ID)
		}

		s.logger.WithFields(map[string]interface{}{
			"hash":    g.ContentHash[:12],
			"kept":    keep.ID,
			"deleted": len(res.DeletedIDs),
		}).Info("Duplicate group resolved")
		resolutions = append(resolutions, res)
	}
	return resolutions
}
