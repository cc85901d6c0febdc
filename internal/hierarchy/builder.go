// Package hierarchy reconstructs the account → web property → profile
// tree from the three flat listings the management API returns.
package hierarchy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"gazette/internal/ga"
)

// ErrMalformedIdentifier means an id in a provider listing did not
// match its documented pattern. The tree cannot be built without the
// parent derivation, so this is fatal rather than skipped.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// Web property ids look like "UA-89135-2": the middle field is the
// numeric owning account id.
var webPropertyIDPattern = regexp.MustCompile(`^UA-(\d+)-\d+$`)

// AccountIDFromWebPropertyID parses the owning account id out of a
// "UA-<account>-<sequence>" web property id.
func AccountIDFromWebPropertyID(webPropertyID string) (int64, error) {
	m := webPropertyIDPattern.FindStringSubmatch(webPropertyID)
	if m == nil {
		return 0, fmt.Errorf("%w: web property id %q", ErrMalformedIdentifier, webPropertyID)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: web property id %q: %v", ErrMalformedIdentifier, webPropertyID, err)
	}
	return id, nil
}

// Hierarchy is the three-level mapping offered to the subscriber on the
// configuration path. Each level keeps both a keyed map and the
// insertion order of the source listing, since the provider's ordering
// is meaningful and maps alone would lose it.
type Hierarchy struct {
	Accounts map[int64]*AccountNode `json:"accounts"`
	Order    []int64                `json:"order"`
}

// AccountNode is one account with its web properties.
type AccountNode struct {
	Name       string                   `json:"name"`
	Properties map[string]*PropertyNode `json:"properties"`
	Order      []string                 `json:"order"`
}

// PropertyNode is one web property with its profile names keyed by
// profile id.
type PropertyNode struct {
	Name     string           `json:"name"`
	Profiles map[int64]string `json:"profiles"`
	Order    []int64          `json:"order"`
}

// Build assembles the tree from the flat listings. Accounts seed the
// top level; each web property is filed under the account id parsed
// from its own id; each profile is filed under the property named by
// its webPropertyId field, with the account again derived from that
// string. Parents that appear only implicitly (a property whose account
// is missing from the accounts listing, a profile whose property is
// missing) are still created, with empty names, so nothing listed is
// ever dropped.
func Build(accounts []ga.Account, properties []ga.WebProperty, profiles []ga.Profile) (*Hierarchy, error) {
	h := &Hierarchy{Accounts: make(map[int64]*AccountNode)}

	for _, account := range accounts {
		id, err := strconv.ParseInt(account.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: account id %q", ErrMalformedIdentifier, account.ID)
		}
		node := h.account(id)
		node.Name = account.Name
	}

	for _, property := range properties {
		accountID, err := AccountIDFromWebPropertyID(property.ID)
		if err != nil {
			return nil, err
		}
		node := h.account(accountID).property(property.ID)
		node.Name = property.Name
	}

	for _, profile := range profiles {
		accountID, err := AccountIDFromWebPropertyID(profile.WebPropertyID)
		if err != nil {
			return nil, err
		}
		profileID, err := strconv.ParseInt(profile.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: profile id %q", ErrMalformedIdentifier, profile.ID)
		}
		property := h.account(accountID).property(profile.WebPropertyID)
		if _, ok := property.Profiles[profileID]; !ok {
			property.Order = append(property.Order, profileID)
		}
		property.Profiles[profileID] = profile.Name
	}

	return h, nil
}

func (h *Hierarchy) account(id int64) *AccountNode {
	node, ok := h.Accounts[id]
	if !ok {
		node = &AccountNode{Properties: make(map[string]*PropertyNode)}
		h.Accounts[id] = node
		h.Order = append(h.Order, id)
	}
	return node
}

func (a *AccountNode) property(id string) *PropertyNode {
	node, ok := a.Properties[id]
	if !ok {
		node = &PropertyNode{Profiles: make(map[int64]string)}
		a.Properties[id] = node
		a.Order = append(a.Order, id)
	}
	return node
}
