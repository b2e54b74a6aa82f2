// Package membership adapts the external membership directory service to
// the permission engine's Directory contract.
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/crewbase/crewbase/internal/permissions"
)

const defaultTimeout = 5 * time.Second

// Client calls the membership directory over HTTP. The directory owns
// membership lifecycle and role assignment; this client only reads.
type Client struct {
	baseURL  string
	http     *http.Client
	collator *collate.Collator
}

// NewClient constructs a directory client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		collator: collate.New(language.Und, collate.IgnoreCase),
	}
}

type memberPayload struct {
	MemberID    int64  `json:"memberId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

type membersPayload struct {
	Members []memberPayload `json:"members"`
}

// ProjectMembers lists the project's memberships, ordered alphabetically
// by display name. This ordering carries through to the permission matrix.
func (c *Client) ProjectMembers(ctx context.Context, projectID int64) ([]permissions.Membership, error) {
	url := fmt.Sprintf("%s/projects/%d/members", c.baseURL, projectID)
	var payload membersPayload
	if err := c.get(ctx, url, &payload, permissions.ErrProjectNotFound); err != nil {
		return nil, err
	}

	members := make([]permissions.Membership, len(payload.Members))
	for i, m := range payload.Members {
		members[i] = permissions.Membership{
			MemberID:    m.MemberID,
			ProjectID:   projectID,
			Role:        m.Role,
			DisplayName: m.DisplayName,
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return c.collator.CompareString(members[i].DisplayName, members[j].DisplayName) < 0
	})
	return members, nil
}

// Member fetches a single membership.
func (c *Client) Member(ctx context.Context, projectID, memberID int64) (permissions.Membership, error) {
	url := fmt.Sprintf("%s/projects/%d/members/%d", c.baseURL, projectID, memberID)
	var payload memberPayload
	if err := c.get(ctx, url, &payload, permissions.ErrMemberNotFound); err != nil {
		return permissions.Membership{}, err
	}
	return permissions.Membership{
		MemberID:    payload.MemberID,
		ProjectID:   projectID,
		Role:        payload.Role,
		DisplayName: payload.DisplayName,
	}, nil
}

// get performs the round-trip and maps transport failures to the engine's
// dependency error so callers never see a partial result.
func (c *Client) get(ctx context.Context, url string, target any, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", permissions.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("%w: decode response: %v", permissions.ErrDependencyUnavailable, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return notFound
	default:
		return fmt.Errorf("%w: directory returned status %d", permissions.ErrDependencyUnavailable, resp.StatusCode)
	}
}
