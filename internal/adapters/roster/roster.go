// Package roster resolves the configured organization and its member handles.
package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/domain/dedupe"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/pkg/logger"
)

// OrganizationSource pages through the organization ranking.
type OrganizationSource interface {
	OrganizationPage(ctx context.Context, page int, category string) (source.OrganizationPage, error)
}

// HandleSource lists an organization's member handles in ranking order.
type HandleSource interface {
	MemberHandles(ctx context.Context, organizationID int) iter.Seq2[string, error]
}

// Resolver finds the organization by name and lists its members.
type Resolver struct {
	orgs     OrganizationSource
	primary  HandleSource
	fallback HandleSource
	maxPages int
	log      logger.Logger
}

// New creates a Resolver reading handles from primary.
func New(orgs OrganizationSource, primary HandleSource, opts ...Option) *Resolver {
	r := &Resolver{
		orgs:     orgs,
		primary:  primary,
		maxPages: 2000,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOrganization pages the unfiltered ranking until a page's raw body
// mentions name, then returns the item whose name matches exactly. Pages
// that mention the name without an exact match are skipped. Exhausting the
// listing yields model.ErrNotFound.
func (r *Resolver) ResolveOrganization(ctx context.Context, name string) (model.Organization, error) {
	needles := needlesFor(name)
	for page := 1; page <= r.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return model.Organization{}, err
		}
		p, err := r.orgs.OrganizationPage(ctx, page, "")
		if err != nil {
			return model.Organization{}, fmt.Errorf("resolve organization %q: %w", name, err)
		}
		if len(p.Items) == 0 {
			break
		}
		if !containsAny(p.Raw, needles) {
			continue
		}
		for _, org := range p.Items {
			if org.Name == name {
				org.OrganizationCount = p.Count
				return org, nil
			}
		}
	}
	return model.Organization{}, fmt.Errorf("%w: organization %q", model.ErrNotFound, name)
}

// ResolveHandles lists member handles in ranking order, without duplicates.
// When the primary source fails or returns nothing and a fallback is
// configured, the fallback is used instead.
func (r *Resolver) ResolveHandles(ctx context.Context, organizationID int) ([]string, error) {
	handles, err := source.Collect(r.primary.MemberHandles(ctx, organizationID))
	if err == nil && len(handles) > 0 {
		return unique(handles), nil
	}
	if r.fallback == nil {
		if err != nil {
			return nil, fmt.Errorf("resolve handles: %w", err)
		}
		return nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	r.log.Warn(ctx, "primary roster unusable, using fallback",
		logger.Int("organization_id", organizationID),
		logger.Int("primary_handles", len(handles)),
		logger.Any("primary_error", err))

	fb, fbErr := source.Collect(r.fallback.MemberHandles(ctx, organizationID))
	if fbErr != nil {
		return nil, fmt.Errorf("resolve handles: %w", errors.Join(err, fbErr))
	}
	return unique(fb), nil
}

func unique(handles []string) []string {
	seen := dedupe.New[string](dedupe.WithCapacity(len(handles)))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		if !seen.SeenAndRecord(h) {
			out = append(out, h)
		}
	}
	return out
}

// needlesFor returns the name as it may appear in a JSON body: verbatim and
// with the escaping encoding/json applies.
func needlesFor(name string) [][]byte {
	out := [][]byte{[]byte(name)}
	if enc, err := json.Marshal(name); err == nil && len(enc) >= 2 {
		if esc := enc[1 : len(enc)-1]; !bytes.Equal(esc, out[0]) {
			out = append(out, esc)
		}
	}
	return out
}

func containsAny(raw []byte, needles [][]byte) bool {
	for _, n := range needles {
		if bytes.Contains(raw, n) {
			return true
		}
	}
	return false
}
