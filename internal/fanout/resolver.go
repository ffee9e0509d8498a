package fanout

import (
	"context"
	"fmt"
	"sort"
)

// UserDirectory is the read-only view of the profile store the resolver
// needs. Every List/Filter method returns active accounts only.
type UserDirectory interface {
	ListActiveIDs(ctx context.Context) ([]uint, error)
	ListActiveIDsByCity(ctx context.Context, city string) ([]uint, error)
	ListActiveIDsByDistrict(ctx context.Context, city, district string) ([]uint, error)
	ListActiveIDsByCategory(ctx context.Context, category string) ([]uint, error)
	FilterActive(ctx context.Context, ids []uint) ([]uint, error)
}

// ConversationDirectory resolves conversation membership for message triggers.
type ConversationDirectory interface {
	MemberIDs(ctx context.Context, conversationID string) ([]uint, error)
}

// Resolver computes the deduplicated recipient set for one trigger. It only
// reads; it never writes. The actor and inactive accounts are always excluded.
type Resolver struct {
	users         UserDirectory
	conversations ConversationDirectory
}

// NewResolver creates a Resolver over the given directories.
func NewResolver(users UserDirectory, conversations ConversationDirectory) *Resolver {
	return &Resolver{users: users, conversations: conversations}
}

// Resolve returns the audience for the trigger, sorted for determinism. An
// empty audience is a valid outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, t Trigger) ([]uint, error) {
	var (
		ids []uint
		err error
	)

	switch t.Kind {
	case KindReport:
		ids, err = r.resolveReport(ctx, t)
	case KindFollow:
		ids, err = r.users.FilterActive(ctx, []uint{t.TargetUserID})
	case KindMessage:
		var members []uint
		members, err = r.conversations.MemberIDs(ctx, t.ConversationID)
		if err == nil {
			ids, err = r.users.FilterActive(ctx, members)
		}
	case KindBroadcast:
		if t.TargetUserID != 0 {
			ids, err = r.users.FilterActive(ctx, []uint{t.TargetUserID})
		} else {
			ids, err = r.users.ListActiveIDs(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}

	return dedup(ids, t.ActorID), nil
}

func (r *Resolver) resolveReport(ctx context.Context, t Trigger) ([]uint, error) {
	switch t.Severity {
	case SeverityLow:
		// Deliberate no-push tier: LOW reports stay feed-only.
		return nil, nil
	case SeverityCritical:
		return r.users.ListActiveIDsByCity(ctx, t.City)
	case SeverityHigh:
		if t.District == "" {
			// No district on the trigger: degrade to city-wide.
			return r.users.ListActiveIDsByCity(ctx, t.City)
		}
		return r.users.ListActiveIDsByDistrict(ctx, t.City, t.District)
	case SeverityNormal:
		var district []uint
		if t.District != "" {
			var err error
			district, err = r.users.ListActiveIDsByDistrict(ctx, t.City, t.District)
			if err != nil {
				return nil, err
			}
		}
		subscribers, err := r.users.ListActiveIDsByCategory(ctx, t.Category)
		if err != nil {
			return nil, err
		}
		return append(district, subscribers...), nil
	default:
		return nil, fmt.Errorf("unknown severity %q", t.Severity)
	}
}

// dedup removes duplicates and the actor, returning a sorted slice.
func dedup(ids []uint, actorID uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == actorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
