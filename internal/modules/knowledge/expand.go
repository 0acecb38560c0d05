package knowledge

import (
	"context"
	"sort"

	"github.com/lingokit/core/internal/models"
)

// edgeLoader fetches every edge touching any of the given concept ids. The
// gorm-backed Service implements it; tests substitute an in-memory graph.
type edgeLoader interface {
	edgesTouching(ctx context.Context, ids []string) ([]models.ConceptEdgeModel, error)
}

// expandIDs walks the graph breadth-first from the seed ids, following
//
//   - is_a and prerequisite_of edges in both directions (an error on a
//     concept makes both its generalizations and its prerequisites relevant),
//   - related_to edges symmetrically.
//
// Visited-set dedup guarantees termination on cyclic graphs, and the hop cap
// bounds the result size on dense related_to neighborhoods. When ctx is
// cancelled mid-walk the ids gathered so far are returned: a partial
// expansion is always preferred over failing the turn.
func expandIDs(ctx context.Context, loader edgeLoader, seeds []string, maxHops int) ([]string, error) {
	if maxHops > MaxHops {
		maxHops = MaxHops
	}

	visited := make(map[string]struct{}, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if id == "" {
			continue
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		if ctx.Err() != nil {
			break
		}

		edges, err := loader.edgesTouching(ctx, frontier)
		if err != nil {
			if len(visited) > 0 {
				break
			}
			return nil, err
		}

		inFrontier := make(map[string]struct{}, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = struct{}{}
		}

		var next []string
		add := func(id string) {
			if _, ok := visited[id]; ok {
				return
			}
			visited[id] = struct{}{}
			next = append(next, id)
		}

		for _, e := range edges {
			_, fromSource := inFrontier[e.SourceID]
			_, fromTarget := inFrontier[e.TargetID]
			if fromSource {
				add(e.TargetID)
			}
			if fromTarget {
				add(e.SourceID)
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
