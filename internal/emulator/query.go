package emulator

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"feedsync/internal/remote"
)

// listPlan is a parsed set of list queries.
type listPlan struct {
	filters []remote.Query
	orders  []remote.Query
	limit   int
	offset  int
}

const maxListLimit = 5000

func parseListQueries(raw []string) (*listPlan, error) {
	plan := &listPlan{limit: defaultListLimit}
	for _, r := range raw {
		q, err := remote.ParseQuery(r)
		if err != nil {
			return nil, invalidArgument(fmt.Sprintf("Invalid query: Syntax error in %q", r))
		}
		switch q.Method {
		case "equal":
			if q.Attribute == "" || len(q.Values) == 0 {
				return nil, invalidArgument("Invalid query: Equal queries require an attribute and at least one value")
			}
			plan.filters = append(plan.filters, q)
		case "orderAsc", "orderDesc":
			if q.Attribute == "" {
				return nil, invalidArgument("Invalid query: Order queries require an attribute")
			}
			plan.orders = append(plan.orders, q)
		case "limit":
			n, err := intValue(q)
			if err != nil || n < 0 || n > maxListLimit {
				return nil, invalidArgument(fmt.Sprintf("Invalid query: Limit must be between 0 and %d", maxListLimit))
			}
			plan.limit = n
		case "offset":
			n, err := intValue(q)
			if err != nil || n < 0 {
				return nil, invalidArgument("Invalid query: Offset must be a non-negative integer")
			}
			plan.offset = n
		default:
			return nil, invalidArgument(fmt.Sprintf("Invalid query method: %s", q.Method))
		}
	}
	return plan, nil
}

func intValue(q remote.Query) (int, error) {
	if len(q.Values) != 1 {
		return 0, fmt.Errorf("%s takes exactly one value", q.Method)
	}
	f, ok := q.Values[0].(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("%s value must be an integer", q.Method)
	}
	return int(f), nil
}

// apply filters, orders and pages docs. It returns the page and the number of
// documents that matched before paging.
func (p *listPlan) apply(docs []map[string]any) ([]map[string]any, int) {
	matched := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		if p.matches(doc) {
			matched = append(matched, doc)
		}
	}

	if len(p.orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range p.orders {
				c := compareValues(matched[i][o.Attribute], matched[j][o.Attribute])
				if c == 0 {
					continue
				}
				if o.Method == "orderDesc" {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	total := len(matched)
	if p.offset >= total {
		return []map[string]any{}, total
	}
	end := total
	if p.offset+p.limit < end {
		end = p.offset + p.limit
	}
	return matched[p.offset:end], total
}

func (p *listPlan) matches(doc map[string]any) bool {
	for _, f := range p.filters {
		v := doc[f.Attribute]
		found := false
		for _, want := range f.Values {
			if reflect.DeepEqual(v, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// compareValues orders JSON scalars. Timestamps compare chronologically,
// missing values sort first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			ta, errA := time.Parse(time.RFC3339Nano, av)
			tb, errB := time.Parse(time.RFC3339Nano, bv)
			if errA == nil && errB == nil {
				return ta.Compare(tb)
			}
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
