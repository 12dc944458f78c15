package ingest

import (
	"fmt"
	"path"
	"strings"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/pkg/filterexpr"
	"github.com/eslsoft/vidya/pkg/ordinal"
)

// itemSchema lists the variables a --where expression may use.
var itemSchema = filterexpr.Schema{
	"name":       filterexpr.KindString,
	"path":       filterexpr.KindString,
	"index":      filterexpr.KindNumber,
	"number":     filterexpr.KindNumber,
	"collection": filterexpr.KindString,
}

// itemVars builds the expression variables for the item at index.
func itemVars(col entity.Collection, item string, index int) map[string]any {
	name := path.Base(item)
	return map[string]any{
		"name":       name,
		"path":       item,
		"index":      index,
		"number":     ordinal.Resolve(strings.TrimSuffix(name, path.Ext(name))),
		"collection": col.Name,
	}
}

// selectItems applies, in order, the single-item filter, the expression
// filter and the limit.
func selectItems(col entity.Collection, items []string, req Request) ([]string, error) {
	pred, err := filterexpr.Compile(req.Where, itemSchema)
	if err != nil {
		return nil, fmt.Errorf("compile --where: %w", err)
	}

	var out []string
	for i, item := range items {
		if req.Item != "" && !matchesItem(item, req.Item) {
			continue
		}
		ok, err := pred.Match(itemVars(col, item, i))
		if err != nil {
			return nil, fmt.Errorf("evaluate --where on %s: %w", item, err)
		}
		if !ok {
			continue
		}
		out = append(out, item)
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
	}
	return out, nil
}

// matchesItem accepts the full path, the file name, or the file name without
// its extension.
func matchesItem(item, want string) bool {
	name := path.Base(item)
	return item == want || name == want || strings.TrimSuffix(name, path.Ext(name)) == want
}
