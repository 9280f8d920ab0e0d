package exchange

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/nexusmap/nexus/internal/types"
)

// ValidationError rejects an import. Path locates the offending value
// ("nodes[3].position.x"); it is empty for document-level problems.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid project document: %s", e.Reason)
	}
	return fmt.Sprintf("invalid project document at %s: %s", e.Path, e.Reason)
}

func invalid(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func isBool(r gjson.Result) bool {
	return r.Type == gjson.True || r.Type == gjson.False
}

func requireString(r gjson.Result, key, path string) error {
	v := r.Get(key)
	if !v.Exists() {
		return invalid(path, "is required")
	}
	if v.Type != gjson.String {
		return invalid(path, "must be a string")
	}
	return nil
}

func optionalString(r gjson.Result, key, path string) error {
	if v := r.Get(key); v.Exists() && v.Type != gjson.String {
		return invalid(path, "must be a string")
	}
	return nil
}

// validate checks the shape of an exported document without decoding it.
func validate(data []byte) error {
	if !gjson.ValidBytes(data) {
		return invalid("", "malformed JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return invalid("", "must be a JSON object")
	}

	if err := requireString(doc, "name", "name"); err != nil {
		return err
	}
	for _, key := range []string{"id", "description", "color", "version"} {
		if err := optionalString(doc, key, key); err != nil {
			return err
		}
	}

	nodes := doc.Get("nodes")
	if !nodes.IsArray() {
		return invalid("nodes", "must be an array")
	}
	edges := doc.Get("edges")
	if !edges.IsArray() {
		return invalid("edges", "must be an array")
	}

	seen := make(map[string]bool)
	roots := 0
	for i, n := range nodes.Array() {
		path := fmt.Sprintf("nodes[%d]", i)
		kind, err := validateNode(n, path)
		if err != nil {
			return err
		}
		id := n.Get("id").String()
		if seen[id] {
			return invalid(path+".id", "duplicate node id %q", id)
		}
		seen[id] = true
		if kind == types.KindRoot {
			roots++
		}
	}

	for i, e := range edges.Array() {
		path := fmt.Sprintf("edges[%d]", i)
		if !e.IsObject() {
			return invalid(path, "must be an object")
		}
		for _, key := range []string{"id", "source", "target"} {
			if err := requireString(e, key, path+"."+key); err != nil {
				return err
			}
		}
		if style := e.Get("style"); style.Exists() && !style.IsObject() {
			return invalid(path+".style", "must be an object")
		}
		if src := e.Get("source").String(); !seen[src] {
			return invalid(path+".source", "references unknown node %q", src)
		}
		if dst := e.Get("target").String(); !seen[dst] {
			return invalid(path+".target", "references unknown node %q", dst)
		}
	}

	if roots == 0 {
		return invalid("nodes", "must contain a root node")
	}
	return nil
}

func validateNode(n gjson.Result, path string) (types.NodeKind, error) {
	if !n.IsObject() {
		return "", invalid(path, "must be an object")
	}
	if err := requireString(n, "id", path+".id"); err != nil {
		return "", err
	}
	if err := requireString(n, "type", path+".type"); err != nil {
		return "", err
	}
	kind := types.NodeKind(n.Get("type").String())
	if !kind.IsValid() {
		return "", invalid(path+".type", "unknown node type %q", kind)
	}

	pos := n.Get("position")
	if !pos.IsObject() {
		return "", invalid(path+".position", "must be an object")
	}
	for _, axis := range []string{"x", "y"} {
		if pos.Get(axis).Type != gjson.Number {
			return "", invalid(path+".position."+axis, "must be a number")
		}
	}

	data := n.Get("data")
	if !data.IsObject() {
		return "", invalid(path+".data", "must be an object")
	}
	if err := requireString(data, "label", path+".data.label"); err != nil {
		return "", err
	}

	switch kind {
	case types.KindTask:
		if err := requireString(data, "status", path+".data.status"); err != nil {
			return "", err
		}
		if _, err := types.ParseTaskStatus(data.Get("status").String()); err != nil {
			return "", invalid(path+".data.status", "unknown status %q", data.Get("status").String())
		}
		if err := optionalString(data, "description", path+".data.description"); err != nil {
			return "", err
		}
		if err := optionalString(data, "phaseId", path+".data.phaseId"); err != nil {
			return "", err
		}
	case types.KindPhase:
		if err := optionalString(data, "description", path+".data.description"); err != nil {
			return "", err
		}
		if v := data.Get("isExpanded"); v.Exists() && !isBool(v) {
			return "", invalid(path+".data.isExpanded", "must be a boolean")
		}
	}
	return kind, nil
}
