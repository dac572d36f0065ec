package classify

import (
	"github.com/mark3labs/swiftsdkgen/internal/schema"
	"github.com/mark3labs/swiftsdkgen/internal/spec"
)

// inferDiscriminant looks for the one property every branch pins to a
// string constant. Zero or several candidates mean there is none.
func inferDiscriminant(branches []*schema.Schema) (string, bool) {
	if len(branches) == 0 {
		return "", false
	}
	counts := make(map[string]int)
	var order []string
	for _, b := range branches {
		if b == nil || b.Kind != schema.Object {
			return "", false
		}
		for _, p := range b.Properties {
			if !eligibleDiscriminant(p.Schema) {
				continue
			}
			if counts[p.Name] == 0 {
				order = append(order, p.Name)
			}
			counts[p.Name]++
		}
	}
	var candidates []string
	for _, name := range order {
		if counts[name] == len(branches) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) != 1 {
		return "", false
	}
	return candidates[0], true
}

func eligibleDiscriminant(s *schema.Schema) bool {
	return s != nil && s.Kind == schema.Primitive && s.Type == "string" && s.Const != ""
}

// discriminatorFor builds the discriminator of an all-ref oneOf: explicit
// metadata first, inference over the referenced schemas otherwise.
func (c *Classifier) discriminatorFor(raw *spec.RawSchema, variants []*schema.Schema) (*schema.Discriminator, bool) {
	targets := c.resolveTargets(variants)
	if d := raw.Discriminator; d != nil {
		out := &schema.Discriminator{PropertyName: d.PropertyName, Mapping: copyMapping(d.Mapping)}
		if len(out.Mapping) == 0 && out.PropertyName != "" && targets != nil {
			out.Mapping = constMapping(out.PropertyName, variants, targets)
		}
		return out, true
	}
	if targets == nil {
		return nil, false
	}
	name, ok := inferDiscriminant(targets)
	if !ok {
		return nil, false
	}
	return &schema.Discriminator{PropertyName: name, Mapping: constMapping(name, variants, targets)}, true
}

// resolveTargets classifies the schema each ref variant points at. It returns
// nil when any target is missing or cannot be classified; the target's own
// classification reports that error.
func (c *Classifier) resolveTargets(variants []*schema.Schema) []*schema.Schema {
	// Targets are classified without a schema table so a cycle of oneOf
	// refs cannot recurse.
	shallow := &Classifier{}
	targets := make([]*schema.Schema, len(variants))
	for i, v := range variants {
		raw, ok := c.schemas[v.RefName()]
		if !ok || raw == nil {
			return nil
		}
		t, err := shallow.classify(raw, "", schema.RefTo(v.RefName()))
		if err != nil {
			return nil
		}
		targets[i] = t
	}
	return targets
}

func constMapping(property string, variants, targets []*schema.Schema) map[string]string {
	mapping := make(map[string]string, len(variants))
	for i, t := range targets {
		if p := t.Property(property); eligibleDiscriminant(p) {
			mapping[p.Const] = variants[i].Ref
		}
	}
	return mapping
}

func copyMapping(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
