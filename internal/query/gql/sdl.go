package gql

import (
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
)

// PrintSDL renders the object types of schema in schema definition language.
// Query and Mutation come first, remaining types follow by name; fields are
// ordered with id first and the rest alphabetically so output is stable.
func PrintSDL(schema graphql.Schema) string {
	var objects []*graphql.Object
	seen := map[string]bool{}
	add := func(obj *graphql.Object) {
		if obj == nil || seen[obj.Name()] {
			return
		}
		seen[obj.Name()] = true
		objects = append(objects, obj)
	}
	add(schema.QueryType())
	add(schema.MutationType())

	var rest []*graphql.Object
	for name, typ := range schema.TypeMap() {
		obj, ok := typ.(*graphql.Object)
		if !ok || strings.HasPrefix(name, "__") || seen[name] {
			continue
		}
		rest = append(rest, obj)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Name() < rest[j].Name() })
	for _, obj := range rest {
		add(obj)
	}

	var b strings.Builder
	for i, obj := range objects {
		if i > 0 {
			b.WriteString("\n")
		}
		writeDescription(&b, "", obj.Description())
		b.WriteString("type ")
		b.WriteString(obj.Name())
		b.WriteString(" {\n")
		for _, field := range sortedFields(obj.Fields()) {
			writeDescription(&b, "  ", field.Description)
			b.WriteString("  ")
			b.WriteString(field.Name)
			if len(field.Args) > 0 {
				args := make([]string, 0, len(field.Args))
				for _, arg := range field.Args {
					args = append(args, arg.Name()+": "+arg.Type.String())
				}
				sort.Strings(args)
				b.WriteString("(")
				b.WriteString(strings.Join(args, ", "))
				b.WriteString(")")
			}
			b.WriteString(": ")
			b.WriteString(field.Type.String())
			b.WriteString("\n")
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func sortedFields(fields graphql.FieldDefinitionMap) []*graphql.FieldDefinition {
	out := make([]*graphql.FieldDefinition, 0, len(fields))
	for _, field := range fields {
		out = append(out, field)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Name == "id") != (out[j].Name == "id") {
			return out[i].Name == "id"
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func writeDescription(b *strings.Builder, indent, description string) {
	description = strings.TrimSpace(description)
	if description == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString(`"""`)
	b.WriteString(strings.ReplaceAll(description, `"""`, `\"""`))
	b.WriteString(`"""`)
	b.WriteString("\n")
}
