package tools

// Props maps argument names to their schema nodes.
type Props map[string]any

// Object builds a tool input schema.
func Object(props Props, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": map[string]any(props),
		"required":   required,
	}
}

func String(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func StringDefault(desc, def string) map[string]any {
	s := String(desc)
	s["default"] = def
	return s
}

func Enum(desc string, values ...string) map[string]any {
	s := String(desc)
	s["enum"] = values
	return s
}

func Number(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func NumberDefault(desc string, def float64) map[string]any {
	n := Number(desc)
	n["default"] = def
	return n
}

// Range adds bounds to a number node.
func Range(node map[string]any, min, max float64) map[string]any {
	node["minimum"] = min
	node["maximum"] = max
	return node
}

func Boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func ObjectProp(desc string) map[string]any {
	return map[string]any{"type": "object", "description": desc}
}

func Array(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

// ChatMessages is the OpenAI-style messages array shared by the chat tools.
func ChatMessages(desc string) map[string]any {
	return Array(desc, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"role":    map[string]any{"type": "string", "enum": []string{"system", "user", "assistant"}},
			"content": map[string]any{"type": "string"},
		},
		"required": []string{"role", "content"},
	})
}
