package notion

import (
	"encoding/json"
	"fmt"

	"github.com/jomei/notionapi"
)

var propertyTypes = map[string]struct{}{
	"title": {}, "rich_text": {}, "number": {}, "select": {}, "multi_select": {},
	"status": {}, "date": {}, "people": {}, "files": {}, "checkbox": {},
	"url": {}, "email": {}, "phone_number": {}, "relation": {},
}

// ParseProperties decodes raw page property values sent by a client. The
// Notion write format allows omitting "type"; it is inferred from the
// single value key.
func ParseProperties(raw json.RawMessage) (notionapi.Properties, error) {
	if isEmptyJSON(raw) {
		return notionapi.Properties{}, nil
	}

	var values map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("properties must be an object of property values: %w", err)
	}

	for name, value := range values {
		if _, ok := value["type"]; ok {
			continue
		}
		kind := ""
		for key := range value {
			if _, known := propertyTypes[key]; known {
				if kind != "" {
					return nil, fmt.Errorf("property %q has more than one value", name)
				}
				kind = key
			}
		}
		if kind == "" {
			return nil, fmt.Errorf("property %q has no recognised value", name)
		}
		value["type"] = json.RawMessage(fmt.Sprintf("%q", kind))
	}

	normalized, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	var props notionapi.Properties
	if err := json.Unmarshal(normalized, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return props, nil
}

// ParseFilter decodes a database query filter. Compound "and"/"or"
// filters are decoded recursively; objects with a "timestamp" key become
// timestamp filters.
func ParseFilter(raw json.RawMessage) (notionapi.Filter, error) {
	if isEmptyJSON(raw) {
		return nil, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("filter must be an object: %w", err)
	}

	if list, ok := keys["and"]; ok {
		items, err := parseFilterList(list)
		if err != nil {
			return nil, err
		}
		return notionapi.AndCompoundFilter(items), nil
	}
	if list, ok := keys["or"]; ok {
		items, err := parseFilterList(list)
		if err != nil {
			return nil, err
		}
		return notionapi.OrCompoundFilter(items), nil
	}

	if _, ok := keys["timestamp"]; ok {
		var tf notionapi.TimestampFilter
		if err := json.Unmarshal(raw, &tf); err != nil {
			return nil, fmt.Errorf("decode timestamp filter: %w", err)
		}
		return tf, nil
	}

	var f notionapi.PropertyFilter
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	if f.Property == "" {
		return nil, fmt.Errorf("filter requires a property")
	}
	return f, nil
}

func parseFilterList(raw json.RawMessage) ([]notionapi.Filter, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("compound filter must be an array: %w", err)
	}
	out := make([]notionapi.Filter, 0, len(parts))
	for _, p := range parts {
		f, err := ParseFilter(p)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// ParseSorts decodes a list of sort objects.
func ParseSorts(raw json.RawMessage) ([]notionapi.SortObject, error) {
	if isEmptyJSON(raw) {
		return nil, nil
	}
	var sorts []notionapi.SortObject
	if err := json.Unmarshal(raw, &sorts); err != nil {
		return nil, fmt.Errorf("decode sorts: %w", err)
	}
	return sorts, nil
}

type childBlock struct {
	Type      string `json:"type"`
	Paragraph *struct {
		RichText []notionapi.RichText `json:"rich_text"`
	} `json:"paragraph"`
}

// ParseChildren decodes page body blocks. Only paragraphs are accepted.
func ParseChildren(raw json.RawMessage) ([]notionapi.Block, error) {
	if isEmptyJSON(raw) {
		return nil, nil
	}
	var blocks []childBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("children must be an array of blocks: %w", err)
	}

	out := make([]notionapi.Block, 0, len(blocks))
	for i, b := range blocks {
		if b.Type != "" && b.Type != "paragraph" {
			return nil, fmt.Errorf("child %d: unsupported block type %q", i, b.Type)
		}
		if b.Paragraph == nil {
			return nil, fmt.Errorf("child %d: missing paragraph", i)
		}
		out = append(out, &notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{RichText: b.Paragraph.RichText},
		})
	}
	return out, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
