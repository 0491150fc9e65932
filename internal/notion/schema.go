package notion

import (
	"sort"
	"strings"

	"github.com/jomei/notionapi"
)

// Schema describes the task-relevant properties of a database.
type Schema struct {
	DatabaseID string `json:"databaseId"`

	TitleProperty string `json:"titleProperty"`

	StatusProperty string `json:"statusProperty,omitempty"`
	// StatusIsSelect is set when status is modelled as a plain select.
	StatusIsSelect bool     `json:"statusIsSelect,omitempty"`
	StatusOptions  []string `json:"statusOptions"`

	PriorityProperty string   `json:"priorityProperty,omitempty"`
	PriorityOptions  []string `json:"priorityOptions"`
}

// InspectSchema locates the title, status and priority properties of a
// database. Properties are scanned in name order.
func InspectSchema(db *notionapi.Database) Schema {
	s := Schema{StatusOptions: []string{}, PriorityOptions: []string{}}
	if db == nil {
		return s
	}
	s.DatabaseID = db.ID.String()

	names := make([]string, 0, len(db.Properties))
	for name := range db.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lower := strings.ToLower(name)
		switch cfg := deref(db.Properties[name]).(type) {
		case notionapi.TitlePropertyConfig:
			if s.TitleProperty == "" {
				s.TitleProperty = name
			}
		case notionapi.StatusPropertyConfig:
			if s.StatusProperty == "" {
				s.StatusProperty = name
				s.StatusOptions = optionNames(cfg.Status.Options)
			}
		case notionapi.SelectPropertyConfig:
			if s.StatusProperty == "" && strings.Contains(lower, "status") {
				s.StatusProperty = name
				s.StatusIsSelect = true
				s.StatusOptions = optionNames(cfg.Select.Options)
			} else if s.PriorityProperty == "" && strings.Contains(lower, "priority") {
				s.PriorityProperty = name
				s.PriorityOptions = optionNames(cfg.Select.Options)
			}
		}
	}
	return s
}

func optionNames(opts []notionapi.Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Name)
	}
	return out
}

// MatchOption picks the selectable option closest to value: exact
// (case-insensitive), then substring in either direction, then the
// todo/not started mapping, then the first option. With no options the
// value is returned unchanged.
func MatchOption(value string, options []string) string {
	if len(options) == 0 {
		return value
	}
	lower := strings.ToLower(strings.TrimSpace(value))

	for _, opt := range options {
		if strings.ToLower(opt) == lower {
			return opt
		}
	}
	if lower != "" {
		for _, opt := range options {
			o := strings.ToLower(opt)
			if strings.Contains(o, lower) || strings.Contains(lower, o) {
				return opt
			}
		}
	}
	if strings.Contains(lower, "todo") || strings.Contains(lower, "to do") {
		for _, opt := range options {
			o := strings.ToLower(opt)
			if strings.Contains(o, "not started") || strings.Contains(o, "todo") {
				return opt
			}
		}
	}
	return options[0]
}

// TaskInput is the free-text description of a page to create.
type TaskInput struct {
	Name     string
	Status   string
	Priority string
}

// Properties builds page properties for the database, matching status and
// priority against the available options. Empty status or priority values
// are omitted.
func (s Schema) Properties(in TaskInput) notionapi.Properties {
	props := notionapi.Properties{}
	if s.TitleProperty != "" {
		props[s.TitleProperty] = notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: richText(in.Name)}
	}
	if s.StatusProperty != "" && in.Status != "" {
		props[s.StatusProperty] = s.StatusValue(MatchOption(in.Status, s.StatusOptions))
	}
	if s.PriorityProperty != "" && in.Priority != "" {
		name := MatchOption(in.Priority, s.PriorityOptions)
		props[s.PriorityProperty] = notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: name}}
	}
	return props
}

// StatusValue builds a status property value of the right type. name is
// written verbatim.
func (s Schema) StatusValue(name string) notionapi.Property {
	if s.StatusIsSelect {
		return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: name}}
	}
	return notionapi.StatusProperty{Type: notionapi.PropertyTypeStatus, Status: notionapi.Status{Name: name}}
}

// Paragraph builds a paragraph block holding text.
func Paragraph(text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{RichText: richText(text)},
	}
}
