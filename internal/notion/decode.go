package notion

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"notionboard/internal/models"
)

// Kind is the closed set of property kinds the mappers understand.
type Kind string

const (
	KindTitle       Kind = "title"
	KindRichText    Kind = "rich_text"
	KindSelect      Kind = "select"
	KindStatus      Kind = "status"
	KindMultiSelect Kind = "multi_select"
	KindNumber      Kind = "number"
	KindDate        Kind = "date"
	KindPeople      Kind = "people"
	KindRelation    Kind = "relation"
	KindCheckbox    Kind = "checkbox"
	KindURL         Kind = "url"
	KindEmail       Kind = "email"
	KindOther       Kind = "other"
)

// Field is one decoded page property. Only the members matching Kind are set.
type Field struct {
	Name string
	Kind Kind

	// Text is the plain text of title, rich_text, url and email fields.
	Text string
	// Option is the chosen select or status option.
	Option *Option
	// Options lists the chosen multi_select options in order.
	Options   []Option
	Number    *float64
	Start     *time.Time
	End       *time.Time
	People    []models.User
	Relations []string
	Checkbox  bool
}

// Option is a select, status or multi_select choice.
type Option struct {
	Name  string
	Color string
}

// Record is a page decoded once at the API boundary.
type Record struct {
	ID         string
	DatabaseID string
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Archived   bool
	Fields     []Field
}

// Decode converts a page into a Record. Fields are sorted by name so that
// first-match lookups are deterministic.
func Decode(page notionapi.Page) Record {
	rec := Record{
		ID:         page.ID.String(),
		DatabaseID: string(page.Parent.DatabaseID),
		URL:        page.URL,
		CreatedAt:  page.CreatedTime,
		UpdatedAt:  page.LastEditedTime,
		Archived:   page.Archived,
		Fields:     make([]Field, 0, len(page.Properties)),
	}

	for name, prop := range page.Properties {
		rec.Fields = append(rec.Fields, decodeProperty(name, prop))
	}
	sort.Slice(rec.Fields, func(i, j int) bool { return rec.Fields[i].Name < rec.Fields[j].Name })
	return rec
}

// Field returns the field with the exact name.
func (r Record) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// deref turns pointer property values into their value form so a single
// switch covers both decoded and locally built properties.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}

func decodeProperty(name string, prop notionapi.Property) Field {
	f := Field{Name: name, Kind: KindOther}

	switch p := deref(prop).(type) {
	case notionapi.TitleProperty:
		f.Kind = KindTitle
		f.Text = PlainText(p.Title)
	case notionapi.RichTextProperty:
		f.Kind = KindRichText
		f.Text = PlainText(p.RichText)
	case notionapi.SelectProperty:
		f.Kind = KindSelect
		if p.Select.Name != "" {
			f.Option = &Option{Name: p.Select.Name, Color: string(p.Select.Color)}
		}
	case notionapi.StatusProperty:
		f.Kind = KindStatus
		if p.Status.Name != "" {
			f.Option = &Option{Name: p.Status.Name, Color: string(p.Status.Color)}
		}
	case notionapi.MultiSelectProperty:
		f.Kind = KindMultiSelect
		for _, o := range p.MultiSelect {
			f.Options = append(f.Options, Option{Name: o.Name, Color: string(o.Color)})
		}
	case notionapi.NumberProperty:
		f.Kind = KindNumber
		n := p.Number
		f.Number = &n
	case notionapi.DateProperty:
		f.Kind = KindDate
		if p.Date != nil {
			if p.Date.Start != nil {
				t := time.Time(*p.Date.Start)
				f.Start = &t
			}
			if p.Date.End != nil {
				t := time.Time(*p.Date.End)
				f.End = &t
			}
		}
	case notionapi.PeopleProperty:
		f.Kind = KindPeople
		for _, u := range p.People {
			user := models.User{ID: string(u.ID), Name: u.Name, AvatarURL: u.AvatarURL}
			if u.Person != nil {
				user.Email = u.Person.Email
			}
			f.People = append(f.People, user)
		}
	case notionapi.RelationProperty:
		f.Kind = KindRelation
		for _, r := range p.Relation {
			f.Relations = append(f.Relations, string(r.ID))
		}
	case notionapi.CheckboxProperty:
		f.Kind = KindCheckbox
		f.Checkbox = p.Checkbox
	case notionapi.URLProperty:
		f.Kind = KindURL
		f.Text = p.URL
	case notionapi.EmailProperty:
		f.Kind = KindEmail
		f.Text = p.Email
	}
	return f
}

// PlainText concatenates rich text segments.
func PlainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
			continue
		}
		if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

// richText builds a single text segment.
func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: content}}}
}
