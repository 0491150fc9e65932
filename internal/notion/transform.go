package notion

import (
	"math"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"notionboard/internal/models"
)

// Domain field keys accepted by FieldMap.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldAssignee    = "assignee"
	FieldDueDate     = "dueDate"
	FieldStoryPoints = "storyPoints"
	FieldEpic        = "epic"
	FieldSprint      = "sprint"
	FieldLabels      = "labels"
	FieldGoal        = "goal"
	FieldCapacity    = "capacity"
	FieldStartDate   = "startDate"
	FieldEndDate     = "endDate"
	FieldColor       = "color"
	FieldCompleted   = "completed"
	FieldActive      = "active"
)

// FieldMap pins a domain field to an exact property name, bypassing the
// name heuristics for that field.
type FieldMap map[string]string

// rule selects a field by kind and, when keywords are set, by a lowercase
// name containing one of them.
type rule struct {
	kinds    []Kind
	keywords []string
}

func (r rule) matches(f Field) bool {
	kindOK := false
	for _, k := range r.kinds {
		if f.Kind == k {
			kindOK = true
			break
		}
	}
	if !kindOK {
		return false
	}
	return len(r.keywords) == 0 || containsAny(strings.ToLower(f.Name), r.keywords)
}

var taskRules = map[string]rule{
	FieldTitle:       {kinds: []Kind{KindTitle}},
	FieldDescription: {kinds: []Kind{KindRichText}, keywords: []string{"description", "notes"}},
	FieldStatus:      {kinds: []Kind{KindStatus}},
	FieldPriority:    {kinds: []Kind{KindSelect}, keywords: []string{"priority", "importance"}},
	FieldAssignee:    {kinds: []Kind{KindPeople}},
	FieldDueDate:     {kinds: []Kind{KindDate}, keywords: []string{"due", "deadline"}},
	FieldStoryPoints: {kinds: []Kind{KindNumber}, keywords: []string{"point", "estimate"}},
	FieldEpic:        {kinds: []Kind{KindRelation, KindRichText}, keywords: []string{"epic"}},
	FieldSprint:      {kinds: []Kind{KindRelation, KindRichText}, keywords: []string{"sprint"}},
	FieldLabels:      {kinds: []Kind{KindMultiSelect}, keywords: []string{"label", "tag"}},
}

// statusSelectRule covers databases that model status with a plain select.
var statusSelectRule = rule{kinds: []Kind{KindSelect}, keywords: []string{"status", "state"}}

var epicRules = map[string]rule{
	FieldTitle:       {kinds: []Kind{KindTitle}},
	FieldDescription: {kinds: []Kind{KindRichText}, keywords: []string{"description", "summary"}},
	FieldColor:       {kinds: []Kind{KindSelect}, keywords: []string{"color"}},
	FieldStartDate:   {kinds: []Kind{KindDate}, keywords: []string{"start"}},
	FieldEndDate:     {kinds: []Kind{KindDate}, keywords: []string{"end"}},
	FieldCompleted:   {kinds: []Kind{KindCheckbox}, keywords: []string{"completed"}},
	FieldActive:      {kinds: []Kind{KindCheckbox}, keywords: []string{"active"}},
}

var sprintRules = map[string]rule{
	FieldTitle:     {kinds: []Kind{KindTitle}},
	FieldGoal:      {kinds: []Kind{KindRichText}, keywords: []string{"goal", "objective"}},
	FieldStartDate: {kinds: []Kind{KindDate}, keywords: []string{"start"}},
	FieldEndDate:   {kinds: []Kind{KindDate}, keywords: []string{"end"}},
	FieldCapacity:  {kinds: []Kind{KindNumber}, keywords: []string{"capacity", "total points"}},
}

// Mapper converts decoded records into board records.
type Mapper struct {
	Fields FieldMap
	// Now is used to derive sprint status; defaults to time.Now.
	Now func() time.Time
}

func (m Mapper) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// lookup returns the field for a domain key: the pinned property when the
// FieldMap names one that exists, otherwise the first field by name order
// matching the rule.
func (m Mapper) lookup(r Record, key string, rl rule) (Field, bool) {
	if name, ok := m.Fields[key]; ok {
		if f, ok := r.Field(name); ok {
			return f, true
		}
	}
	for _, f := range r.Fields {
		if rl.matches(f) {
			return f, true
		}
	}
	return Field{}, false
}

func (m Mapper) text(r Record, key string, rules map[string]rule) string {
	f, ok := m.lookup(r, key, rules[key])
	if !ok {
		return ""
	}
	return f.Text
}

func (m Mapper) date(r Record, key string, rules map[string]rule) *time.Time {
	f, ok := m.lookup(r, key, rules[key])
	if !ok {
		return nil
	}
	return f.Start
}

func (m Mapper) statusText(r Record) (string, bool) {
	f, ok := m.lookup(r, FieldStatus, taskRules[FieldStatus])
	if !ok {
		f, ok = m.lookup(r, FieldStatus, statusSelectRule)
	}
	if !ok || f.Option == nil || f.Option.Name == "" {
		return "", false
	}
	return f.Option.Name, true
}

// Task maps a record into a Task. defaultStatus applies when the page has
// no status value at all.
func (m Mapper) Task(r Record, defaultStatus models.TaskStatus) models.Task {
	task := models.Task{
		ID:           r.ID,
		Title:        m.text(r, FieldTitle, taskRules),
		Description:  m.text(r, FieldDescription, taskRules),
		Status:       defaultStatus,
		Priority:     models.PriorityMedium,
		DueDate:      m.date(r, FieldDueDate, taskRules),
		Labels:       []string{},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		NotionPageID: r.ID,
	}

	if s, ok := m.statusText(r); ok {
		task.Status = NormalizeStatus(s)
	}
	if f, ok := m.lookup(r, FieldPriority, taskRules[FieldPriority]); ok && f.Option != nil {
		task.Priority = NormalizePriority(f.Option.Name)
	}
	if f, ok := m.lookup(r, FieldAssignee, taskRules[FieldAssignee]); ok && len(f.People) > 0 {
		u := f.People[0]
		task.Assignee = &u
	}
	if f, ok := m.lookup(r, FieldStoryPoints, taskRules[FieldStoryPoints]); ok && f.Number != nil {
		n := *f.Number
		task.StoryPoints = &n
	}
	task.EpicID = m.reference(r, FieldEpic)
	task.SprintID = m.reference(r, FieldSprint)
	if f, ok := m.lookup(r, FieldLabels, taskRules[FieldLabels]); ok {
		for _, o := range f.Options {
			task.Labels = append(task.Labels, o.Name)
		}
	}
	return task
}

func (m Mapper) reference(r Record, key string) string {
	f, ok := m.lookup(r, key, taskRules[key])
	if !ok {
		return ""
	}
	if f.Kind == KindRelation {
		if len(f.Relations) == 0 {
			return ""
		}
		return f.Relations[0]
	}
	return f.Text
}

// Epic maps a record into an Epic and attaches the tasks that reference it.
func (m Mapper) Epic(r Record, tasks []models.Task) models.Epic {
	epic := models.Epic{
		ID:           r.ID,
		Title:        m.text(r, FieldTitle, epicRules),
		Description:  m.text(r, FieldDescription, epicRules),
		Status:       models.PhasePlanning,
		Tasks:        membersOf(r.ID, tasks, func(t models.Task) string { return t.EpicID }),
		StartDate:    m.date(r, FieldStartDate, epicRules),
		EndDate:      m.date(r, FieldEndDate, epicRules),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		NotionPageID: r.ID,
	}

	if f, ok := m.lookup(r, FieldCompleted, epicRules[FieldCompleted]); ok && f.Checkbox {
		epic.Status = models.PhaseCompleted
	} else if f, ok := m.lookup(r, FieldActive, epicRules[FieldActive]); ok && f.Checkbox {
		epic.Status = models.PhaseActive
	}
	if f, ok := m.lookup(r, FieldColor, epicRules[FieldColor]); ok && f.Option != nil {
		epic.Color = f.Option.Color
	}
	if len(epic.Tasks) > 0 {
		done := 0
		for _, t := range epic.Tasks {
			if t.Status == models.StatusDone {
				done++
			}
		}
		epic.Progress = int(math.Round(float64(done) / float64(len(epic.Tasks)) * 100))
	}
	return epic
}

// Sprint maps a record into a Sprint. Status is derived from the current
// time against the start and end dates.
func (m Mapper) Sprint(r Record, tasks []models.Task) models.Sprint {
	sprint := models.Sprint{
		ID:               r.ID,
		Name:             m.text(r, FieldTitle, sprintRules),
		Goal:             m.text(r, FieldGoal, sprintRules),
		Status:           models.PhasePlanning,
		StartDate:        m.date(r, FieldStartDate, sprintRules),
		EndDate:          m.date(r, FieldEndDate, sprintRules),
		Tasks:            membersOf(r.ID, tasks, func(t models.Task) string { return t.SprintID }),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		NotionDatabaseID: r.DatabaseID,
	}

	if f, ok := m.lookup(r, FieldCapacity, sprintRules[FieldCapacity]); ok && f.Number != nil {
		n := *f.Number
		sprint.Capacity = &n
	}
	for _, t := range sprint.Tasks {
		if t.Status == models.StatusDone {
			sprint.Velocity += t.Points()
		}
	}
	if sprint.StartDate != nil && sprint.EndDate != nil {
		now := m.now()
		switch {
		case now.After(*sprint.EndDate):
			sprint.Status = models.PhaseCompleted
		case !now.Before(*sprint.StartDate):
			sprint.Status = models.PhaseActive
		}
	}
	return sprint
}

func membersOf(id string, tasks []models.Task, ref func(models.Task) string) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		if ref(t) == id {
			out = append(out, t)
		}
	}
	return out
}

// TaskFromPage is the read model used by the task, sprint and epic
// endpoints. Pages without a status become backlog.
func TaskFromPage(page notionapi.Page) models.Task {
	return Mapper{}.Task(Decode(page), models.StatusBacklog)
}

// BoardTaskFromPage is the read model used by the board and the chat
// interpreter. Pages without a status become todo.
func BoardTaskFromPage(page notionapi.Page) models.Task {
	return Mapper{}.Task(Decode(page), models.StatusTodo)
}

// TasksFromPages applies the mapper with the given default status.
func (m Mapper) TasksFromPages(pages []notionapi.Page, defaultStatus models.TaskStatus) []models.Task {
	tasks := make([]models.Task, 0, len(pages))
	for _, p := range pages {
		tasks = append(tasks, m.Task(Decode(p), defaultStatus))
	}
	return tasks
}

// TaskProperties builds the Notion properties for a task under the default
// property names.
func TaskProperties(task models.Task) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: richText(task.Title)},
	}
	if task.Description != "" {
		props["Description"] = notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: richText(task.Description)}
	}
	if task.Status != "" {
		props["Status"] = notionapi.StatusProperty{Type: notionapi.PropertyTypeStatus, Status: notionapi.Status{Name: string(task.Status)}}
	}
	if task.Priority != "" {
		props["Priority"] = notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: string(task.Priority)}}
	}
	if task.DueDate != nil {
		props["Due Date"] = dateProperty(*task.DueDate)
	}
	if task.StoryPoints != nil {
		props["Story Points"] = notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: *task.StoryPoints}
	}
	if len(task.Labels) > 0 {
		props["Labels"] = multiSelect(task.Labels)
	}
	return props
}

// PatchProperties builds properties for the non-nil fields of a patch.
func PatchProperties(patch models.TaskPatch) notionapi.Properties {
	props := notionapi.Properties{}
	if patch.Title != nil {
		props["Name"] = notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: richText(*patch.Title)}
	}
	if patch.Description != nil {
		props["Description"] = notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: richText(*patch.Description)}
	}
	if patch.Status != nil {
		props["Status"] = notionapi.StatusProperty{Type: notionapi.PropertyTypeStatus, Status: notionapi.Status{Name: string(*patch.Status)}}
	}
	if patch.Priority != nil {
		props["Priority"] = notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: string(*patch.Priority)}}
	}
	if patch.DueDate != nil {
		props["Due Date"] = dateProperty(*patch.DueDate)
	}
	if patch.StoryPoints != nil {
		props["Story Points"] = notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: *patch.StoryPoints}
	}
	if patch.Labels != nil {
		props["Labels"] = multiSelect(patch.Labels)
	}
	return props
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Type: notionapi.PropertyTypeDate, Date: &notionapi.DateObject{Start: &d}}
}

func multiSelect(names []string) notionapi.MultiSelectProperty {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, notionapi.Option{Name: n})
	}
	return notionapi.MultiSelectProperty{Type: notionapi.PropertyTypeMultiSelect, MultiSelect: opts}
}
