package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{
			name:    "list",
			message: "Show all tasks",
			want:    Intent{Kind: KindList},
		},
		{
			name:    "generate",
			message: "Generate sample sprint tasks",
			want:    Intent{Kind: KindGenerate},
		},
		{
			name:    "create strips the command words",
			message: "Create a task to implement login feature",
			want:    Intent{Kind: KindCreate, Name: "implement login feature"},
		},
		{
			name:    "add without a name",
			message: "add task",
			want:    Intent{Kind: KindCreate, Name: "add task"},
		},
		{
			name:    "move",
			message: "Move task 2 to In Progress",
			want:    Intent{Kind: KindMove, Index: 2, Ref: "2", Status: "in progress"},
		},
		{
			name:    "move without target",
			message: "move task 2",
			want:    Intent{Kind: KindMove, Index: 2, Ref: "2"},
		},
		{
			name:    "delete",
			message: "Delete task 5",
			want:    Intent{Kind: KindDelete, Index: 5, Ref: "5"},
		},
		{
			name:    "delete without number",
			message: "delete the last one",
			want:    Intent{Kind: KindDelete},
		},
		{
			name:    "unknown",
			message: "what's the weather",
			want:    Intent{Kind: KindUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)
			tt.want.Text = tt.message
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyBulkPaste(t *testing.T) {
	msg := "✅ Add Google Social Login (Critical)\n✅ Set up CI/CD pipeline (Medium)\n✅ Write API documentation (Low)\n✅ Design dashboard wireframes"

	got := Classify(msg)
	require.Equal(t, KindBulkPaste, got.Kind)
	assert.Len(t, got.Lines, 4)
}

func TestClassifyBulkPasteOnOneLine(t *testing.T) {
	msg := "✅ Add Google Social Login ✅ Set up CI/CD pipeline ✅ Write API documentation"

	got := Classify(msg)
	require.Equal(t, KindBulkPaste, got.Kind)
	assert.Len(t, got.Lines, 3)
}

func TestClassifyBulkPasteYieldsToExplicitCommands(t *testing.T) {
	msg := "- one thing\n- another thing\n- a third thing\nshow me"

	assert.Equal(t, KindList, Classify(msg).Kind)
}

func TestClassifyTwoLinesIsNotBulk(t *testing.T) {
	msg := "- first item\n- second item"

	assert.Equal(t, KindUnknown, Classify(msg).Kind)
}

func TestParseBulkLocal(t *testing.T) {
	lines := []string{
		"✅ Add Google Social Login (Critical - blocks signup)",
		"- Set up CI/CD pipeline In Progress",
		"3. Write docs (Low)",
		"✅ add google social login (High)",
		"✅",
	}

	got := parseBulkLocal(lines)

	assert.Equal(t, []bulkTask{
		{Name: "Add Google Social Login", Priority: "Critical", Status: "Not started"},
		{Name: "Set up CI/CD pipeline In Progress", Priority: "Medium", Status: "In Progress"},
		{Name: "Write docs", Priority: "Low", Status: "Not started"},
	}, got)
}
