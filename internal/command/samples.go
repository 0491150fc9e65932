package command

// sampleTasks seeds an empty board on "generate".
var sampleTasks = []bulkTask{
	{Name: "Add Google Social Login", Status: "Not started", Priority: "Critical"},
	{Name: "Minute-Level Worker for Alert Readiness & Suggestions", Status: "Not started", Priority: "Critical"},
	{Name: "Build calories and micronutrients tracking interface", Status: "Not started", Priority: "High"},
	{Name: "Implement user authentication flow", Status: "In Progress", Priority: "High"},
	{Name: "Design dashboard wireframes", Status: "Not started", Priority: "Medium"},
	{Name: "Set up CI/CD pipeline", Status: "Not started", Priority: "Medium"},
	{Name: "Write API documentation", Status: "Not started", Priority: "Low"},
	{Name: "Add unit tests for core features", Status: "Not started", Priority: "Medium"},
}
