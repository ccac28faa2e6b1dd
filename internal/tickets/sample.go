package tickets

import "time"

// SampleTickets returns the demo records used when the tracker is seeded.
func SampleTickets() []Ticket {
	return []Ticket{
		{
			Key:         "DEMO-001",
			Summary:     "Sample issue for development",
			Description: "This is a sample issue used when the tracker is not connected",
			Status:      "In Progress",
			Assignee:    "John Doe",
			Reporter:    "Jane Smith",
			Type:        "Task",
			Priority:    "Medium",
			Labels:      "development, sample",
			Created:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Updated:     time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC),
		},
		{
			Key:         "DEMO-002",
			Summary:     "Another sample issue",
			Description: "Second sample issue for testing",
			Status:      "Done",
			Assignee:    "Alice Johnson",
			Reporter:    "Bob Wilson",
			Type:        "Bug",
			Priority:    "High",
			Labels:      "bug, testing",
			Created:     time.Date(2024, 1, 3, 9, 15, 0, 0, time.UTC),
			Updated:     time.Date(2024, 1, 4, 14, 20, 0, 0, time.UTC),
		},
		{
			Key:         "DEMO-003",
			Summary:     "Feature request sample",
			Description: "Sample feature request",
			Status:      "To Do",
			Assignee:    "Unassigned",
			Reporter:    "Charlie Brown",
			Type:        "Story",
			Priority:    "Low",
			Labels:      "feature, enhancement",
			Created:     time.Date(2024, 1, 5, 11, 45, 0, 0, time.UTC),
			Updated:     time.Date(2024, 1, 5, 11, 45, 0, 0, time.UTC),
		},
	}
}
