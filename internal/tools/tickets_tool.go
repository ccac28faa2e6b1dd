package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/llamachat/toolchat/internal/tickets"
)

// TicketSearcher is the query surface the tickets tool needs.
type TicketSearcher interface {
	Search(ctx context.Context, f tickets.Filter) ([]tickets.Ticket, error)
}

var (
	ticketStatusRe   = regexp.MustCompile(`(?i)\bstatus\s+(?:is\s+|of\s+)?(in progress|to do|"[^"]+"|[a-z]+)`)
	ticketStatusWord = regexp.MustCompile(`(?i)\b(in progress|to do|done)\b`)
	ticketAssigneeRe = regexp.MustCompile(`\b(?:assigned to|owned by)\s+([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*)?)`)
	ticketPriorityRe = regexp.MustCompile(`(?i)\bpriority\s+(?:is\s+)?([a-z]+)|\b(high|medium|low)\s+priority\b`)
	ticketTopicRe    = regexp.MustCompile(`(?i)\b(?:about|regarding|mentioning)\s+([\w-]+)`)
	ticketLimitRe    = regexp.MustCompile(`(?i)\b(?:top|first|last|limit)\s+(\d+)\b|\b(\d+)\s+(?:tickets|issues)\b`)
)

// TicketsTool queries the mock issue tracker.
func TicketsTool(store TicketSearcher) Spec {
	return Spec{
		Name:        "tickets",
		Description: "Search tracker tickets by status, assignee, priority, or topic.",
		Params: []Param{
			{Name: "status", Type: TypeString, Description: "Status such as In Progress, Done, To Do"},
			{Name: "assignee", Type: TypeString, Description: "Assignee name"},
			{Name: "priority", Type: TypeString, Description: "High, Medium, or Low"},
			{Name: "topic", Type: TypeString, Description: "Text to find in summary, description or labels"},
			{Name: "limit", Type: TypeInteger, Description: "Maximum number of tickets to return"},
		},
		Triggers: []string{"ticket", "tickets", "jira", "issue", "issues"},
		Extract:  extractTicketFilter,
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			filter := tickets.Filter{
				Status:   StringArg(args, "status"),
				Assignee: StringArg(args, "assignee"),
				Priority: StringArg(args, "priority"),
				Topic:    StringArg(args, "topic"),
				Limit:    IntArg(args, "limit"),
			}
			found, err := store.Search(ctx, filter)
			if err != nil {
				return "", err
			}
			return formatTickets(found), nil
		},
	}
}

func extractTicketFilter(text string) (map[string]any, error) {
	args := map[string]any{}
	if m := ticketStatusRe.FindStringSubmatch(text); m != nil {
		args["status"] = strings.Trim(m[1], `"`)
	} else if m := ticketStatusWord.FindStringSubmatch(text); m != nil {
		args["status"] = m[1]
	}
	if m := ticketAssigneeRe.FindStringSubmatch(text); m != nil {
		args["assignee"] = m[1]
	}
	if m := ticketPriorityRe.FindStringSubmatch(text); m != nil {
		args["priority"] = firstNonEmpty(m[1], m[2])
	}
	if m := ticketTopicRe.FindStringSubmatch(text); m != nil {
		args["topic"] = m[1]
	}
	if m := ticketLimitRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(firstNonEmpty(m[1], m[2])); err == nil {
			args["limit"] = n
		}
	}
	return args, nil
}

func formatTickets(found []tickets.Ticket) string {
	if len(found) == 0 {
		return "No tickets found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d ticket(s):", len(found))
	for _, t := range found {
		fmt.Fprintf(&b, "\n- %s [%s] %s (status: %s, assignee: %s, priority: %s)",
			t.Key, t.Type, t.Summary, t.Status, t.Assignee, t.Priority)
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
