// Package ical renders schedules as RFC 5545 iCalendar documents.
package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/watzon/virtualdate/internal/schedule"
)

const (
	prodID    = "-//VirtualDate//Scheduler//EN"
	uidDomain = "virtualdate"

	// stampLayout is the UTC date-time form used by DTSTAMP, DTSTART,
	// and DTEND.
	stampLayout = "20060102T150405Z"
)

// Export renders instances as a VCALENDAR document. Lines are joined with
// CRLF and the output ends with CRLF.
func Export(name string, instances []*schedule.Instance, now time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + escape(name),
	}

	stamp := now.UTC().Format(stampLayout)
	for _, inst := range instances {
		lines = append(lines, eventLines(inst, stamp)...)
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func eventLines(inst *schedule.Instance, stamp string) []string {
	tk := inst.Task

	lines := []string{
		"BEGIN:VEVENT",
		fmt.Sprintf("UID:%s-%d@%s", tk.ID, inst.Start.Unix(), uidDomain),
		"DTSTAMP:" + stamp,
		"DTSTART:" + inst.Start.UTC().Format(stampLayout),
		"DTEND:" + inst.Finish.UTC().Format(stampLayout),
		"SUMMARY:" + escape(tk.ID),
	}

	if desc := description(inst); desc != "" {
		lines = append(lines, "DESCRIPTION:"+escape(desc))
	}
	if len(tk.Flags) > 0 {
		escaped := make([]string, len(tk.Flags))
		for i, f := range tk.Flags {
			escaped[i] = escape(f)
		}
		lines = append(lines, "CATEGORIES:"+strings.Join(escaped, ","))
	}

	lines = append(lines, "END:VEVENT")
	return lines
}

func description(inst *schedule.Instance) string {
	var parts []string
	if inst.Explain != nil && inst.Explain.Len() > 0 {
		parts = append(parts, inst.Explain.Lines()...)
	}
	if len(inst.Task.Flags) > 0 {
		parts = append(parts, "Flags: "+strings.Join(inst.Task.Flags, ", "))
	}
	return strings.Join(parts, "\n")
}

// escape applies RFC 5545 text escaping: backslash, newline, comma, and
// semicolon.
func escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case ',':
			sb.WriteString(`\,`)
		case ';':
			sb.WriteString(`\;`)
		case '\r':
			// swallowed; bare CR has no meaning in text values
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
