package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"

	"relay/internal/api"
	"relay/internal/diagnostics"
)

const maxCellWidth = 60

// ServerRow is the printed form of a server definition.
type ServerRow struct {
	api.ServerDefinition `yaml:",inline"`
	Running              bool `json:"running" yaml:"running"`
}

// Servers prints server definitions. running marks servers with a live process.
func (p *Printer) Servers(defs []api.ServerDefinition, running map[string]bool) error {
	rows := make([]ServerRow, 0, len(defs))
	for _, def := range defs {
		rows = append(rows, ServerRow{ServerDefinition: def, Running: running[def.ID]})
	}
	if done, err := p.structured(rows); done {
		return err
	}

	if len(defs) == 0 {
		p.emptyMessage("📋", "No servers found")
		return nil
	}

	t := p.createTable("ID", "NAME", "COMMAND", "PROFILE", "CATEGORY", "STATUS")
	for _, row := range rows {
		t.AppendRow([]interface{}{
			row.ID,
			row.DisplayName(),
			TruncateString(commandLine(row.Command, row.Args), maxCellWidth),
			row.ProfileID,
			row.Category,
			serverStatus(row.Enabled, row.Running),
		})
	}
	t.Render()
	p.total(len(rows), "servers")
	return nil
}

// Server prints one definition with its environment and secret names.
func (p *Printer) Server(def api.ServerDefinition, running bool) error {
	if done, err := p.structured(ServerRow{ServerDefinition: def, Running: running}); done {
		return err
	}

	t := p.createTable("FIELD", "VALUE")
	t.AppendRow([]interface{}{"ID", def.ID})
	t.AppendRow([]interface{}{"Name", def.DisplayName()})
	if def.Description != "" {
		t.AppendRow([]interface{}{"Description", def.Description})
	}
	t.AppendRow([]interface{}{"Command", commandLine(def.Command, def.Args)})
	t.AppendRow([]interface{}{"Profile", def.ProfileID})
	t.AppendRow([]interface{}{"Category", def.Category})
	t.AppendRow([]interface{}{"Status", serverStatus(def.Enabled, running)})
	for _, key := range sortedKeys(def.Env) {
		t.AppendRow([]interface{}{"Env " + key, def.Env[key]})
	}
	if len(def.Secrets) > 0 {
		t.AppendRow([]interface{}{"Secrets", strings.Join(def.Secrets, ", ")})
	}
	t.AppendRow([]interface{}{"Updated", def.UpdatedAt.Format(time.RFC3339)})
	t.Render()
	return nil
}

func serverStatus(enabled, running bool) string {
	switch {
	case running:
		return text.FgGreen.Sprint("running")
	case enabled:
		return text.FgYellow.Sprint("enabled")
	default:
		return text.FgHiBlack.Sprint("disabled")
	}
}

func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

// ProfileRow is the printed form of a profile.
type ProfileRow struct {
	api.Profile `yaml:",inline"`
	Active      bool `json:"active" yaml:"active"`
	Servers     int  `json:"servers" yaml:"servers"`
}

// Profiles prints profiles, marking the active one. counts holds the number
// of servers per profile.
func (p *Printer) Profiles(profiles []api.Profile, active string, counts map[string]int) error {
	rows := make([]ProfileRow, 0, len(profiles))
	for _, profile := range profiles {
		rows = append(rows, ProfileRow{Profile: profile, Active: profile.ID == active, Servers: counts[profile.ID]})
	}
	if done, err := p.structured(rows); done {
		return err
	}

	t := p.createTable("", "ID", "NAME", "SERVERS")
	for _, row := range rows {
		marker := ""
		if row.Active {
			marker = text.FgGreen.Sprint("*")
		}
		t.AppendRow([]interface{}{marker, row.ID, row.Name, row.Servers})
	}
	t.Render()
	return nil
}

// Tools prints a tool catalog.
func (p *Printer) Tools(tools []mcp.Tool) error {
	if done, err := p.structured(tools); done {
		return err
	}
	if len(tools) == 0 {
		p.emptyMessage("📋", "No tools found")
		return nil
	}

	t := p.createTable("NAME", "DESCRIPTION", "PARAMETERS")
	for _, tool := range tools {
		t.AppendRow([]interface{}{
			text.FgHiWhite.Sprint(tool.Name),
			TruncateString(firstLine(tool.Description), maxCellWidth),
			strings.Join(toolParameters(tool), ", "),
		})
	}
	t.Render()
	p.total(len(tools), "tools")
	return nil
}

// toolParameters lists the input properties of a tool, required ones
// marked with an asterisk.
func toolParameters(tool mcp.Tool) []string {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}
	params := make([]string, 0, len(tool.InputSchema.Properties))
	for _, name := range sortedKeys(tool.InputSchema.Properties) {
		if required[name] {
			name += "*"
		}
		params = append(params, name)
	}
	return params
}

// ToolResult prints the content of a tool call.
func (p *Printer) ToolResult(result *mcp.CallToolResult) error {
	if done, err := p.structured(result); done {
		return err
	}

	if result.IsError {
		fmt.Fprintln(p.w, text.FgRed.Sprint("Tool reported an error:"))
	}
	if len(result.Content) == 0 {
		p.emptyMessage("📋", "No content returned")
		return nil
	}
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			fmt.Fprintln(p.w, textContent.Text)
			continue
		}
		fmt.Fprintln(p.w, PrettyJSON(content))
	}
	return nil
}

// Usage prints traffic snapshots.
func (p *Printer) Usage(snapshots []api.UsageSnapshot) error {
	if done, err := p.structured(snapshots); done {
		return err
	}
	if len(snapshots) == 0 {
		p.emptyMessage("📊", "No traffic recorded")
		return nil
	}

	t := p.createTable("SERVER", "IN", "OUT", "TOTAL", "TOKENS (EST.)", "MESSAGES")
	for _, s := range snapshots {
		t.AppendRow([]interface{}{
			s.ServerID,
			FormatBytes(s.BytesIn),
			FormatBytes(s.BytesOut),
			FormatBytes(s.TotalBytes),
			s.TotalTokens,
			fmt.Sprintf("%d in / %d out", s.MessagesIn, s.MessagesOut),
		})
	}
	t.Render()
	return nil
}

// Dependencies prints missing binaries.
func (p *Printer) Dependencies(issues []diagnostics.DependencyIssue) error {
	if issues == nil {
		issues = []diagnostics.DependencyIssue{}
	}
	if done, err := p.structured(issues); done {
		return err
	}
	if len(issues) == 0 {
		p.Success("All dependencies found")
		return nil
	}

	t := p.createTable("BINARY", "REQUIRED BY", "HINT")
	for _, issue := range issues {
		t.AppendRow([]interface{}{text.FgRed.Sprint(issue.Binary), issue.RequiredBy, issue.InstallHint})
	}
	t.Render()
	return nil
}

// ConnectionTest prints the outcome of a connection test.
func (p *Printer) ConnectionTest(result diagnostics.ConnectionTestResult) error {
	if done, err := p.structured(result); done {
		return err
	}

	status := text.FgGreen.Sprint("✓ " + result.Message)
	if !result.Success {
		status = text.FgRed.Sprint("✗ " + result.Message)
	}
	fmt.Fprintln(p.w, status)
	if result.ExitCode != nil {
		fmt.Fprintf(p.w, "Exit code: %d\n", *result.ExitCode)
	}
	if len(result.MissingDependencies) > 0 {
		if err := p.Dependencies(result.MissingDependencies); err != nil {
			return err
		}
	}
	if len(result.StderrPreview) > 0 {
		fmt.Fprintln(p.w, text.FgHiBlack.Sprint("stderr:"))
		for _, line := range result.StderrPreview {
			fmt.Fprintln(p.w, text.FgHiBlack.Sprint("  "+line))
		}
	}
	for _, hint := range result.Hints {
		fmt.Fprintf(p.w, "%s %s\n", text.FgYellow.Sprint("→"), hint)
	}
	return nil
}

// Conflicts prints groups of duplicate servers.
func (p *Printer) Conflicts(conflicts []diagnostics.Conflict) error {
	if conflicts == nil {
		conflicts = []diagnostics.Conflict{}
	}
	if done, err := p.structured(conflicts); done {
		return err
	}
	if len(conflicts) == 0 {
		p.Success("No conflicting servers")
		return nil
	}

	t := p.createTable("COMMAND", "SERVERS")
	for _, c := range conflicts {
		names := make([]string, 0, len(c.Servers))
		for _, s := range c.Servers {
			names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.ID))
		}
		t.AppendRow([]interface{}{TruncateString(c.Key, maxCellWidth), strings.Join(names, "\n")})
	}
	t.Render()
	return nil
}
