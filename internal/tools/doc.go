// Package tools is the registry of MCP tools fitgate exposes and the
// fitness data tools themselves.
//
// Date-range tools accept optional start_date and end_date arguments in
// YYYY-MM-DD form, default to the last seven days and reject ranges longer
// than 90 days. Results are cached by tool name and arguments.
package tools
